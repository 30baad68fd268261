package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/icons"
	"github.com/JakeFAU/iconsync/internal/storage/local"
)

var exportCfg = config.ExportConfig{
	AuthorName:   "Logitud",
	AuthorURL:    "https://logitud.fr",
	LicenseTitle: "MIT",
	LicenseSPDX:  "MIT",
	LicenseURL:   "https://example.com/LICENSE.md",
}

func newExporter(t *testing.T) (*export.Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return export.New(exportCfg, store, zap.NewNop(), export.WithClock(func() time.Time { return fixed })), dir
}

func sampleSet(t *testing.T) *icons.Set {
	t.Helper()
	set := icons.NewSet("brand")
	set.SetIcon("logo", icons.Icon{Body: `<path fill="currentColor" d="M0 0"/>`, Width: 24, Height: 24})
	set.SetIcon("mark", icons.Icon{Body: `<circle r="2"/>`, Width: 24, Height: 24})
	set.SetIcon("wide", icons.Icon{Body: `<rect width="4"/>`, Left: 1, Width: 48, Height: 24})
	require.NoError(t, set.SetAlias("brand-logo", "logo"))
	return set
}

func TestExport(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	a := e.Export(sampleSet(t))

	assert.Equal(t, "brand", a.Prefix)
	assert.Equal(t, "brand", a.Info.Name)
	assert.Equal(t, 3, a.Info.Total)
	assert.Equal(t, "Logitud", a.Info.Author.Name)
	assert.Equal(t, "MIT", a.Info.License.SPDX)
	assert.Equal(t, int64(1767323045), a.LastModified)

	assert.Equal(t, float64(24), a.Width)
	assert.Equal(t, float64(24), a.Height)
	assert.Equal(t, export.IconData{Body: `<circle r="2"/>`}, a.Icons["mark"])
	assert.Equal(t, export.IconData{Body: `<rect width="4"/>`, Left: 1, Width: 48, Height: 24}, a.Icons["wide"])
	assert.Equal(t, map[string]export.AliasData{"brand-logo": {Parent: "logo"}}, a.Aliases)
}

func TestExportRoundTripsThroughToSet(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	original := sampleSet(t)
	set, err := e.Export(original).ToSet()
	require.NoError(t, err)

	assert.Equal(t, original.Names(), set.Names())
	wide, ok := set.Resolve("wide")
	require.True(t, ok)
	assert.Equal(t, float64(48), wide.Width)
	alias, ok := set.Resolve("brand-logo")
	require.True(t, ok)
	assert.Equal(t, float64(24), alias.Width)
}

func TestToSetRejectsDanglingAlias(t *testing.T) {
	t.Parallel()

	a := export.Artifact{
		Prefix:  "ui",
		Icons:   map[string]export.IconData{"a": {Body: "<g/>"}},
		Aliases: map[string]export.AliasData{"b": {Parent: "missing"}},
	}
	_, err := a.ToSet()
	assert.Error(t, err)
}

func TestWriteArtifactIsPretty(t *testing.T) {
	t.Parallel()

	e, dir := newExporter(t)
	path, err := e.WriteArtifact(context.Background(), e.Export(sampleSet(t)), "brand")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brand.json"), path)

	// #nosec G304 -- test reads from the controlled temp directory.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"prefix\": \"brand\"")

	decoded, err := export.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Len(t, decoded.Icons, 3)
}

func TestMinifyAllPreservesValue(t *testing.T) {
	t.Parallel()

	e, dir := newExporter(t)
	path, err := e.WriteArtifact(context.Background(), e.Export(sampleSet(t)), "brand")
	require.NoError(t, err)
	// #nosec G304 -- test reads from the controlled temp directory.
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "svg", "brand"), 0o750))

	n, err := e.MinifyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// #nosec G304 -- test reads from the controlled temp directory.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, len(after), len(before))
	assert.NotContains(t, string(after), "\n  ")

	var pre, post any
	require.NoError(t, json.Unmarshal(before, &pre))
	require.NoError(t, json.Unmarshal(after, &post))
	assert.Equal(t, pre, post)

	// #nosec G304 -- test reads from the controlled temp directory.
	broken, err := os.ReadFile(filepath.Join(dir, "broken.json"))
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(broken))
}

func TestDecodeRequiresPrefix(t *testing.T) {
	t.Parallel()

	_, err := export.Decode(bytes.NewReader([]byte(`{"icons":{}}`)))
	assert.Error(t, err)
}
