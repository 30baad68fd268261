package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/iconsync/internal/bucket"
	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/download"
	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/hash/sha256"
	"github.com/JakeFAU/iconsync/internal/id/uuid"
	"github.com/JakeFAU/iconsync/internal/model"
	"github.com/JakeFAU/iconsync/internal/normalize"
	"github.com/JakeFAU/iconsync/internal/pipeline"
	"github.com/JakeFAU/iconsync/internal/publisher/memory"
	"github.com/JakeFAU/iconsync/internal/retry"
	"github.com/JakeFAU/iconsync/internal/storage/local"
	membucket "github.com/JakeFAU/iconsync/internal/storage/memory"
)

const (
	plainSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M4 4h16v16H4z"/></svg>`
	redSVG   = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path fill="#ff0000" d="M12 2l10 20H2z"/></svg>`
)

type fixture struct {
	bucket  *membucket.Bucket
	staging string
	output  string
	pub     *memory.Publisher
	out     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	b := membucket.NewBucket(0)
	b.Put("brand/plain.svg", []byte(plainSVG))
	b.Put("brand/red.svg", []byte(redSVG))
	return &fixture{
		bucket:  b,
		staging: filepath.Join(root, "temp"),
		output:  filepath.Join(root, "icons"),
		pub:     memory.New(nil),
		out:     &bytes.Buffer{},
	}
}

func (f *fixture) pipeline(t *testing.T, logger *zap.Logger, opts pipeline.Options) *pipeline.Pipeline {
	t.Helper()
	opts.StagingRoot = f.staging
	opts.OutputRoot = f.output
	store, err := local.New(local.Config{BaseDir: f.output})
	require.NoError(t, err)

	exporter := export.New(config.ExportConfig{AuthorName: "Logitud", LicenseSPDX: "MIT"}, store, logger)
	return pipeline.New(opts, pipeline.Deps{
		Lister:     bucket.NewLister(f.bucket, logger),
		Downloader: download.New(f.bucket, retry.NewExponentialPolicy(3, time.Millisecond, 2*time.Millisecond), download.Config{}, logger),
		Normalizer: normalize.New(exporter, logger),
		Exporter:   exporter,
		Publisher:  f.pub,
		Hasher:     sha256.New(),
		IDs:        uuid.New(),
		Out:        f.out,
		Logger:     logger,
	})
}

func TestRunBuildsMinifiedArtifacts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.bucket.Put("ui/close.svg", []byte(plainSVG))

	summary, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Zero(t, summary.Failures())
	assert.Equal(t, 3, summary.Icons())
	assert.False(t, summary.Finished.Before(summary.Started))

	raw, err := os.ReadFile(filepath.Join(f.output, "brand.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\n", "artifacts are minified after the summary")

	var artifact export.Artifact
	require.NoError(t, json.Unmarshal(raw, &artifact))
	assert.Equal(t, "brand", artifact.Info.Name)
	require.Len(t, artifact.Icons, 2)
	assert.Contains(t, strings.ToLower(artifact.Icons["red"].Body), "currentcolor")
	assert.NotContains(t, artifact.Icons["red"].Body, "#ff0000")
	assert.NotContains(t, strings.ToLower(artifact.Icons["plain"].Body), "currentcolor")

	_, err = os.Stat(f.staging)
	assert.True(t, os.IsNotExist(err), "staging root is removed")
	_, err = os.Stat(filepath.Join(f.output, "svg", "brand", "red.svg"))
	assert.NoError(t, err, "processing tree is kept by default")

	out := f.out.String()
	assert.Contains(t, out, "- brand: Processed 2 icons")
	assert.Contains(t, out, "- ui: Processed 1 icons")
}

func TestRunPublishesDigestOfMinifiedArtifact(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	summary, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)

	msgs := f.pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, summary.RunID, msgs[0].RunID)
	assert.Equal(t, "brand", msgs[0].Collection)
	assert.Equal(t, 2, msgs[0].IconCount)

	want, err := sha256.New().HashFile(filepath.Join(f.output, "brand.json"))
	require.NoError(t, err)
	assert.Equal(t, want, msgs[0].SHA256)
}

func TestRunIsolatesObjectFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.bucket.Put("ui/"+name+".svg", []byte(plainSVG))
	}
	f.bucket.FailOpen("ui/c.svg", 3)

	core, logs := observer.New(zap.ErrorLevel)
	summary, err := f.pipeline(t, zap.New(core), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)

	counts := map[string]int{}
	for _, r := range summary.Results {
		counts[r.Collection] = r.IconCount
	}
	assert.Equal(t, map[string]int{"brand": 2, "ui": 4}, counts)

	failed := logs.FilterMessage("download failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "ui/c.svg", failed[0].ContextMap()["key"])
}

func TestRunRederivesArtifactsEachRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.bucket.Put("ui/a.svg", []byte(plainSVG))
	f.bucket.Put("ui/c.svg", []byte(plainSVG))

	first, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, first.Icons())

	f.bucket.FailOpen("ui/c.svg", 3)
	second, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, second.Icons())

	raw, err := os.ReadFile(filepath.Join(f.output, "ui.json"))
	require.NoError(t, err)
	var artifact export.Artifact
	require.NoError(t, json.Unmarshal(raw, &artifact))
	assert.Len(t, artifact.Icons, 1)
	assert.Contains(t, artifact.Icons, "a")
	assert.NotContains(t, artifact.Icons, "c")
	assert.NoFileExists(t, filepath.Join(f.output, "svg", "ui", "c.svg"))
}

func TestRunPrunesProcessingTree(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true, PruneSVG: true}).Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(f.output, "svg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(f.output, "brand.json"))
	assert.NoError(t, err)
}

func TestRunRequiresCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.pipeline(t, zap.NewNop(), pipeline.Options{}).Run(context.Background())
	require.ErrorIs(t, err, pipeline.ErrMissingCredentials)
	_, statErr := os.Stat(f.staging)
	assert.True(t, os.IsNotExist(statErr), "nothing is created before the precondition check")
}

func TestRunWithEmptyBucket(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.bucket = membucket.NewBucket(0)

	summary, err := f.pipeline(t, zap.NewNop(), pipeline.Options{HasCredentials: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Empty(t, f.pub.Messages())
	assert.Equal(t, "\nProcessing Summary:\n", f.out.String())
}

func TestSummaryPrint(t *testing.T) {
	t.Parallel()

	s := pipeline.Summary{Results: []model.ProcessResult{
		{Collection: "brand", IconCount: 12},
		{Collection: "ui", Error: "create directory temp/ui: permission denied"},
	}}
	var buf bytes.Buffer
	require.NoError(t, s.Print(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"Processing Summary:",
		"- brand: Processed 12 icons",
		"- ui: Failed - create directory temp/ui: permission denied",
	}, lines)
	assert.Equal(t, 1, s.Failures())
	assert.Equal(t, 12, s.Icons())
}
