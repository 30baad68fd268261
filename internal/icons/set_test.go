package icons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIconName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Logo.svg":            "logo",
		"arrow_left.svg":      "arrow-left",
		"Arrow  Left 2.svg":   "arrow-left-2",
		"--weird__name--.svg": "weird-name",
		"___.svg":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, IconName(in), in)
	}
}

func TestSetAliasesAndRemove(t *testing.T) {
	t.Parallel()

	s := NewSet("ui")
	s.SetIcon("close", Icon{Body: `<path d="M0 0"/>`, Width: 24, Height: 24})
	require.NoError(t, s.SetAlias("x", "close"))
	require.NoError(t, s.SetAlias("times", "x"))
	assert.Error(t, s.SetAlias("orphan", "missing"))

	icon, ok := s.Resolve("times")
	require.True(t, ok)
	assert.Equal(t, float64(24), icon.Width)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "ui:close", s.FullName("close"))

	var kinds []EntryKind
	s.ForEach(func(_ string, kind EntryKind) { kinds = append(kinds, kind) })
	assert.Equal(t, []EntryKind{KindIcon, KindAlias, KindAlias}, kinds)

	assert.Equal(t, 3, s.Remove("close"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Remove("close"))
}

func TestForEachToleratesRemoval(t *testing.T) {
	t.Parallel()

	s := NewSet("ui")
	s.SetIcon("a", Icon{Body: "<g/>"})
	s.SetIcon("b", Icon{Body: "<g/>"})
	require.NoError(t, s.SetAlias("c", "a"))

	var visited []string
	s.ForEach(func(name string, _ EntryKind) {
		visited = append(visited, name)
		if name == "a" {
			s.Remove("a")
		}
	})
	assert.Equal(t, []string{"a", "b"}, visited)
}

func TestToSVGAndFromSVG(t *testing.T) {
	t.Parallel()

	s := NewSet("ui")
	s.SetIcon("ok", Icon{Body: `<path d="M0 0"/>`, Width: 24, Height: 24})
	s.SetIcon("broken", Icon{Body: `<path`, Width: 24, Height: 24})
	require.NoError(t, s.SetAlias("alias", "ok"))

	assert.Nil(t, s.ToSVG("broken"))
	assert.Nil(t, s.ToSVG("alias"))
	assert.Nil(t, s.ToSVG("missing"))

	doc := s.ToSVG("ok")
	require.NotNil(t, doc)
	require.NoError(t, s.FromSVG("copy", doc))

	icon, ok := s.Resolve("copy")
	require.True(t, ok)
	assert.Equal(t, `<path d="M0 0"/>`, icon.Body)
	assert.Equal(t, float64(24), icon.Height)

	assert.Error(t, s.FromSVG("nil", nil))
}

func TestImportDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"Logo.svg":   `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32"><path d="M0 0"/></svg>`,
		"Star_2.SVG": `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20"><circle r="4"/></svg>`,
		"broken.svg": `<svg><path</svg>`,
		"empty.svg":  `<svg/>`,
		"notes.txt":  "ignored",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	set, err := ImportDirectory(dir, "brand", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "brand", set.Prefix)
	assert.Equal(t, []string{"logo", "star-2"}, set.Names())

	logo, _ := set.Resolve("logo")
	assert.Equal(t, float64(32), logo.Width)
	star, _ := set.Resolve("star-2")
	assert.Equal(t, float64(20), star.Width)
	assert.Equal(t, `<circle r="4"/>`, star.Body)
}

func TestImportDirectoryLogsDroppedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"Arrow Left.svg", "arrow-left.svg", "图标.svg"} {
		body := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h24v24H0z"/></svg>`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), body, 0o600))
	}

	core, logs := observer.New(zapcore.WarnLevel)
	set, err := ImportDirectory(dir, "ui", zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, []string{"arrow-left"}, set.Names())

	collisions := logs.FilterMessage("icon name collision, replacing earlier file").All()
	require.Len(t, collisions, 1)
	fields := collisions[0].ContextMap()
	assert.Equal(t, "ui:arrow-left", fields["icon"])
	assert.Equal(t, filepath.Join(dir, "Arrow Left.svg"), fields["replaced"])
	assert.Equal(t, filepath.Join(dir, "arrow-left.svg"), fields["path"])

	unnamed := logs.FilterMessage("skipping icon without a usable name").All()
	require.Len(t, unnamed, 1)
	assert.Equal(t, filepath.Join(dir, "图标.svg"), unnamed[0].ContextMap()["path"])
}

func TestImportDirectoryMissing(t *testing.T) {
	t.Parallel()

	_, err := ImportDirectory(filepath.Join(t.TempDir(), "nope"), "brand", nil)
	assert.Error(t, err)
}
