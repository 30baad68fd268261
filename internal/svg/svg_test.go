package svg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inkscapeIcon = `<?xml version="1.0" encoding="UTF-8"?>
<!-- Created with Inkscape -->
<svg xmlns="http://www.w3.org/2000/svg"
     xmlns:sodipodi="http://sodipodi.sourceforge.net/DTD/sodipodi-0.dtd"
     xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape"
     viewBox="0 0 24 24" inkscape:version="1.2" onload="alert(1)">
  <title>Logo</title>
  <metadata>rdf stuff</metadata>
  <sodipodi:namedview id="view" pagecolor="#ffffff"/>
  <g inkscape:label="Layer 1">
    <path fill="#ff0000" d="M0 0h24v24H0z" onclick="evil()"/>
  </g>
</svg>`

func TestParse(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h1"/></svg>`)
	require.NoError(t, err)
	assert.Equal(t, "svg", doc.Root().Data)
	assert.Equal(t, `<path d="M0 0h1"/>`, doc.Body())

	for name, markup := range map[string]string{
		"not xml":    "definitely not svg <",
		"wrong root": `<html><body/></html>`,
		"empty":      "",
	} {
		_, err := Parse(markup)
		assert.Truef(t, errors.Is(err, ErrInvalid), "%s: expected ErrInvalid, got %v", name, err)
	}
}

func TestViewBox(t *testing.T) {
	t.Parallel()

	cases := []struct {
		markup string
		want   ViewBox
	}{
		{`<svg viewBox="0 0 24 24"/>`, ViewBox{Width: 24, Height: 24}},
		{`<svg viewBox="-2,1,20,10"/>`, ViewBox{Left: -2, Top: 1, Width: 20, Height: 10}},
		{`<svg width="32px" height="48"/>`, ViewBox{Width: 32, Height: 48}},
		{`<svg viewBox="broken"/>`, ViewBox{Width: 16, Height: 16}},
	}
	for _, tc := range cases {
		doc, err := Parse(tc.markup)
		require.NoError(t, err)
		assert.Equal(t, tc.want, doc.ViewBox(), tc.markup)
	}
}

func TestNewRoundTripsBody(t *testing.T) {
	t.Parallel()

	doc, err := New(`<path d="M1 1h2"/>`, ViewBox{Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, ViewBox{Width: 20, Height: 20}, doc.ViewBox())
	assert.Equal(t, `<path d="M1 1h2"/>`, doc.Body())

	_, err = New(`<path`, ViewBox{Width: 20, Height: 20})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCleanupStripsNoise(t *testing.T) {
	t.Parallel()

	doc, err := Parse(inkscapeIcon)
	require.NoError(t, err)
	require.NoError(t, doc.Cleanup())

	out := doc.String()
	for _, gone := range []string{"Inkscape", "<title", "metadata", "namedview", "sodipodi", "inkscape", "onclick", "onload"} {
		assert.NotContains(t, out, gone)
	}
	assert.Contains(t, out, `<path fill="#ff0000" d="M0 0h24v24H0z"/>`)
	assert.Contains(t, out, `viewBox="0 0 24 24"`)
}

func TestCleanupRejectsScripts(t *testing.T) {
	t.Parallel()

	for _, markup := range []string{
		`<svg><script>alert(1)</script><path d="M0 0"/></svg>`,
		`<svg><g><foreignObject><div/></foreignObject></g></svg>`,
	} {
		doc, err := Parse(markup)
		require.NoError(t, err)
		assert.ErrorIs(t, doc.Cleanup(), ErrInvalid)
	}
}

func TestParseColorsMonotone(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<svg viewBox="0 0 24 24">` +
		`<path fill="#ff0000" d="M0 0"/>` +
		`<path fill="none" stroke="rgb(0, 0, 255)" d="M1 1"/>` +
		`<path fill="url(#grad)" d="M2 2"/>` +
		`<path style="fill:red;opacity:.5" d="M3 3"/>` +
		`<path d="M4 4"/>` +
		`<stop stop-color="transparent"/>` +
		`</svg>`)
	require.NoError(t, err)

	var seen []string
	doc.ParseColors(func(attr, raw string, c *Color) string {
		seen = append(seen, attr+"="+raw)
		return Monotone(attr, raw, c)
	})

	out := doc.String()
	assert.Contains(t, out, `<path fill="currentColor" d="M0 0"/>`)
	assert.Contains(t, out, `<path fill="none" stroke="currentColor" d="M1 1"/>`)
	assert.Contains(t, out, `<path fill="url(#grad)" d="M2 2"/>`)
	assert.Contains(t, out, `style="fill:currentColor;opacity:.5"`)
	assert.Contains(t, out, `<path d="M4 4"/>`)
	assert.Contains(t, out, `stop-color="transparent"`)
	assert.Contains(t, seen, "fill=#ff0000")
	assert.Contains(t, seen, "fill=red")
	assert.NotContains(t, seen, "opacity=.5")
}

func TestParseColorsRewritesStyleSheets(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<svg viewBox="0 0 24 24"><defs><style>` +
		`.cls-1{fill:#231f20}.cls-2{ stroke : rgb(1,2,3) ; opacity:.5}` +
		`.cls-3{fill:none}.cls-4:hover{fill:url(#g)}` +
		`</style></defs><path class="cls-1" d="M0 0"/></svg>`)
	require.NoError(t, err)

	var seen []string
	doc.ParseColors(func(attr, raw string, c *Color) string {
		seen = append(seen, attr+"="+raw)
		return Monotone(attr, raw, c)
	})

	out := doc.String()
	assert.Contains(t, out, `.cls-1{fill:currentColor}`)
	assert.Contains(t, out, `.cls-2{ stroke : currentColor ; opacity:.5}`)
	assert.Contains(t, out, `.cls-3{fill:none}`)
	assert.Contains(t, out, `.cls-4:hover{fill:url(#g)}`)
	assert.NotContains(t, out, "#231f20")
	assert.Equal(t, []string{"fill=#231f20", "stroke=rgb(1,2,3)", "fill=none", "fill=url(#g)"}, seen)
}

func TestNormalizationRecolorsIllustratorIcons(t *testing.T) {
	t.Parallel()

	icon := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">` +
		`<defs><style>.cls-1{fill:#231f20;}</style></defs>` +
		`<path class="cls-1" d="M4 4h16v16H4z"/></svg>`

	once := normalize(t, icon)
	assert.NotContains(t, strings.ToLower(once), "#231f20")
	assert.Contains(t, strings.ToLower(once), "currentcolor")
	assert.Equal(t, once, normalize(t, once))
}

func normalize(t *testing.T, markup string) string {
	t.Helper()
	doc, err := Parse(markup)
	require.NoError(t, err)
	require.NoError(t, doc.Cleanup())
	doc.ParseColors(Monotone)
	require.NoError(t, doc.Optimize())
	return doc.String()
}

func TestNormalizationIsIdempotent(t *testing.T) {
	t.Parallel()

	once := normalize(t, inkscapeIcon)
	twice := normalize(t, once)
	assert.Equal(t, once, twice)
	assert.Contains(t, strings.ToLower(once), "currentcolor")
	assert.NotContains(t, strings.ToLower(once), "#ff0000")
	assert.NotContains(t, once, "\n")
}

func TestOptimizeShrinks(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
		<g>
			<path d="M 10.000000 10.000000 L 20.000000 20.000000" />
		</g>
	</svg>`)
	require.NoError(t, err)
	before := len(doc.String())
	require.NoError(t, doc.Optimize())
	assert.Less(t, len(doc.String()), before)
	assert.Equal(t, "svg", doc.Root().Data)
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw   string
		kind  ColorKind
		empty bool
		isNil bool
	}{
		{raw: "#f00", kind: ColorRGB},
		{raw: "#FF0000", kind: ColorRGB},
		{raw: "#ff000000", kind: ColorRGB, empty: true},
		{raw: "rgba(0,0,0,0)", kind: ColorRGB, empty: true},
		{raw: "rgb(10% 20% 30%)", kind: ColorRGB},
		{raw: "hsl(120, 100%, 50%)", kind: ColorRGB},
		{raw: "red", kind: ColorRGB},
		{raw: "None", kind: ColorNone, empty: true},
		{raw: "transparent", kind: ColorTransparent, empty: true},
		{raw: "currentColor", kind: ColorCurrent},
		{raw: "url(#a)", isNil: true},
		{raw: "inherit", isNil: true},
		{raw: "#zzz", isNil: true},
		{raw: "", isNil: true},
	}
	for _, tc := range cases {
		c := ParseColor(tc.raw)
		if tc.isNil {
			assert.Nil(t, c, tc.raw)
			continue
		}
		require.NotNil(t, c, tc.raw)
		assert.Equal(t, tc.kind, c.Kind, tc.raw)
		assert.Equal(t, tc.empty, IsEmptyColor(c), tc.raw)
	}

	red := ParseColor("#ff0000")
	assert.Equal(t, "#ff0000", red.RGB.Hex())
}

func TestBodyCarriesNamespaceDeclarations(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 24 24">` +
		`<defs><path id="a" d="M0 0"/></defs><use xlink:href="#a"/></svg>`)
	require.NoError(t, err)

	body := doc.Body()
	assert.Contains(t, body, `<use xmlns:xlink="http://www.w3.org/1999/xlink" xlink:href="#a"/>`)
	assert.Contains(t, body, `<defs><path id="a" d="M0 0"/></defs>`)

	rebuilt, err := New(body, doc.ViewBox())
	require.NoError(t, err)
	require.NoError(t, rebuilt.Cleanup())
	assert.Contains(t, rebuilt.Body(), `<use href="#a"/>`)
}
