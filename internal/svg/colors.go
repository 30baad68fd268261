package svg

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// CurrentColor is the canonical single-color token.
const CurrentColor = "currentColor"

// ColorKind classifies a parsed color value.
type ColorKind int

// Color kinds.
const (
	ColorRGB ColorKind = iota
	ColorNone
	ColorTransparent
	ColorCurrent
)

// Color is a parsed paint value.
type Color struct {
	Kind  ColorKind
	RGB   colorful.Color
	Alpha float64
}

// IsEmptyColor reports whether c paints nothing.
func IsEmptyColor(c *Color) bool {
	if c == nil {
		return false
	}
	switch c.Kind {
	case ColorNone, ColorTransparent:
		return true
	case ColorRGB:
		return c.Alpha == 0
	default:
		return false
	}
}

// ColorCallback receives a color-bearing attribute, its raw value and the
// parsed color (nil when the value is not a plain color, e.g. url(#grad)).
// The returned string replaces the raw value.
type ColorCallback func(attr, raw string, c *Color) string

// colorAttrs are the presentation attributes that carry a paint or color.
var colorAttrs = map[string]struct{}{
	"fill":           {},
	"stroke":         {},
	"stop-color":     {},
	"flood-color":    {},
	"lighting-color": {},
	"color":          {},
}

// ParseColors visits every color in presentation attributes, inline style
// declarations and <style> sheets, and rewrites it with the callback result.
func (d *Document) ParseColors(cb ColorCallback) {
	visit := func(n *xmlquery.Node) {
		if n.Data == "style" {
			rewriteStyleElement(n, cb)
		}
		for i := range n.Attr {
			a := &n.Attr[i]
			if a.Name.Space != "" {
				continue
			}
			switch {
			case a.Name.Local == "style":
				a.Value = rewriteStyle(a.Value, cb)
			case isColorAttr(a.Name.Local):
				a.Value = rewriteValue(a.Name.Local, a.Value, cb)
			}
		}
	}
	visit(d.root)
	walk(d.root, func(n *xmlquery.Node) bool {
		if n.Type != xmlquery.ElementNode {
			return false
		}
		visit(n)
		return true
	})
}

// Monotone replaces every non-empty color with CurrentColor and leaves
// empty, unparsable or already current values untouched.
func Monotone(_ string, raw string, c *Color) string {
	if c == nil || IsEmptyColor(c) || c.Kind == ColorCurrent {
		return raw
	}
	return CurrentColor
}

func isColorAttr(name string) bool {
	_, ok := colorAttrs[name]
	return ok
}

func rewriteValue(attr, raw string, cb ColorCallback) string {
	return cb(attr, raw, ParseColor(raw))
}

func rewriteStyle(style string, cb ColorCallback) string {
	decls := strings.Split(style, ";")
	changed := false
	for i, decl := range decls {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(prop))
		if !isColorAttr(name) {
			continue
		}
		raw := strings.TrimSpace(value)
		if next := rewriteValue(name, raw, cb); next != raw {
			decls[i] = strings.TrimSpace(prop) + ":" + next
			changed = true
		}
	}
	if !changed {
		return style
	}
	return strings.Join(decls, ";")
}

// ParseColor parses a CSS color. Paint servers, inherit and unknown values
// return nil.
func ParseColor(raw string) *Color {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
	switch v {
	case "":
		return nil
	case "none":
		return &Color{Kind: ColorNone}
	case "transparent":
		return &Color{Kind: ColorTransparent}
	case "currentcolor":
		return &Color{Kind: ColorCurrent, Alpha: 1}
	}
	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v)
	case strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba("):
		return parseRGBFunc(v)
	case strings.HasPrefix(v, "hsl(") || strings.HasPrefix(v, "hsla("):
		return parseHSLFunc(v)
	}
	if c, ok := colornames.Map[v]; ok {
		return &Color{
			Kind:  ColorRGB,
			RGB:   colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255},
			Alpha: 1,
		}
	}
	return nil
}

func parseHex(v string) *Color {
	alpha := 1.0
	switch len(v) {
	case 5:
		a, err := strconv.ParseUint(v[4:5], 16, 8)
		if err != nil {
			return nil
		}
		alpha = float64(a) / 15
		v = v[:4]
	case 9:
		a, err := strconv.ParseUint(v[7:9], 16, 8)
		if err != nil {
			return nil
		}
		alpha = float64(a) / 255
		v = v[:7]
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return nil
	}
	return &Color{Kind: ColorRGB, RGB: c, Alpha: alpha}
}

func funcArgs(v string) ([]string, bool) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return nil, false
	}
	inner := strings.ReplaceAll(v[open+1:len(v)-1], "/", " ")
	return strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ' ' }), true
}

func parseRGBFunc(v string) *Color {
	args, ok := funcArgs(v)
	if !ok || len(args) < 3 || len(args) > 4 {
		return nil
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		n, ok := parseChannel(args[i], 255)
		if !ok {
			return nil
		}
		ch[i] = n
	}
	alpha := 1.0
	if len(args) == 4 {
		a, ok := parseChannel(args[3], 1)
		if !ok {
			return nil
		}
		alpha = a
	}
	return &Color{Kind: ColorRGB, RGB: colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, Alpha: alpha}
}

func parseHSLFunc(v string) *Color {
	args, ok := funcArgs(v)
	if !ok || len(args) < 3 || len(args) > 4 {
		return nil
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return nil
	}
	s, ok1 := parseChannel(args[1], 100)
	l, ok2 := parseChannel(args[2], 100)
	if !ok1 || !ok2 {
		return nil
	}
	alpha := 1.0
	if len(args) == 4 {
		a, ok := parseChannel(args[3], 1)
		if !ok {
			return nil
		}
		alpha = a
	}
	return &Color{Kind: ColorRGB, RGB: colorful.Hsl(h, s, l), Alpha: alpha}
}

// parseChannel returns a value in [0, 1]. Plain numbers are divided by scale;
// percentages by 100.
func parseChannel(raw string, scale float64) (float64, bool) {
	div := scale
	if strings.HasSuffix(raw, "%") {
		raw = strings.TrimSuffix(raw, "%")
		div = 100
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	n /= div
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	return n, true
}
