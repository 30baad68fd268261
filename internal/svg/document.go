// Package svg parses, cleans, recolors and optimizes single SVG icons.
package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Namespace is the SVG namespace written on generated documents.
const Namespace = "http://www.w3.org/2000/svg"

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// ErrInvalid reports markup that is not a usable SVG icon.
var ErrInvalid = errors.New("invalid svg")

// ViewBox is the icon coordinate system.
type ViewBox struct {
	Left, Top, Width, Height float64
}

// Document is an editable SVG tree.
type Document struct {
	doc  *xmlquery.Node
	root *xmlquery.Node
}

// Parse reads markup into a Document. The first element must be <svg>.
func Parse(markup string) (*Document, error) {
	doc, err := xmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	root := firstElement(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalid)
	}
	if root.Data != "svg" {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrInvalid, root.Data)
	}
	return &Document{doc: doc, root: root}, nil
}

// New wraps body in an <svg> element with the given view box.
func New(body string, box ViewBox) (*Document, error) {
	markup := fmt.Sprintf(`<svg xmlns="%s" viewBox="%s %s %s %s">%s</svg>`,
		Namespace,
		formatNumber(box.Left), formatNumber(box.Top),
		formatNumber(box.Width), formatNumber(box.Height),
		body,
	)
	return Parse(markup)
}

// Root returns the <svg> element.
func (d *Document) Root() *xmlquery.Node {
	return d.root
}

// ViewBox returns the icon's view box. Without a viewBox attribute the width
// and height attributes are used, then 16x16.
func (d *Document) ViewBox() ViewBox {
	if raw := d.root.SelectAttr("viewBox"); raw != "" {
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
		if len(parts) == 4 {
			var vals [4]float64
			ok := true
			for i, p := range parts {
				v, err := strconv.ParseFloat(p, 64)
				if err != nil {
					ok = false
					break
				}
				vals[i] = v
			}
			if ok && vals[2] > 0 && vals[3] > 0 {
				return ViewBox{Left: vals[0], Top: vals[1], Width: vals[2], Height: vals[3]}
			}
		}
	}
	box := ViewBox{Width: 16, Height: 16}
	if w, ok := parseLength(d.root.SelectAttr("width")); ok {
		box.Width = w
	}
	if h, ok := parseLength(d.root.SelectAttr("height")); ok {
		box.Height = h
	}
	return box
}

// Body renders the children of the root element. Namespace declarations
// made on the root are repeated on each child that uses them so the body
// parses on its own.
func (d *Document) Body() string {
	declared := make(map[string]xmlquery.Attr)
	for _, a := range d.root.Attr {
		if a.Name.Space == "xmlns" {
			declared[a.Name.Local] = a
		}
	}

	var b strings.Builder
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		var extra []xmlquery.Attr
		if c.Type == xmlquery.ElementNode && len(declared) > 0 {
			for _, prefix := range usedPrefixes(c) {
				if a, ok := declared[prefix]; ok && !hasAttr(c, a.Name) {
					extra = append(extra, a)
				}
			}
		}
		renderElement(&b, c, extra)
	}
	return strings.TrimSpace(b.String())
}

func usedPrefixes(n *xmlquery.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if p == "" || p == "xml" || p == "xmlns" || strings.ContainsAny(p, "/:") {
			return
		}
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	var visit func(*xmlquery.Node)
	visit = func(n *xmlquery.Node) {
		if n.Type != xmlquery.ElementNode {
			return
		}
		add(n.Prefix)
		for _, a := range n.Attr {
			add(a.Name.Space)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return out
}

func hasAttr(n *xmlquery.Node, name xml.Name) bool {
	for _, a := range n.Attr {
		if a.Name == name {
			return true
		}
	}
	return false
}

// String renders the whole document, starting at the root element.
func (d *Document) String() string {
	var b strings.Builder
	render(&b, d.root)
	return b.String()
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func parseLength(raw string) (float64, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "px")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// render writes n as XML. Comments, declarations and directives are not
// written.
func render(b *strings.Builder, n *xmlquery.Node) {
	renderElement(b, n, nil)
}

// renderElement is render with extra attributes written on n itself.
func renderElement(b *strings.Builder, n *xmlquery.Node, extra []xmlquery.Attr) {
	switch n.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		_ = xml.EscapeText(b, []byte(n.Data))
	case xmlquery.ElementNode:
		name := elementName(n)
		b.WriteByte('<')
		b.WriteString(name)
		for _, a := range append(extra, n.Attr...) {
			an, ok := attrName(a)
			if !ok {
				continue
			}
			b.WriteByte(' ')
			b.WriteString(an)
			b.WriteString(`="`)
			writeAttrValue(b, a.Value)
			b.WriteByte('"')
		}
		if n.FirstChild == nil {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c)
		}
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	default:
	}
}

func elementName(n *xmlquery.Node) string {
	if n.Prefix != "" && !strings.ContainsAny(n.Prefix, "/:") {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

// attrName returns the qualified attribute name. Attributes in a namespace
// without a known prefix are dropped.
func attrName(a xmlquery.Attr) (string, bool) {
	space := a.Name.Space
	switch {
	case space == "":
		return a.Name.Local, true
	case space == xmlNamespace:
		return "xml:" + a.Name.Local, true
	case strings.ContainsAny(space, "/:"):
		return "", false
	default:
		return space + ":" + a.Name.Local, true
	}
}

func writeAttrValue(b *strings.Builder, v string) {
	for _, r := range v {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\n':
			b.WriteString("&#xA;")
		case '\t':
			b.WriteString("&#x9;")
		default:
			b.WriteRune(r)
		}
	}
}

// walk calls fn for every node below n in document order and descends into
// a node only when fn returns true. fn may detach the node it is given.
func walk(n *xmlquery.Node, fn func(*xmlquery.Node) bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if fn(c) {
			walk(c, fn)
		}
		c = next
	}
}
