package svg

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// editorPrefixes are namespaces written by drawing tools that carry no
// rendering information.
var editorPrefixes = map[string]struct{}{
	"sodipodi": {},
	"inkscape": {},
	"sketch":   {},
	"serif":    {},
	"figma":    {},
}

// droppedElements hold metadata only.
var droppedElements = map[string]struct{}{
	"metadata": {},
	"title":    {},
	"desc":     {},
}

const xlinkNamespace = "http://www.w3.org/1999/xlink"

// unsafeXPath selects elements an icon must not contain.
const unsafeXPath = "//*[local-name()='script' or local-name()='foreignObject']"

// Cleanup strips comments, processing instructions, metadata, editor
// namespaces and event handlers. Documents containing scripts or foreign
// objects are rejected with ErrInvalid.
func (d *Document) Cleanup() error {
	if found := xmlquery.Find(d.root, unsafeXPath); len(found) > 0 {
		return fmt.Errorf("%w: contains <%s>", ErrInvalid, found[0].Data)
	}

	cleanAttrs(d.root)
	walk(d.root, func(n *xmlquery.Node) bool {
		switch n.Type {
		case xmlquery.ElementNode:
			if dropElement(n) {
				xmlquery.RemoveFromTree(n)
				return false
			}
			cleanAttrs(n)
			return true
		case xmlquery.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				xmlquery.RemoveFromTree(n)
			}
			return false
		case xmlquery.CharDataNode:
			return false
		default:
			xmlquery.RemoveFromTree(n)
			return false
		}
	})
	return nil
}

func dropElement(n *xmlquery.Node) bool {
	if _, ok := editorPrefixes[n.Prefix]; ok {
		return true
	}
	if isEditorNamespace(n.NamespaceURI) {
		return true
	}
	_, ok := droppedElements[n.Data]
	return ok
}

// cleanAttrs drops unwanted attributes and rewrites xlink:href to href.
func cleanAttrs(n *xmlquery.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if dropAttr(a) {
			continue
		}
		if isXlink(a.Name.Space, a.NamespaceURI) && a.Name.Local == "href" {
			a.Name.Space, a.NamespaceURI = "", ""
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func isXlink(space, uri string) bool {
	return space == "xlink" || space == xlinkNamespace || uri == xlinkNamespace
}

func dropAttr(a xmlquery.Attr) bool {
	local := strings.ToLower(a.Name.Local)
	if a.Name.Space == "" && strings.HasPrefix(local, "on") {
		return true
	}
	if _, ok := editorPrefixes[a.Name.Space]; ok {
		return true
	}
	if isXlink(a.Name.Space, a.NamespaceURI) && a.Name.Local != "href" {
		return true
	}
	if a.Name.Space == "xmlns" {
		if _, ok := editorPrefixes[a.Name.Local]; ok {
			return true
		}
		return a.Name.Local == "xlink" || isEditorNamespace(a.Value)
	}
	return isEditorNamespace(a.NamespaceURI) || isEditorNamespace(a.Name.Space)
}

func isEditorNamespace(uri string) bool {
	if uri == "" {
		return false
	}
	uri = strings.ToLower(uri)
	for prefix := range editorPrefixes {
		if strings.Contains(uri, prefix) {
			return true
		}
	}
	return false
}
