package svg

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// rewriteStyleElement passes the declarations of a <style> element through
// the callback. The text and CDATA children are replaced by one text node
// only when something changed.
func rewriteStyleElement(n *xmlquery.Node, cb ColorCallback) {
	var sheet strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			sheet.WriteString(c.Data)
		}
	}
	if sheet.Len() == 0 {
		return
	}
	next := rewriteStylesheet(sheet.String(), cb)
	if next == sheet.String() {
		return
	}
	for c := n.FirstChild; c != nil; {
		following := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = following
	}
	xmlquery.AddChild(n, &xmlquery.Node{Type: xmlquery.TextNode, Data: next})
}

// rewriteStylesheet walks the CSS tokens of sheet and rewrites the value of
// every color-bearing declaration found inside a block. All other tokens are
// copied as they are.
func rewriteStylesheet(sheet string, cb ColorCallback) string {
	l := css.NewLexer(parse.NewInputString(sheet))
	var (
		out     strings.Builder
		value   strings.Builder
		depth   int
		ident   string
		prop    string
		inValue bool
	)
	flush := func() {
		raw := value.String()
		trimmed := strings.TrimSpace(raw)
		if next := rewriteValue(prop, trimmed, cb); next != trimmed {
			lead := raw[:len(raw)-len(strings.TrimLeft(raw, " \t\r\n"))]
			trail := raw[len(strings.TrimRight(raw, " \t\r\n")):]
			raw = lead + next + trail
		}
		out.WriteString(raw)
		value.Reset()
		inValue = false
	}

	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			break
		}
		if inValue {
			if tt != css.SemicolonToken && tt != css.RightBraceToken {
				value.Write(data)
				continue
			}
			flush()
		}
		switch tt {
		case css.LeftBraceToken:
			depth++
			ident = ""
		case css.RightBraceToken:
			if depth > 0 {
				depth--
			}
			ident = ""
		case css.IdentToken:
			ident = strings.ToLower(string(data))
		case css.ColonToken:
			if depth > 0 && isColorAttr(ident) {
				prop, inValue = ident, true
			}
			ident = ""
		case css.WhitespaceToken, css.CommentToken:
		default:
			ident = ""
		}
		out.Write(data)
	}
	if inValue {
		flush()
	}
	return out.String()
}
