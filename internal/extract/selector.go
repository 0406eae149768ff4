package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is the small subset of CSS selectors the cascade needs:
// bare tags ("main"), classes (".content"), ids ("#content") and a single
// attribute equality (`[role="main"]`).
type selector struct {
	tag      string
	class    string
	id       string
	attrKey  string
	attrVal  string
}

func parseSelector(s string) selector {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "."):
		return selector{class: s[1:]}
	case strings.HasPrefix(s, "#"):
		return selector{id: s[1:]}
	case strings.HasPrefix(s, "["):
		inner := strings.Trim(s, "[]")
		key, val, ok := strings.Cut(inner, "=")
		if !ok {
			return selector{attrKey: inner}
		}
		return selector{attrKey: key, attrVal: strings.Trim(val, `"'`)}
	default:
		return selector{tag: s}
	}
}

func (sel selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" {
		return strings.EqualFold(n.Data, sel.tag)
	}
	for _, attr := range n.Attr {
		switch {
		case sel.class != "" && attr.Key == "class":
			for _, c := range strings.Fields(attr.Val) {
				if c == sel.class {
					return true
				}
			}
		case sel.id != "" && attr.Key == "id":
			if attr.Val == sel.id {
				return true
			}
		case sel.attrKey != "" && attr.Key == sel.attrKey:
			if sel.attrVal == "" || attr.Val == sel.attrVal {
				return true
			}
		}
	}
	return false
}

// selectAll returns every element in document order matching the selector.
func selectAll(doc *html.Node, rawSel string) []*html.Node {
	sel := parseSelector(rawSel)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if sel.matches(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
