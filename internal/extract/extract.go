// Package extract turns a captured page DOM into clean plain text.
//
// Extraction is an ordered cascade; the first sufficient result wins:
//
//  1. Scan prioritized main-content selectors (main, article, [role=main],
//     common content-container classes), strip boilerplate subtrees, keep
//     the longest cleaned text above a 200-character floor.
//  2. If that yields under 300 characters, fall back to the whole <body>
//     with the same stripping applied.
//  3. If that yields under 200 characters, concatenate individual paragraph,
//     heading and list-item elements of reasonable size.
//
// The cascade trades precision for recall: strategy 1 is likely to grab
// exactly the article body, strategy 3 is guaranteed to find something on
// unusual page structures.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// successLen is the minimum final length for Success to be true.
	successLen = 100
	// maxTextLen caps output text regardless of strategy.
	maxTextLen = 10000

	mainFloor      = 200  // strategy 1: minimum per-element text
	bodyTrigger    = 300  // strategy 2 runs when strategy 1 yields less
	elementTrigger = 200  // strategy 3 runs when strategy 2 yields less
	elementMin     = 30   // strategy 3: minimum per-element text
	elementMax     = 1000 // strategy 3: maximum per-element text
	elementCap     = 8000 // strategy 3: cap on the joined result
)

// Result is the output of page text extraction.
type Result struct {
	Text    string // cleaned text, capped at 10000 characters
	HTML    string // outer HTML of the selected region, if one was chosen
	Title   string // page <title> if found
	Length  int    // text length before the cap was applied
	Success bool   // final text length reached the success threshold
}

// mainSelectors are scanned in priority order by strategy 1.
var mainSelectors = []string{
	"main", "article", `[role="main"]`,
	".content", ".main-content", "#main-content",
	".post-content", ".entry-content", ".story-content",
	"#content", ".body", ".text",
}

// Extract runs the extraction cascade on raw page HTML.
func Extract(rawHTML []byte) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}

	title := findTitle(doc)

	// Strategy 1: main content regions.
	best := ""
	var bestNode *html.Node
	for _, sel := range mainSelectors {
		for _, n := range selectAll(doc, sel) {
			text := CleanText(strippedText(n))
			if len(text) > mainFloor && len(text) > len(best) {
				best = text
				bestNode = n
			}
		}
	}

	// Strategy 2: whole body with stripping.
	if len(best) < bodyTrigger {
		if body := findBody(doc); body != nil {
			if text := CleanText(strippedText(body)); text != "" {
				best = text
				bestNode = body
			}
		}
	}

	// Strategy 3: concatenate substantial paragraph-level elements.
	if len(best) < elementTrigger {
		var parts []string
		total := 0
		walkElements(doc, func(n *html.Node) {
			if total >= elementCap {
				return
			}
			text := CleanText(collectText(n))
			if len(text) > elementMin && len(text) < elementMax {
				parts = append(parts, text)
				total += len(text) + 1
			}
		})
		joined := strings.Join(parts, " ")
		if len(joined) > elementCap {
			joined = joined[:elementCap]
		}
		best = joined
		bestNode = nil
	}

	length := len(best)
	if length > maxTextLen {
		best = best[:maxTextLen]
	}

	regionHTML := ""
	if bestNode != nil {
		regionHTML = renderNode(bestNode)
	}

	return &Result{
		Text:    best,
		HTML:    regionHTML,
		Title:   title,
		Length:  length,
		Success: length >= successLen,
	}, nil
}

// renderNode serialises an HTML node subtree back to a string.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// findTitle extracts the page <title> text.
func findTitle(doc *html.Node) string {
	var title string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return title
}

// findBody returns the <body> element from a parsed document.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}

// strippedText collects visible text from a subtree, skipping boilerplate:
// non-content tags and elements whose class or id matches a strip pattern.
func strippedText(root *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript,
				atom.Nav, atom.Header, atom.Footer, atom.Aside:
				return
			}
			if hasStripClass(n) {
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)
	return sb.String()
}

// collectText extracts all visible text from a subtree, skipping only
// script, style and noscript.
func collectText(root *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)
	return sb.String()
}

// stripPatterns mark boilerplate containers by class or id.
var stripPatterns = []string{
	"ad", "ads", "advertisement", "navigation", "menu", "sidebar",
	"comments", "social-share", "share-buttons", "newsletter",
	"popup", "modal", "cookie-consent", "newsletter-signup",
}

func hasStripClass(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		for _, token := range strings.Fields(strings.ToLower(attr.Val)) {
			for _, pat := range stripPatterns {
				if token == pat {
					return true
				}
			}
		}
	}
	return false
}

// walkElements visits every paragraph-level element: p, h1-h6, li, div.
func walkElements(doc *html.Node, visit func(*html.Node)) {
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
				atom.Li, atom.Div:
				visit(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
}
