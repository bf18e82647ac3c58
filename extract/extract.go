// Package extract turns fetched HTML into plain text suitable for chunking.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is the readable content of one HTML document.
type Page struct {
	// Text is the visible text with all whitespace runs collapsed to single spaces.
	Text string

	// Title is the trimmed <title> text, or the source URL when there is none.
	Title string
}

// removed lists elements whose content is never visible text.
const removed = "head, script, style, noscript, template, iframe, svg, canvas, object"

// inline elements do not introduce a word boundary.
var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "i": true, "kbd": true,
	"mark": true, "q": true, "s": true, "samp": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "time": true, "u": true, "var": true,
}

// Extract parses raw HTML and returns its text and title. It never fails:
// input the parser rejects degrades to the raw text with whitespace collapsed.
func Extract(raw, sourceURL string) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Page{Text: collapse(raw), Title: sourceURL}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = sourceURL
	}

	doc.Find(removed).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}

	return Page{Text: collapse(b.String()), Title: title}
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	boundary := n.Type == html.ElementNode && !inline[n.Data]
	if boundary {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if boundary {
		b.WriteByte(' ')
	}
}

// PlainText wraps an already plain body. Nothing is parsed as markup; the
// title is always the source URL.
func PlainText(raw, sourceURL string) Page {
	return Page{Text: collapse(raw), Title: sourceURL}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
