package tools

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText reduces an HTML document to its visible text, one block per line
func HTMLToText(doc string) (string, error) {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	extractText(node, &b, false)
	return strings.TrimSpace(compactWhitespace(b.String())), nil
}

func extractText(n *html.Node, b *strings.Builder, hidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "head", "template":
			hidden = true
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "table", "ul", "ol":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString(" ")
		}
	}
	if !hidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, hidden)
	}
}

// compactWhitespace collapses runs of spaces and drops empty lines
func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}
