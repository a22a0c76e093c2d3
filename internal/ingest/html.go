package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, class string) bool {
	return strings.Contains(attr(n, "class"), class)
}

// findAll returns every descendant element with the tag, in document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, tag) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// findChild returns the first direct child element with the tag.
func findChild(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tag) {
			return c
		}
	}
	return nil
}

// parentRow returns the closest enclosing tr.
func parentRow(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, "tr") {
			return p
		}
	}
	return nil
}

// textContent concatenates all descendant text, trimmed and normalized.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return cleanText(b.String())
}
