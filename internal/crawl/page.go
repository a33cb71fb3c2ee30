// Package crawl drives the sync: it expands container resources into
// children and materializes leaf resources under the output directory.
package crawl

import (
	"strings"

	"golang.org/x/net/html"

	"iliassync/internal/ilias"
)

// ChildLink is one discovered link inside a container page, together with
// the metadata hint needed if it turns out to be a direct file download.
type ChildLink struct {
	Href string
	Name string
	Hint *ilias.FileMetadataHint
}

// parseContainerItems extracts the course/folder listing entries from a
// repository page. Items without a title link are skipped.
func parseContainerItems(doc *html.Node) []ChildLink {
	var items []ChildLink
	for _, item := range findAll(doc, withClass("il_ContainerListItem")) {
		link := findFirst(item, func(n *html.Node) bool {
			return isElement(n, "a") && hasClass(n, "il_ContainerItemTitle")
		})
		if link == nil {
			continue
		}
		href := attr(link, "href")
		if href == "" {
			continue
		}
		child := ChildLink{
			Href: href,
			Name: strings.TrimSpace(strings.ReplaceAll(nodeText(link), "/", "-")),
		}
		props := findAll(item, func(n *html.Node) bool {
			return isElement(n, "span") && hasClass(n, "il_ItemProperty")
		})
		if len(props) > 0 {
			hint := &ilias.FileMetadataHint{Extension: strings.TrimSpace(nodeText(props[0]))}
			if len(props) > 2 {
				hint.Version = strings.TrimSpace(nodeText(props[2]))
			}
			child.Hint = hint
		}
		items = append(items, child)
	}
	return items
}

// hasDangerAlert reports whether the page carries the ILIAS error banner.
func hasDangerAlert(doc *html.Node) bool {
	return findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "alert-danger")
	}) != nil
}

// findLinkContaining returns the href of the first anchor whose href
// contains needle, or "".
func findLinkContaining(doc *html.Node, needle string) string {
	for _, a := range findAll(doc, anchorWithHref) {
		if href := attr(a, "href"); strings.Contains(href, needle) {
			return href
		}
	}
	return ""
}

func anchorWithHref(n *html.Node) bool {
	return isElement(n, "a") && attr(n, "href") != ""
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func withClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, class)
	}
}

// findAll walks the subtree under n in document order and collects every
// node matching pred.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// nodeText concatenates all text under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// renderInner serializes the children of n back to HTML.
func renderInner(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
