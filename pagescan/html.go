package pagescan

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
}

// ScanHTML collects translatable leaf elements from raw HTML in
// document order. It applies the same selection rules as the live
// scanner: fixed structural categories, no element children (except
// headings, labels, header cells), visible, non-empty trimmed text.
func ScanHTML(data []byte) ([]ElementRef, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pagescan: parse html: %w", err)
	}

	var refs []ElementRef
	var walk func(n *html.Node, path string)
	walk = func(n *html.Node, path string) {
		// Per-parent sibling counters for locator segments.
		seen := map[string]int{}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			tag := strings.ToLower(c.Data)
			idx := seen[tag]
			seen[tag]++

			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Template:
				continue
			}
			if isHidden(c) {
				continue
			}

			seg := tag
			if idx > 0 {
				seg = fmt.Sprintf("%s[%d]", tag, idx+1)
			}
			childPath := path + "/" + seg

			if leafTags[tag] && (alwaysCollect[tag] || !hasElementChildren(c)) {
				if ref, ok := makeRef(c, tag, childPath); ok {
					refs = append(refs, ref)
					continue // collected subtrees are not descended into
				}
			}

			walk(c, childPath)
		}
	}
	walk(doc, "")

	return refs, nil
}

func makeRef(n *html.Node, tag, path string) (ElementRef, bool) {
	text := normalizeText(collectText(n))
	if text == "" {
		return ElementRef{}, false
	}

	ref := ElementRef{Tag: tag, Text: text, Locator: path}
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			ref.ID = a.Val
		case "class":
			ref.Classes = strings.Fields(a.Val)
		default:
			for _, ka := range keyAttrs {
				if a.Key == ka {
					if ref.Attrs == nil {
						ref.Attrs = map[string]string{}
					}
					ref.Attrs[a.Key] = a.Val
				}
			}
		}
	}
	if ref.ID != "" {
		ref.Locator = fmt.Sprintf(`//*[@id=%q]`, ref.ID)
	}
	return ref, true
}

func hasElementChildren(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" {
			return true
		}
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// collectText concatenates the text nodes of a subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if isHidden(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func normalizeText(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}
