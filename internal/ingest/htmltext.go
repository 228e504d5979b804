package ingest

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 正文提取时整体丢弃的标签：脚本/样式类，以及页面骨架类。
var droppedAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Nav:      true,
	atom.Form:     true,
	atom.Aside:    true,
}

// ParseHTML 把 HTML 响应体解析为 DOM 树。
func ParseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ExtractTitle 返回 <title> 的文本内容，没有则返回空串。
func ExtractTitle(doc *html.Node) string {
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			title = strings.TrimSpace(textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// ExtractMainText 从 DOM 中提取页面正文：
// 丢弃脚本/样式和 header/footer/nav/form/aside 等骨架标签，
// 如果存在 <main> 地标则只取 <main> 的内容。
func ExtractMainText(doc *html.Node) string {
	root := doc
	if m := findMain(doc); m != nil {
		root = m
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && droppedAtoms[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		// 块级标签后补一个换行，避免段落黏在一起
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			b.WriteByte('\n')
		}
	}
	walk(root)

	return collapseWhitespace(b.String())
}

// ExtractLinks 从 DOM 中提取 <a href> 链接并解析为绝对 URL。
// mailto: 和 tel: 链接直接排除，锚点片段会被去掉。
func ExtractLinks(doc *html.Node, base string) []string {
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") ||
					strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
					strings.HasPrefix(href, "javascript:") {
					continue
				}
				if resolved := resolveURL(base, href); resolved != "" {
					links = append(links, resolved)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func findMain(doc *html.Node) *html.Node {
	var main *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if main != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Main {
			main = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return main
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Table, atom.Tr, atom.Br, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

// collapseWhitespace 把连续空白压成单个空格，保留段落换行。
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
