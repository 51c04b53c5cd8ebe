// Package importer reads Netscape bookmark HTML files and merges them into a user's links.
package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/tora/internal/model"
)

// Folder is a folder found in the file. Folders are flat: a nested folder
// becomes a folder of its own.
type Folder struct {
	Name      string
	IsPrivate bool
}

// Link is a link found in the file. Folder is the name of the innermost
// enclosing folder, or "" for links outside any folder.
type Link struct {
	Title     string
	URL       string
	Platform  model.Platform
	Folder    string
	IsPrivate bool
	CreatedAt time.Time
}

// ParseHTMLBookmarks parses Netscape bookmark HTML and returns folders + links.
func ParseHTMLBookmarks(r io.Reader) ([]Folder, []Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, err
	}
	var p parser
	p.walk(doc)
	return p.folders, p.links, nil
}

// parser collects folders and links in document order. An H3 names the
// folder of the DL that follows it.
type parser struct {
	folders []Folder
	links   []Link
	open    []string // enclosing folder names, innermost last
	pending string   // H3 seen, waiting for its DL
}

func (p *parser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "h3":
			p.heading(n)
			return
		case "a":
			p.anchor(n)
			return
		case "dl":
			p.list(n)
			return
		}
	}
	p.children(n)
}

func (p *parser) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *parser) heading(n *html.Node) {
	name := getTextContent(n)
	if name == "" {
		return
	}
	p.folders = append(p.folders, Folder{Name: name, IsPrivate: isPrivate(n)})
	p.pending = name
}

func (p *parser) list(n *html.Node) {
	name := p.pending
	p.pending = ""
	if name == "" {
		p.children(n)
		return
	}
	p.open = append(p.open, name)
	p.children(n)
	p.open = p.open[:len(p.open)-1]
}

func (p *parser) anchor(n *html.Node) {
	href := strings.TrimSpace(getAttr(n, "href"))
	if href == "" {
		return
	}

	link := Link{
		Title:     getTextContent(n),
		URL:       href,
		Platform:  model.PlatformWeb,
		IsPrivate: isPrivate(n),
		CreatedAt: addDate(n),
	}
	if link.Title == "" {
		link.Title = href
	}
	if number, ok := strings.CutPrefix(href, "tel:"); ok {
		link.Platform = model.PlatformPhone
		link.URL = number
	}
	if len(p.open) > 0 {
		link.Folder = p.open[len(p.open)-1]
	}
	p.links = append(p.links, link)
}

// addDate reads ADD_DATE as unix seconds. Zero when missing or malformed.
func addDate(n *html.Node) time.Time {
	ts, err := strconv.ParseInt(getAttr(n, "add_date"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

func isPrivate(n *html.Node) bool {
	return getAttr(n, "private") == "1"
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
