// Package exporter writes a user's folders and links as Netscape bookmark HTML.
package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/tora-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("tora-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// Options controls what ExportHTML writes.
type Options struct {
	// IncludePrivate adds private folders and private links. Callers should
	// only set it once the vault is unlocked.
	IncludePrivate bool
}

// Result counts what was written.
type Result struct {
	Folders int
	Links   int
}

// ExportHTML renders the view in Netscape bookmark HTML format. Folders come
// in display order, each followed by its links; unfiled links close the list.
func ExportHTML(view *projection.View, opts Options) (string, Result) {
	var b strings.Builder
	var res Result

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	folders := view.PublicFolders
	if opts.IncludePrivate {
		folders = append(append([]model.Folder{}, view.PublicFolders...), view.PrivateFolders...)
	}

	known := make(map[string]bool, len(view.Folders))
	for _, f := range view.Folders {
		known[f.ID] = true
	}

	const prefix = "    "
	for _, folder := range folders {
		fmt.Fprintf(&b, "%s<DT><H3 ADD_DATE=\"%d\"%s>%s</H3>\n",
			prefix, folder.CreatedAt.Unix(), privateAttr(folder.IsPrivate), html.EscapeString(folder.Name))
		fmt.Fprintf(&b, "%s<DL><p>\n", prefix)

		folderID := folder.ID
		for _, link := range projection.FolderLinks(view.Links, &folderID) {
			if link.IsPrivate && !opts.IncludePrivate {
				continue
			}
			writeLink(&b, prefix+prefix, link)
			res.Links++
		}

		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
		res.Folders++
	}

	// Unfiled links, plus links whose folder no longer exists.
	for _, link := range view.Links {
		if link.FolderID != nil && known[*link.FolderID] {
			continue
		}
		if link.IsPrivate && !opts.IncludePrivate {
			continue
		}
		writeLink(&b, prefix, link)
		res.Links++
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String(), res
}

func writeLink(b *strings.Builder, prefix string, link model.Link) {
	href := link.URL
	if link.Platform.IsPhone() {
		href = "tel:" + href
	}
	fmt.Fprintf(b,
		"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"%s>%s</A>\n",
		prefix,
		html.EscapeString(href),
		link.CreatedAt.Unix(),
		privateAttr(link.IsPrivate),
		html.EscapeString(link.Title),
	)
	if link.Description != "" {
		fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(link.Description))
	}
}

func privateAttr(private bool) string {
	if private {
		return ` PRIVATE="1"`
	}
	return ""
}
