package exporter

import (
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/tora/internal/importer"
	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

func strPtr(s string) *string { return &s }

func fixtureView() *projection.View {
	folders := []model.Folder{
		{ID: "fp", Name: "Vault", IsPrivate: true, Order: model.Ordered(0), CreatedAt: time.Unix(1700000200, 0)},
		{ID: "f2", Name: "Read & Watch", Order: model.Ordered(1), CreatedAt: time.Unix(1700000100, 0)},
		{ID: "f1", Name: "Dev", Order: model.Ordered(0), CreatedAt: time.Unix(1700000000, 0)},
	}
	links := []model.Link{
		{ID: "l1", Title: "Go <docs>", URL: "https://go.dev", Platform: model.PlatformWeb, Description: "The Go site", FolderID: strPtr("f1"), CreatedAt: time.Unix(1700000300, 0)},
		{ID: "l2", Title: "Bank", URL: "https://bank.example", Platform: model.PlatformWeb, FolderID: strPtr("fp"), IsPrivate: true, CreatedAt: time.Unix(1700000400, 0)},
		{ID: "l3", Title: "Office", URL: "+49 30 123456", Platform: model.PlatformPhone, CreatedAt: time.Unix(1700000500, 0)},
		{ID: "l4", Title: "Secret", URL: "https://secret.example", Platform: model.PlatformWeb, IsPrivate: true, CreatedAt: time.Unix(1700000600, 0)},
		{ID: "l5", Title: "Orphan", URL: "https://orphan.example", Platform: model.PlatformWeb, FolderID: strPtr("gone"), CreatedAt: time.Unix(1700000700, 0)},
	}
	return projection.NewView(1, folders, links)
}

func TestExportHTML_EmptyView(t *testing.T) {
	html, res := ExportHTML(projection.NewView(0, nil, nil), Options{})

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if !strings.Contains(html, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
	if res != (Result{}) {
		t.Errorf("expected nothing exported, got %+v", res)
	}
}

func TestExportHTML_Public(t *testing.T) {
	html, res := ExportHTML(fixtureView(), Options{})

	golden.Assert(t, html, "export-public.golden")
	assert.Equal(t, res, Result{Folders: 2, Links: 3})
}

func TestExportHTML_IncludePrivate(t *testing.T) {
	html, res := ExportHTML(fixtureView(), Options{IncludePrivate: true})

	golden.Assert(t, html, "export-private.golden")
	assert.Equal(t, res, Result{Folders: 3, Links: 5})
}

func TestExportHTML_RoundTripsThroughImporter(t *testing.T) {
	html, _ := ExportHTML(fixtureView(), Options{IncludePrivate: true})

	folders, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, len(folders), 3)
	assert.Equal(t, len(links), 5)

	byTitle := map[string]importer.Link{}
	for _, l := range links {
		byTitle[l.Title] = l
	}

	goLink := byTitle["Go <docs>"]
	assert.Equal(t, goLink.Folder, "Dev")
	assert.Assert(t, goLink.CreatedAt.Equal(time.Unix(1700000300, 0)))

	bank := byTitle["Bank"]
	assert.Equal(t, bank.Folder, "Vault")
	assert.Assert(t, bank.IsPrivate)

	office := byTitle["Office"]
	assert.Equal(t, office.Platform, model.PlatformPhone)
	assert.Equal(t, office.URL, "+49 30 123456")
	assert.Equal(t, office.Folder, "")
}
