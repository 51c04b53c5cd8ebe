package importer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/tora/internal/importer"
	"github.com/nikbrunner/tora/internal/model"
)

func TestParseHTML_SingleLink(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Example Site</A>
</DL><p>`

	folders, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 0 {
		t.Errorf("expected 0 folders, got %d", len(folders))
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}

	l := links[0]
	if l.Title != "Example Site" {
		t.Errorf("expected title 'Example Site', got %q", l.Title)
	}
	if l.URL != "https://example.com" {
		t.Errorf("expected URL 'https://example.com', got %q", l.URL)
	}
	if l.Folder != "" {
		t.Errorf("expected no folder, got %q", l.Folder)
	}
	if l.Platform != model.PlatformWeb {
		t.Errorf("expected platform web, got %q", l.Platform)
	}
	if l.IsPrivate {
		t.Error("expected public link")
	}
}

func TestParseHTML_NestedFolders(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890">React Docs</A>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

	folders, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(folders))
	}
	if folders[0].Name != "Development" || folders[1].Name != "React" {
		t.Errorf("unexpected folders %+v", folders)
	}

	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}

	want := map[string]string{
		"React Docs": "React",
		"GitHub":     "Development",
		"Google":     "",
	}
	for _, l := range links {
		folder, ok := want[l.Title]
		if !ok {
			t.Errorf("unexpected link %q", l.Title)
			continue
		}
		if l.Folder != folder {
			t.Errorf("%s: expected folder %q, got %q", l.Title, folder, l.Folder)
		}
	}
}

func TestParseHTML_EmptyFile(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
</DL><p>`

	folders, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 0 {
		t.Errorf("expected 0 folders, got %d", len(folders))
	}
	if len(links) != 0 {
		t.Errorf("expected 0 links, got %d", len(links))
	}
}

func TestParseHTML_Timestamps(t *testing.T) {
	// 1234567890 = Fri Feb 13 2009 23:31:30 UTC
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Test</A>
    <DT><A HREF="https://undated.com">Undated</A>
</DL><p>`

	_, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	expected := time.Unix(1234567890, 0)
	if !links[0].CreatedAt.Equal(expected) {
		t.Errorf("expected CreatedAt %v, got %v", expected, links[0].CreatedAt)
	}
	if !links[1].CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt for undated link, got %v", links[1].CreatedAt)
	}
}

func TestParseHTML_MissingHref(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A ADD_DATE="1234567890">No URL</A>
    <DT><A HREF="https://valid.com" ADD_DATE="1234567890">Valid</A>
</DL><p>`

	_, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(links) != 1 {
		t.Fatalf("expected 1 link (skip missing href), got %d", len(links))
	}
	if links[0].Title != "Valid" {
		t.Errorf("expected 'Valid' link, got %q", links[0].Title)
	}
}

func TestParseHTML_PrivateAndPhone(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 PRIVATE="1">Vault</H3>
    <DL><p>
        <DT><A HREF="https://bank.example" PRIVATE="1">Bank</A>
        <DT><A HREF="tel:+49 30 123456">Office</A>
    </DL><p>
</DL><p>`

	folders, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 1 || !folders[0].IsPrivate {
		t.Fatalf("expected one private folder, got %+v", folders)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if !links[0].IsPrivate {
		t.Error("expected Bank to be private")
	}
	if links[1].Platform != model.PlatformPhone || links[1].URL != "+49 30 123456" {
		t.Errorf("expected phone link, got %+v", links[1])
	}
	if links[1].IsPrivate {
		t.Error("privacy is not inherited from the folder")
	}
}

func TestParseHTML_TitleFallsBackToURL(t *testing.T) {
	html := `<DL><p><DT><A HREF="https://untitled.example"></A></DL><p>`

	_, links, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0].Title != "https://untitled.example" {
		t.Errorf("expected URL as title, got %+v", links)
	}
}
