package importer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/tora/internal/docstore"
	"github.com/nikbrunner/tora/internal/importer"
	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/mutation"
	"github.com/nikbrunner/tora/internal/session"
)

func setup(t *testing.T) (*mutation.Service, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	provider := session.NewManual()
	provider.SignIn(session.User{ID: "u1"})

	log, _ := test.NewNullLogger()
	return mutation.New(store, provider, log), store
}

func loadSnapshot(t *testing.T, store docstore.Store) *model.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap := model.NewSnapshot()

	docs, err := store.List(ctx, "u1", docstore.KindFolders)
	assert.NilError(t, err)
	for _, d := range docs {
		f, err := model.DecodeFolder(d.ID, d.Fields)
		assert.NilError(t, err)
		snap.Folders = append(snap.Folders, f)
	}

	docs, err = store.List(ctx, "u1", docstore.KindLinks)
	assert.NilError(t, err)
	for _, d := range docs {
		l, err := model.DecodeLink(d.ID, d.Fields)
		assert.NilError(t, err)
		snap.Links = append(snap.Links, l)
	}
	return snap
}

func TestMerge_IntoEmpty(t *testing.T) {
	svc, store := setup(t)
	log, _ := test.NewNullLogger()
	added := time.Unix(1234567890, 0)

	folders := []importer.Folder{{Name: "Dev"}, {Name: "Vault", IsPrivate: true}}
	links := []importer.Link{
		{Title: "Go", URL: "https://go.dev", Folder: "Dev", CreatedAt: added},
		{Title: "Bank", URL: "https://bank.example", Folder: "Vault", IsPrivate: true},
		{Title: "Loose", URL: "https://loose.example"},
	}

	stats, err := importer.Merge(context.Background(), svc, "u1", model.NewSnapshot(), folders, links, log)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, importer.Stats{FoldersAdded: 2, LinksAdded: 3})

	snap := loadSnapshot(t, store)
	assert.Assert(t, is.Len(snap.Folders, 2))
	dev := snap.GetFolderByName("dev")
	assert.Assert(t, dev != nil)
	vault := snap.GetFolderByName("Vault")
	assert.Assert(t, vault != nil && vault.IsPrivate)

	inDev := snap.GetLinksInFolder(&dev.ID)
	assert.Assert(t, is.Len(inDev, 1))
	assert.Equal(t, inDev[0].Title, "Go")
	assert.Assert(t, inDev[0].CreatedAt.Equal(added), "ADD_DATE is kept")

	inVault := snap.GetLinksInFolder(&vault.ID)
	assert.Assert(t, is.Len(inVault, 1))
	assert.Assert(t, inVault[0].IsPrivate)

	assert.Assert(t, is.Len(snap.GetLinksInFolder(nil), 1))
}

func TestMerge_ReusesFoldersAndSkipsDuplicates(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	dev, err := svc.AddFolder(ctx, model.NewFolderParams{Name: "Dev", UserID: "u1"})
	assert.NilError(t, err)
	_, err = svc.AddLink(ctx, model.NewLinkParams{Title: "Go", URL: "https://go.dev", UserID: "u1"})
	assert.NilError(t, err)

	folders := []importer.Folder{{Name: "DEV"}}
	links := []importer.Link{
		{Title: "Go again", URL: "https://go.dev", Folder: "DEV"},
		{Title: "Rust", URL: "https://rust-lang.org", Folder: "DEV"},
		{Title: "Rust twice", URL: "https://rust-lang.org"},
	}

	stats, err := importer.Merge(ctx, svc, "u1", loadSnapshot(t, store), folders, links, log)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, importer.Stats{FoldersReused: 1, LinksAdded: 1, Duplicates: 2})

	snap := loadSnapshot(t, store)
	assert.Assert(t, is.Len(snap.Folders, 1))
	assert.Assert(t, is.Len(snap.Links, 2))

	inDev := snap.GetLinksInFolder(&dev.ID)
	assert.Assert(t, is.Len(inDev, 1))
	assert.Equal(t, inDev[0].Title, "Rust")
}

func TestMerge_SkipsInvalidLinks(t *testing.T) {
	svc, store := setup(t)
	log, hook := test.NewNullLogger()

	links := []importer.Link{
		{Title: "Call me", URL: "call-me", Platform: model.PlatformPhone},
		{Title: "Office", URL: "+49 30 123456", Platform: model.PlatformPhone},
	}

	stats, err := importer.Merge(context.Background(), svc, "u1", model.NewSnapshot(), nil, links, log)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, importer.Stats{LinksAdded: 1, Invalid: 1})
	assert.Assert(t, is.Len(loadSnapshot(t, store).Links, 1))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "skipping invalid link" {
			warned = true
		}
	}
	assert.Assert(t, warned)
}

func TestMerge_InvalidFolderLinksLandUnfiled(t *testing.T) {
	svc, store := setup(t)
	log, hook := test.NewNullLogger()

	long := strings.Repeat("x", mutation.MaxNameLength+1)
	folders := []importer.Folder{{Name: long}, {Name: "Dev"}}
	links := []importer.Link{
		{Title: "Go", URL: "https://go.dev", Folder: long},
		{Title: "Rust", URL: "https://rust-lang.org", Folder: "Dev"},
	}

	stats, err := importer.Merge(context.Background(), svc, "u1", model.NewSnapshot(), folders, links, log)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, importer.Stats{FoldersAdded: 1, LinksAdded: 2, InvalidFolders: 1, Unfiled: 1})

	snap := loadSnapshot(t, store)
	assert.Assert(t, is.Len(snap.Folders, 1))
	unfiled := snap.GetLinksInFolder(nil)
	assert.Assert(t, is.Len(unfiled, 1))
	assert.Equal(t, unfiled[0].Title, "Go")

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "skipping invalid folder" {
			warned = true
		}
	}
	assert.Assert(t, warned)
}

func TestMerge_WriteErrorAborts(t *testing.T) {
	svc, store := setup(t)
	log, _ := test.NewNullLogger()
	store.SetFault(func(op string) error {
		if op == "create" {
			return docstore.ErrClosed
		}
		return nil
	})

	_, err := importer.Merge(context.Background(), svc, "u1", model.NewSnapshot(),
		[]importer.Folder{{Name: "Dev"}}, nil, log)
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
