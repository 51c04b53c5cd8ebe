// Package projection derives the read-only collections the app shows from the
// synced folders and links. Every function is pure and leaves its inputs unchanged.
package projection

import (
	"slices"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nikbrunner/tora/internal/model"
)

// RecentWindow is how far back the Recent tab looks.
const RecentWindow = 7 * 24 * time.Hour

// Tab selects a subset of a folder's links.
type Tab string

const (
	TabAll       Tab = "all"
	TabRecent    Tab = "recent"
	TabFavorites Tab = "favorites"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabAll, TabRecent, TabFavorites}

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return slices.Contains(Tabs, t)
}

// PublicFolders returns the non-private folders sorted by order. Folders
// without an order come after every ordered folder and keep their relative order.
func PublicFolders(folders []model.Folder) []model.Folder {
	return sortedByOrder(folders, false)
}

// PrivateFolders returns the private folders in the same order as PublicFolders.
func PrivateFolders(folders []model.Folder) []model.Folder {
	return sortedByOrder(folders, true)
}

func sortedByOrder(folders []model.Folder, private bool) []model.Folder {
	out := make([]model.Folder, 0, len(folders))
	for _, f := range folders {
		if f.IsPrivate == private {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order.Less(out[j].Order)
	})
	return out
}

// PublicLinks returns links whose own isPrivate flag is false.
func PublicLinks(links []model.Link) []model.Link {
	return linksWhere(links, func(l model.Link) bool { return !l.IsPrivate })
}

// PrivateLinks returns links whose own isPrivate flag is true.
func PrivateLinks(links []model.Link) []model.Link {
	return linksWhere(links, func(l model.Link) bool { return l.IsPrivate })
}

// LinkCounts maps folder id to the number of links filed in it. Unfiled links
// are not counted and folders without links are absent.
func LinkCounts(links []model.Link) map[string]int {
	counts := make(map[string]int)
	for _, l := range links {
		if l.FolderID != nil {
			counts[*l.FolderID]++
		}
	}
	return counts
}

// FolderLinks returns the links in folderID; nil selects unfiled links.
func FolderLinks(links []model.Link, folderID *string) []model.Link {
	return linksWhere(links, func(l model.Link) bool { return l.InFolder(folderID) })
}

// FilteredLinks narrows a folder's links by tab, then by a case-insensitive
// search over title, url and description. The Recent tab is sorted newest first.
func FilteredLinks(links []model.Link, folderID *string, tab Tab, term string, now time.Time) []model.Link {
	return narrow(FolderLinks(links, folderID), tab, term, now)
}

// FilteredLinksOutside is FilteredLinks over the links that are in none of
// folderIDs: unfiled links, links of folders not listed and links whose folder
// no longer exists.
func FilteredLinksOutside(links []model.Link, folderIDs []string, tab Tab, term string, now time.Time) []model.Link {
	listed := mapset.NewThreadUnsafeSet(folderIDs...)
	out := linksWhere(links, func(l model.Link) bool {
		return l.FolderID == nil || !listed.Contains(*l.FolderID)
	})
	return narrow(out, tab, term, now)
}

// narrow applies the tab and the search term. An empty term matches
// everything; any other term is matched as given.
func narrow(out []model.Link, tab Tab, term string, now time.Time) []model.Link {
	switch tab {
	case TabRecent:
		cutoff := now.Add(-RecentWindow)
		out = linksWhere(out, func(l model.Link) bool { return l.CreatedAt.After(cutoff) })
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case TabFavorites:
		out = linksWhere(out, func(l model.Link) bool { return l.IsFavorite })
	}

	if term == "" {
		return out
	}
	term = strings.ToLower(term)
	return linksWhere(out, func(l model.Link) bool {
		return strings.Contains(strings.ToLower(l.Title), term) ||
			strings.Contains(strings.ToLower(l.URL), term) ||
			strings.Contains(strings.ToLower(l.Description), term)
	})
}

// FilteredFolders returns folders whose name contains term, ignoring case.
func FilteredFolders(folders []model.Folder, term string) []model.Folder {
	term = strings.ToLower(term)
	out := make([]model.Folder, 0, len(folders))
	for _, f := range folders {
		if term == "" || strings.Contains(strings.ToLower(f.Name), term) {
			out = append(out, f)
		}
	}
	return out
}

// MoveFolder returns the sequence after dragging draggedID onto targetID: the
// dragged id is removed and reinserted at the target's original index. The
// sequence is returned unchanged when the ids are equal or either is missing.
func MoveFolder(ids []string, draggedID, targetID string) []string {
	out := slices.Clone(ids)
	if draggedID == targetID {
		return out
	}
	from := slices.Index(out, draggedID)
	to := slices.Index(out, targetID)
	if from < 0 || to < 0 {
		return out
	}
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, draggedID)
}

// FolderIDs returns the ids of folders in order.
func FolderIDs(folders []model.Folder) []string {
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}
	return ids
}

func linksWhere(links []model.Link, keep func(model.Link) bool) []model.Link {
	out := make([]model.Link, 0, len(links))
	for _, l := range links {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
