package projection

import "github.com/nikbrunner/tora/internal/model"

// View bundles every derived collection of one synced snapshot. It is built
// once per snapshot version and shared read-only between readers.
type View struct {
	Version int64
	Folders []model.Folder
	Links   []model.Link

	PublicFolders  []model.Folder
	PrivateFolders []model.Folder
	PublicLinks    []model.Link
	PrivateLinks   []model.Link
	LinkCounts     map[string]int
}

// NewView derives every projection from folders and links.
func NewView(version int64, folders []model.Folder, links []model.Link) *View {
	return &View{
		Version:        version,
		Folders:        folders,
		Links:          links,
		PublicFolders:  PublicFolders(folders),
		PrivateFolders: PrivateFolders(folders),
		PublicLinks:    PublicLinks(links),
		PrivateLinks:   PrivateLinks(links),
		LinkCounts:     LinkCounts(links),
	}
}

// Count returns the number of links in a folder.
func (v *View) Count(folderID string) int {
	return v.LinkCounts[folderID]
}

// Snapshot returns the raw collections for the model query helpers.
func (v *View) Snapshot() *model.Snapshot {
	return &model.Snapshot{Folders: v.Folders, Links: v.Links}
}
