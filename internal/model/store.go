package model

import "strings"

// Snapshot holds one user's folders and links as last seen by the sync engine.
type Snapshot struct {
	Folders []Folder `json:"folders"`
	Links   []Link   `json:"links"`
}

// NewSnapshot creates an empty Snapshot with initialized slices.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Folders: []Folder{},
		Links:   []Link{},
	}
}

// GetLinksInFolder returns links in the given folder.
// Pass nil for unfiled links.
func (s *Snapshot) GetLinksInFolder(folderID *string) []Link {
	var result []Link
	for _, l := range s.Links {
		if l.InFolder(folderID) {
			result = append(result, l)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Snapshot) GetFolderByID(id string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetFolderByName finds a folder by case-insensitive name, returns nil if not found.
func (s *Snapshot) GetFolderByName(name string) *Folder {
	for i := range s.Folders {
		if strings.EqualFold(s.Folders[i].Name, name) {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetLinkByID finds a link by ID, returns nil if not found.
func (s *Snapshot) GetLinkByID(id string) *Link {
	for i := range s.Links {
		if s.Links[i].ID == id {
			return &s.Links[i]
		}
	}
	return nil
}

// HasLinkURL reports whether any link already points at url.
func (s *Snapshot) HasLinkURL(url string) bool {
	for _, l := range s.Links {
		if l.URL == url {
			return true
		}
	}
	return false
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
