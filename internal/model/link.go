package model

import "time"

// Link represents a saved URL or phone contact with metadata.
type Link struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Platform    Platform  `json:"platform"`
	Description string    `json:"description,omitempty"`
	FolderID    *string   `json:"folderId"` // nil = unfiled
	IsPrivate   bool      `json:"isPrivate"`
	IsFavorite  bool      `json:"isFavorite"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId"`
}

// NewLinkParams holds parameters for creating a new Link.
type NewLinkParams struct {
	Title       string
	URL         string
	Platform    Platform
	Description string
	FolderID    *string
	IsPrivate   bool
	UserID      string
	// CreatedAt overrides the creation time, e.g. for imported links.
	CreatedAt   time.Time
}

// NewLink creates an unsaved Link; the store assigns the ID.
// An empty platform defaults to web.
func NewLink(params NewLinkParams, now time.Time) Link {
	platform := params.Platform
	if platform == "" {
		platform = PlatformWeb
	}
	if !params.CreatedAt.IsZero() {
		now = params.CreatedAt
	}

	return Link{
		Title:       params.Title,
		URL:         params.URL,
		Platform:    platform,
		Description: params.Description,
		FolderID:    params.FolderID,
		IsPrivate:   params.IsPrivate,
		IsFavorite:  false,
		CreatedAt:   now,
		UserID:      params.UserID,
	}
}

// InFolder reports whether the link belongs to the given folder.
// A nil folderID matches unfiled links.
func (l Link) InFolder(folderID *string) bool {
	return ptrEqual(l.FolderID, folderID)
}

// Fields returns the document representation of the link, without its ID.
func (l Link) Fields() map[string]any {
	fields := map[string]any{
		FieldTitle:      l.Title,
		FieldURL:        l.URL,
		FieldPlatform:   string(l.Platform),
		FieldIsPrivate:  l.IsPrivate,
		FieldIsFavorite: l.IsFavorite,
		FieldCreatedAt:  Millis(l.CreatedAt),
		FieldUserID:     l.UserID,
	}
	if l.Description != "" {
		fields[FieldDescription] = l.Description
	}
	if l.FolderID != nil {
		fields[FieldFolderID] = *l.FolderID
	} else {
		fields[FieldFolderID] = nil
	}
	return fields
}

// DecodeLink builds a Link from a stored document.
func DecodeLink(id string, fields map[string]any) (Link, error) {
	l := Link{ID: id}
	var err error
	if l.Title, err = fieldString(id, fields, FieldTitle); err != nil {
		return Link{}, err
	}
	if l.URL, err = fieldString(id, fields, FieldURL); err != nil {
		return Link{}, err
	}
	platform, err := fieldString(id, fields, FieldPlatform)
	if err != nil {
		return Link{}, err
	}
	l.Platform = Platform(platform)
	if l.Platform == "" {
		l.Platform = PlatformWeb
	}
	if l.Description, err = fieldString(id, fields, FieldDescription); err != nil {
		return Link{}, err
	}
	if l.FolderID, err = fieldStringPtr(id, fields, FieldFolderID); err != nil {
		return Link{}, err
	}
	if l.IsPrivate, err = fieldBool(id, fields, FieldIsPrivate); err != nil {
		return Link{}, err
	}
	if l.IsFavorite, err = fieldBool(id, fields, FieldIsFavorite); err != nil {
		return Link{}, err
	}
	if l.CreatedAt, err = fieldTime(id, fields, FieldCreatedAt); err != nil {
		return Link{}, err
	}
	if l.UserID, err = fieldString(id, fields, FieldUserID); err != nil {
		return Link{}, err
	}
	return l, nil
}
