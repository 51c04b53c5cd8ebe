package model

import "time"

// Folder represents a named group of links owned by one user.
type Folder struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId"`
	Color       string    `json:"color,omitempty"`
	Order       Order     `json:"order"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name        string
	IsPrivate   bool
	UserID      string
	Description string
	Color       string
}

// NewFolder creates an unsaved Folder. The ID is assigned by the store and the
// folder starts unordered, so it sorts after every reordered folder.
func NewFolder(params NewFolderParams, now time.Time) Folder {
	return Folder{
		Name:        params.Name,
		Description: params.Description,
		IsPrivate:   params.IsPrivate,
		CreatedAt:   now,
		UserID:      params.UserID,
		Color:       params.Color,
		Order:       Unordered,
	}
}

// Fields returns the document representation of the folder, without its ID.
func (f Folder) Fields() map[string]any {
	fields := map[string]any{
		FieldName:      f.Name,
		FieldIsPrivate: f.IsPrivate,
		FieldCreatedAt: Millis(f.CreatedAt),
		FieldUserID:    f.UserID,
	}
	if f.Description != "" {
		fields[FieldDescription] = f.Description
	}
	if f.Color != "" {
		fields[FieldColor] = f.Color
	}
	if pos, ok := f.Order.Position(); ok {
		fields[FieldOrder] = pos
	}
	return fields
}

// DecodeFolder builds a Folder from a stored document.
func DecodeFolder(id string, fields map[string]any) (Folder, error) {
	f := Folder{ID: id}
	var err error
	if f.Name, err = fieldString(id, fields, FieldName); err != nil {
		return Folder{}, err
	}
	if f.Description, err = fieldString(id, fields, FieldDescription); err != nil {
		return Folder{}, err
	}
	if f.IsPrivate, err = fieldBool(id, fields, FieldIsPrivate); err != nil {
		return Folder{}, err
	}
	if f.CreatedAt, err = fieldTime(id, fields, FieldCreatedAt); err != nil {
		return Folder{}, err
	}
	if f.UserID, err = fieldString(id, fields, FieldUserID); err != nil {
		return Folder{}, err
	}
	if f.Color, err = fieldString(id, fields, FieldColor); err != nil {
		return Folder{}, err
	}
	if f.Order, err = fieldOrder(id, fields); err != nil {
		return Folder{}, err
	}
	return f, nil
}

// FolderUpdate is a partial folder update; nil fields are left untouched.
type FolderUpdate struct {
	Name        *string
	IsPrivate   *bool
	Description *string
	Color       *string
}

// IsEmpty reports whether the update changes nothing.
func (u FolderUpdate) IsEmpty() bool {
	return u.Name == nil && u.IsPrivate == nil && u.Description == nil && u.Color == nil
}

// Fields returns only the fields set on the update.
func (u FolderUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields[FieldName] = *u.Name
	}
	if u.IsPrivate != nil {
		fields[FieldIsPrivate] = *u.IsPrivate
	}
	if u.Description != nil {
		fields[FieldDescription] = *u.Description
	}
	if u.Color != nil {
		fields[FieldColor] = *u.Color
	}
	return fields
}
