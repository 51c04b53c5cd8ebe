package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Document field names shared by the store, the sync engine and the mutations.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldIsPrivate   = "isPrivate"
	FieldCreatedAt   = "createdAt"
	FieldUserID      = "userId"
	FieldColor       = "color"
	FieldOrder       = "order"
	FieldTitle       = "title"
	FieldURL         = "url"
	FieldPlatform    = "platform"
	FieldFolderID    = "folderId"
	FieldIsFavorite  = "isFavorite"
)

// ErrFieldType is returned when a document field holds a value of the wrong type.
var ErrFieldType = errors.New("unexpected field type")

func fieldError(id, key string, v any) error {
	return fmt.Errorf("document %s: field %q (%T): %w", id, key, v, ErrFieldType)
}

// fieldString reads an optional string. Missing and null both yield "".
func fieldString(id string, fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fieldError(id, key, v)
	}
	return s, nil
}

// fieldStringPtr reads a nullable string. Missing and null both yield nil.
func fieldStringPtr(id string, fields map[string]any, key string) (*string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fieldError(id, key, v)
	}
	return &s, nil
}

func fieldBool(id string, fields map[string]any, key string) (bool, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fieldError(id, key, v)
	}
	return b, nil
}

// fieldInt64 reads an optional integer. Documents that went through JSON carry
// float64 or json.Number, in-process documents carry Go integer types.
func fieldInt64(id string, fields map[string]any, key string) (int64, bool, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int32:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, false, fieldError(id, key, v)
		}
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, fieldError(id, key, v)
		}
		return i, true, nil
	default:
		return 0, false, fieldError(id, key, v)
	}
}

func fieldTime(id string, fields map[string]any, key string) (time.Time, error) {
	ms, ok, err := fieldInt64(id, fields, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func fieldOrder(id string, fields map[string]any) (Order, error) {
	n, ok, err := fieldInt64(id, fields, FieldOrder)
	if err != nil || !ok {
		return Unordered, err
	}
	return Ordered(int(n)), nil
}

// Millis converts a time to the epoch milliseconds stored in documents.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
