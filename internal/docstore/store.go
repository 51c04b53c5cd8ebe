// Package docstore is the adapter between the app and the per-user document store.
// Every user owns a partition holding one collection per Kind; collections hold
// schemaless documents addressed by id.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a collection inside a user's partition.
type Kind string

const (
	KindFolders Kind = "folders"
	KindLinks   Kind = "links"
	KindProfile Kind = "profile"
)

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	switch k {
	case KindFolders, KindLinks, KindProfile:
		return true
	}
	return false
}

var (
	ErrNotFound    = errors.New("document not found")
	ErrNoPartition = errors.New("missing user partition")
	ErrUnknownKind = errors.New("unknown collection")
	ErrClosed      = errors.New("store closed")
)

// Document is one stored record. Fields use the camelCase keys of the model package.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is one emission of a live subscription: either the complete current
// collection or an error signal. An error does not end the subscription.
type Snapshot struct {
	Docs []Document
	Err  error
}

// OpType is the kind of write inside a batch.
type OpType int

const (
	OpUpdate OpType = iota
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(t))
	}
}

// Op is one write of a BatchWrite.
type Op struct {
	Type   OpType
	Kind   Kind
	ID     string
	Fields map[string]any
}

// UpdateOp merges fields into an existing document.
func UpdateOp(kind Kind, id string, fields map[string]any) Op {
	return Op{Type: OpUpdate, Kind: kind, ID: id, Fields: fields}
}

// DeleteOp removes a document. Deleting a missing document is not an error.
func DeleteOp(kind Kind, id string) Op {
	return Op{Type: OpDelete, Kind: kind, ID: id}
}

// WriteError reports a failed write or batch.
type WriteError struct {
	Op   string
	Kind Kind
	ID   string
	Err  error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store is the remote document store. Implementations are safe for concurrent use.
type Store interface {
	// Subscribe opens a live query over one collection. The current contents are
	// delivered first, then the full collection again after every change.
	Subscribe(ctx context.Context, userID string, kind Kind) (*Subscription, error)
	List(ctx context.Context, userID string, kind Kind) ([]Document, error)
	Get(ctx context.Context, userID string, kind Kind, id string) (Document, error)
	// Create stores a new document and returns its generated id.
	Create(ctx context.Context, userID string, kind Kind, fields map[string]any) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error
	Delete(ctx context.Context, userID string, kind Kind, id string) error
	// BatchWrite applies ops atomically: all of them or none.
	BatchWrite(ctx context.Context, userID string, ops []Op) error
	Close() error
}

func checkPartition(op, userID string, kind Kind, id string) error {
	if userID == "" {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: ErrNoPartition}
	}
	if !kind.Valid() {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: ErrUnknownKind}
	}
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func mergeFields(base, patch map[string]any) map[string]any {
	out := cloneFields(base)
	for k, v := range patch {
		out[k] = v
	}
	return out
}
