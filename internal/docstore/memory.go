package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Writes are delivered to subscribers
// synchronously, before the write call returns.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[partition]map[string]map[string]any
	hub    *hub
	fault  func(op string) error
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[partition]map[string]map[string]any),
		hub:  newHub(),
	}
}

// SetFault installs a hook consulted before every write. A non-nil return fails
// the write with a WriteError wrapping it. Ops are "create", "set", "update",
// "delete" and "batch". Pass nil to clear.
func (s *MemoryStore) SetFault(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// EmitError delivers an error snapshot to every subscriber of the collection.
func (s *MemoryStore) EmitError(userID string, kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.publish(partition{userID, kind}, Snapshot{Err: err})
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID string, kind Kind) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPartition("subscribe", userID, kind, ""); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	p := partition{userID, kind}
	sub := s.hub.add(p)
	sub.push(Snapshot{Docs: s.snapshotLocked(p)})
	return sub, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string, kind Kind) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPartition("list", userID, kind, ""); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.snapshotLocked(partition{userID, kind}), nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string, kind Kind, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := checkPartition("get", userID, kind, id); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	fields, ok := s.docs[partition{userID, kind}][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (s *MemoryStore) Create(ctx context.Context, userID string, kind Kind, fields map[string]any) (string, error) {
	id := uuid.New().String()
	err := s.write(ctx, "create", userID, kind, id, func(coll map[string]map[string]any) error {
		coll[id] = cloneFields(fields)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error {
	return s.write(ctx, "set", userID, kind, id, func(coll map[string]map[string]any) error {
		coll[id] = cloneFields(fields)
		return nil
	})
}

func (s *MemoryStore) Update(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error {
	return s.write(ctx, "update", userID, kind, id, func(coll map[string]map[string]any) error {
		existing, ok := coll[id]
		if !ok {
			return ErrNotFound
		}
		coll[id] = mergeFields(existing, fields)
		return nil
	})
}

func (s *MemoryStore) Delete(ctx context.Context, userID string, kind Kind, id string) error {
	return s.write(ctx, "delete", userID, kind, id, func(coll map[string]map[string]any) error {
		delete(coll, id)
		return nil
	})
}

// write applies fn to one collection under the lock and notifies its subscribers.
func (s *MemoryStore) write(ctx context.Context, op, userID string, kind Kind, id string, fn func(map[string]map[string]any) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPartition(op, userID, kind, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: ErrClosed}
	}
	if s.fault != nil {
		if err := s.fault(op); err != nil {
			return &WriteError{Op: op, Kind: kind, ID: id, Err: err}
		}
	}

	p := partition{userID, kind}
	coll := s.docs[p]
	if coll == nil {
		coll = make(map[string]map[string]any)
	}
	if err := fn(coll); err != nil {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: err}
	}
	s.docs[p] = coll

	s.hub.publish(p, Snapshot{Docs: s.snapshotLocked(p)})
	return nil
}

func (s *MemoryStore) BatchWrite(ctx context.Context, userID string, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	if userID == "" {
		return &WriteError{Op: "batch", Err: ErrNoPartition}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &WriteError{Op: "batch", Err: ErrClosed}
	}
	if s.fault != nil {
		if err := s.fault("batch"); err != nil {
			return &WriteError{Op: "batch", Err: err}
		}
	}

	// Apply to copies so a failing op leaves every collection untouched.
	staged := make(map[partition]map[string]map[string]any)
	for _, op := range ops {
		if !op.Kind.Valid() {
			return &WriteError{Op: op.Type.String(), Kind: op.Kind, ID: op.ID, Err: ErrUnknownKind}
		}
		p := partition{userID, op.Kind}
		coll, ok := staged[p]
		if !ok {
			coll = make(map[string]map[string]any, len(s.docs[p]))
			for id, fields := range s.docs[p] {
				coll[id] = fields
			}
			staged[p] = coll
		}

		switch op.Type {
		case OpUpdate:
			existing, ok := coll[op.ID]
			if !ok {
				return &WriteError{Op: op.Type.String(), Kind: op.Kind, ID: op.ID, Err: ErrNotFound}
			}
			coll[op.ID] = mergeFields(existing, op.Fields)
		case OpDelete:
			delete(coll, op.ID)
		}
	}

	for p, coll := range staged {
		s.docs[p] = coll
	}
	for p := range staged {
		s.hub.publish(p, Snapshot{Docs: s.snapshotLocked(p)})
	}
	return nil
}

// Close ends every open subscription. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.hub.closeAll()
	return nil
}

func (s *MemoryStore) snapshotLocked(p partition) []Document {
	coll := s.docs[p]
	docs := make([]Document, 0, len(coll))
	for id, fields := range coll {
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	sortDocs(docs)
	return docs
}
