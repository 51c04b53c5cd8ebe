package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nikbrunner/tora/internal/notify"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on a SQLite database. Every committed write is
// published on the notifier; every store listening on the same notifier
// reloads the changed collection and pushes it to its subscribers.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	notifier notify.Notifier
	hub      *hub
	log      logrus.FieldLogger

	// refreshMu serializes load-and-push so the last push is the newest state.
	refreshMu sync.Mutex
	stopWatch func()
	closed    atomic.Bool

	// afterLoad runs inside Subscribe between the initial load and
	// registration. Tests use it to land a write in that window.
	afterLoad func()
}

// NewSQLiteStore opens (and migrates) the database at path.
// A nil notifier gets an in-process one.
func NewSQLiteStore(path string, notifier notify.Notifier, log logrus.FieldLogger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.NewLocal()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"busy_timeout(5000)",
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:       db,
		path:     path,
		notifier: notifier,
		hub:      newHub(),
		log:      log.WithField("component", "docstore"),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	s.stopWatch = notifier.Subscribe(s.refresh)
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close ends every subscription and closes the database. The notifier is left open.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.stopWatch()
	s.hub.closeAll()
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}
	return nil
}

// migrateV1 creates the documents table.
func (s *SQLiteStore) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS documents (
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (user_id, kind, id)
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds updated_at, set on every write.
func (s *SQLiteStore) migrateV2() error {
	migration := `
		ALTER TABLE documents ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

func (s *SQLiteStore) Subscribe(ctx context.Context, userID string, kind Kind) (*Subscription, error) {
	if err := checkPartition("subscribe", userID, kind, ""); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	docs, err := s.load(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if s.afterLoad != nil {
		s.afterLoad()
	}
	p := partition{userID, kind}
	sub := s.hub.add(p)
	sub.push(Snapshot{Docs: docs})
	return sub, nil
}

// refresh reloads a changed collection for its subscribers. The watched check
// runs under refreshMu so a Subscribe that loaded before the write is
// registered by the time it is made.
func (s *SQLiteStore) refresh(c notify.Change) {
	p := partition{c.UserID, Kind(c.Kind)}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.closed.Load() || !s.hub.watched(p) {
		return
	}

	docs, err := s.load(context.Background(), p.userID, p.kind)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": p.userID,
			"kind":    p.kind,
		}).Warn("reload after change failed")
		s.hub.publish(p, Snapshot{Err: err})
		return
	}
	s.hub.publish(p, Snapshot{Docs: docs})
}

func (s *SQLiteStore) List(ctx context.Context, userID string, kind Kind) ([]Document, error) {
	if err := checkPartition("list", userID, kind, ""); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.load(ctx, userID, kind)
}

func (s *SQLiteStore) load(ctx context.Context, userID string, kind Kind) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data
		FROM documents
		WHERE user_id = ? AND kind = ?
		ORDER BY id
	`, userID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		fields, err := decodeData(data)
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", kind, id, err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string, kind Kind, id string) (Document, error) {
	if err := checkPartition("get", userID, kind, id); err != nil {
		return Document{}, err
	}
	if s.closed.Load() {
		return Document{}, ErrClosed
	}

	fields, err := getFields(ctx, s.db, userID, kind, id)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID string, kind Kind, fields map[string]any) (string, error) {
	id := uuid.New().String()
	err := s.write(ctx, "create", userID, kind, id, func(tx *sql.Tx) error {
		return putFields(ctx, tx, userID, kind, id, fields)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Set(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error {
	return s.write(ctx, "set", userID, kind, id, func(tx *sql.Tx) error {
		return putFields(ctx, tx, userID, kind, id, fields)
	})
}

func (s *SQLiteStore) Update(ctx context.Context, userID string, kind Kind, id string, fields map[string]any) error {
	return s.write(ctx, "update", userID, kind, id, func(tx *sql.Tx) error {
		return updateFields(ctx, tx, userID, kind, id, fields)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string, kind Kind, id string) error {
	return s.write(ctx, "delete", userID, kind, id, func(tx *sql.Tx) error {
		return deleteDoc(ctx, tx, userID, kind, id)
	})
}

// write runs fn in a transaction, then announces the change.
func (s *SQLiteStore) write(ctx context.Context, op, userID string, kind Kind, id string, fn func(*sql.Tx) error) error {
	if err := checkPartition(op, userID, kind, id); err != nil {
		return err
	}
	if s.closed.Load() {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: ErrClosed}
	}

	if err := s.inTx(ctx, fn); err != nil {
		return &WriteError{Op: op, Kind: kind, ID: id, Err: err}
	}
	s.announce(ctx, userID, kind)
	return nil
}

// BatchWrite applies every op in one transaction. Any failing op rolls back all of them.
func (s *SQLiteStore) BatchWrite(ctx context.Context, userID string, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if userID == "" {
		return &WriteError{Op: "batch", Err: ErrNoPartition}
	}
	if s.closed.Load() {
		return &WriteError{Op: "batch", Err: ErrClosed}
	}

	touched := map[Kind]bool{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, op := range ops {
			if !op.Kind.Valid() {
				return &WriteError{Op: op.Type.String(), Kind: op.Kind, ID: op.ID, Err: ErrUnknownKind}
			}
			var err error
			switch op.Type {
			case OpUpdate:
				err = updateFields(ctx, tx, userID, op.Kind, op.ID, op.Fields)
			case OpDelete:
				err = deleteDoc(ctx, tx, userID, op.Kind, op.ID)
			default:
				err = fmt.Errorf("unsupported op %s", op.Type)
			}
			if err != nil {
				return &WriteError{Op: op.Type.String(), Kind: op.Kind, ID: op.ID, Err: err}
			}
			touched[op.Kind] = true
		}
		return nil
	})
	if err != nil {
		var we *WriteError
		if errors.As(err, &we) {
			return we
		}
		return &WriteError{Op: "batch", Err: err}
	}

	for kind := range touched {
		s.announce(ctx, userID, kind)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// announce publishes a committed change. The write already succeeded, so a
// publish failure is only logged.
func (s *SQLiteStore) announce(ctx context.Context, userID string, kind Kind) {
	c := notify.Change{UserID: userID, Kind: string(kind)}
	if err := s.notifier.Publish(ctx, c); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"kind":    kind,
		}).Warn("publish change failed")
	}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getFields(ctx context.Context, q querier, userID string, kind Kind, id string) (map[string]any, error) {
	var data string
	err := q.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE user_id = ? AND kind = ? AND id = ?
	`, userID, string(kind), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeData(data)
}

func putFields(ctx context.Context, tx *sql.Tx, userID string, kind Kind, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (user_id, kind, id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, userID, string(kind), id, string(data), time.Now().UTC().Format(time.RFC3339))
	return err
}

func updateFields(ctx context.Context, tx *sql.Tx, userID string, kind Kind, id string, fields map[string]any) error {
	existing, err := getFields(ctx, tx, userID, kind, id)
	if err != nil {
		return err
	}
	return putFields(ctx, tx, userID, kind, id, mergeFields(existing, fields))
}

func deleteDoc(ctx context.Context, tx *sql.Tx, userID string, kind Kind, id string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM documents WHERE user_id = ? AND kind = ? AND id = ?
	`, userID, string(kind), id)
	return err
}

// decodeData keeps numbers as json.Number so integers survive unchanged.
func decodeData(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// DefaultSQLitePath returns the default database path: ~/.config/tora/tora.db
func DefaultSQLitePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tora", "tora.db"), nil
}
