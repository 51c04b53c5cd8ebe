package docstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/tora/internal/notify"
)

func TestSQLiteStore_WriteDuringSubscribeIsDelivered(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tora.db"), nil, nil)
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	// Commit a link after the initial load and deliver its change before the
	// subscription is registered.
	s.afterLoad = func() {
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			return putFields(ctx, tx, "u1", KindLinks, "l1", map[string]any{"title": "Go"})
		})
		assert.Check(t, err)

		done := make(chan struct{})
		go func() {
			s.refresh(notify.Change{UserID: "u1", Kind: string(KindLinks)})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
		}
	}

	sub, err := s.Subscribe(ctx, "u1", KindLinks)
	assert.NilError(t, err)
	defer sub.Unsubscribe()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-sub.C():
			assert.NilError(t, snap.Err)
			if len(snap.Docs) == 1 {
				assert.Equal(t, snap.Docs[0].ID, "l1")
				return
			}
		case <-deadline:
			t.Fatal("subscriber never saw the link written during Subscribe")
		}
	}
}
