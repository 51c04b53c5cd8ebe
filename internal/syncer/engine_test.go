package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/nikbrunner/tora/internal/docstore"
	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/session"
	"github.com/nikbrunner/tora/internal/syncer"
)

// recordingStore hands out real MemoryStore subscriptions and remembers them.
// gate, when set, blocks Subscribe for that kind until closed. failKind makes
// Subscribe fail for that kind.
type recordingStore struct {
	*docstore.MemoryStore

	mu       sync.Mutex
	subs     map[string][]*docstore.Subscription
	gate     map[docstore.Kind]chan struct{}
	failKind docstore.Kind
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: docstore.NewMemoryStore(),
		subs:        map[string][]*docstore.Subscription{},
		gate:        map[docstore.Kind]chan struct{}{},
	}
}

func (s *recordingStore) Subscribe(ctx context.Context, userID string, kind docstore.Kind) (*docstore.Subscription, error) {
	s.mu.Lock()
	gate := s.gate[kind]
	fail := s.failKind == kind
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("permission denied")
	}
	sub, err := s.MemoryStore.Subscribe(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.subs[userID] = append(s.subs[userID], sub)
	s.mu.Unlock()
	return sub, nil
}

func (s *recordingStore) subscriptions(userID string) []*docstore.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*docstore.Subscription(nil), s.subs[userID]...)
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func seed(t *testing.T, s docstore.Store, userID string, kind docstore.Kind, fields map[string]any) string {
	t.Helper()
	id, err := s.Create(context.Background(), userID, kind, fields)
	assert.NilError(t, err)
	return id
}

func folderFields(userID, name string) map[string]any {
	return model.NewFolder(model.NewFolderParams{Name: name, UserID: userID}, time.Now()).Fields()
}

func linkFields(userID, title string) map[string]any {
	return model.NewLink(model.NewLinkParams{Title: title, URL: "https://example.com/" + title, UserID: userID}, time.Now()).Fields()
}

// startEngine runs an engine driven by a Manual provider until the test ends.
func startEngine(t *testing.T, store docstore.Store) (*syncer.Engine, *session.Manual) {
	t.Helper()
	engine := syncer.New(store, quietLogger())
	provider := session.NewManual()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, provider.Watch(ctx)) }()

	t.Cleanup(func() {
		cancel()
		assert.NilError(t, <-done)
	})
	return engine, provider
}

func waitUser(t *testing.T, engine *syncer.Engine, userID string) syncer.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := engine.WaitUser(ctx, userID)
	assert.NilError(t, err)
	return st
}

func TestEngine_StartsIdle(t *testing.T) {
	engine := syncer.New(docstore.NewMemoryStore(), quietLogger())

	st := engine.State()
	assert.Equal(t, st.Phase, syncer.PhaseIdle)
	assert.Assert(t, !st.Loading)
	assert.Check(t, is.Len(st.Folders, 0))
	assert.Check(t, is.Len(st.Links, 0))

	_, ok := engine.CurrentUserID()
	assert.Assert(t, !ok)
}

func TestEngine_SignInGoesLive(t *testing.T) {
	store := docstore.NewMemoryStore()
	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "Design"))
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "go"))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})

	st := waitUser(t, engine, "u1")
	assert.Equal(t, st.Phase, syncer.PhaseLive)
	assert.Check(t, is.Len(st.Folders, 1))
	assert.Check(t, is.Len(st.Links, 1))
	assert.Equal(t, st.Folders[0].Name, "Design")
}

func TestEngine_LoadingUntilBothReady(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "Design"))
	gate := make(chan struct{})
	store.gate[docstore.KindLinks] = gate

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		st := engine.State()
		if st.UserID != "u1" {
			return poll.Continue("session not picked up")
		}
		if !st.Loading || st.Phase != syncer.PhaseSyncing {
			return poll.Error(errors.New("loading finished before links were delivered"))
		}
		return poll.Success()
	}, poll.WithTimeout(2*time.Second))

	close(gate)
	st := waitUser(t, engine, "u1")
	assert.Equal(t, st.Phase, syncer.PhaseLive)
	assert.Check(t, is.Len(st.Folders, 1))
}

func TestEngine_SubscribeFailureStillFinishesLoading(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "Design"))
	store.failKind = docstore.KindLinks

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})

	st := waitUser(t, engine, "u1")
	assert.Check(t, is.Len(st.Folders, 1))
	assert.Check(t, is.Len(st.Links, 0))

	var subErr *syncer.SubscriptionError
	assert.Assert(t, errors.As(st.LastErr, &subErr))
	assert.Equal(t, subErr.Kind, docstore.KindLinks)
}

func TestEngine_ErrorKeepsLastKnownGood(t *testing.T) {
	store := docstore.NewMemoryStore()
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "kept"))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	waitUser(t, engine, "u1")

	store.EmitError("u1", docstore.KindLinks, errors.New("network down"))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if engine.State().LastErr == nil {
			return poll.Continue("error not applied yet")
		}
		return poll.Success()
	}, poll.WithTimeout(2*time.Second))

	st := engine.State()
	assert.Check(t, is.Len(st.Links, 1))
	assert.Equal(t, st.Phase, syncer.PhaseLive)

	// The subscription stays open after an error.
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "after"))
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if n := len(engine.State().Links); n != 2 {
			return poll.Continue("have %d links", n)
		}
		return poll.Success()
	}, poll.WithTimeout(2*time.Second))
}

func TestEngine_LiveUpdates(t *testing.T) {
	store := docstore.NewMemoryStore()
	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	before := waitUser(t, engine, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := engine.Changes(ctx)

	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "New"))

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		st := engine.State()
		if len(st.Folders) != 1 {
			return poll.Continue("folder not synced")
		}
		if st.Version <= before.Version {
			return poll.Error(errors.New("version did not advance"))
		}
		return poll.Success()
	}, poll.WithTimeout(2*time.Second))
}

func TestEngine_DropsForeignAndBrokenDocuments(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "mine"))
	seed(t, store, "u1", docstore.KindLinks, linkFields("u2", "planted"))
	assert.NilError(t, store.Set(ctx, "u1", docstore.KindLinks, "broken", map[string]any{"title": 42}))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})

	st := waitUser(t, engine, "u1")
	assert.Assert(t, is.Len(st.Links, 1))
	assert.Equal(t, st.Links[0].Title, "mine")
}

func TestEngine_SwitchUserNeverLeaks(t *testing.T) {
	store := newRecordingStore()
	u1Folder := seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "u1 folder"))
	u1Link := seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "u1 link"))
	seed(t, store, "u2", docstore.KindLinks, linkFields("u2", "u2 link"))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	waitUser(t, engine, "u1")

	// Watch every state while switching; u1 documents must never appear under u2.
	ctx, cancel := context.WithCancel(context.Background())
	leaked := make(chan string, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			st := engine.State()
			if st.UserID != "u2" {
				continue
			}
			for _, f := range st.Folders {
				if f.ID == u1Folder {
					leaked <- f.ID
					return
				}
			}
			for _, l := range st.Links {
				if l.ID == u1Link {
					leaked <- l.ID
					return
				}
			}
		}
	}()

	provider.SignIn(session.User{ID: "u2"})
	st := waitUser(t, engine, "u2")

	// Writes to u1 after the switch must not reach the u2 view either.
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "late"))
	time.Sleep(20 * time.Millisecond)

	cancel()
	wg.Wait()
	select {
	case id := <-leaked:
		t.Fatalf("u1 document %s visible in u2 view", id)
	default:
	}

	assert.Check(t, is.Len(st.Folders, 0))
	assert.Assert(t, is.Len(st.Links, 1))
	assert.Equal(t, st.Links[0].Title, "u2 link")
	assert.Check(t, is.Len(engine.State().Links, 1))

	// Both u1 subscriptions were closed.
	u1Subs := store.subscriptions("u1")
	assert.Assert(t, is.Len(u1Subs, 2))
	for _, sub := range u1Subs {
		for range sub.C() {
		}
	}
}

func TestEngine_SignOutClears(t *testing.T) {
	store := docstore.NewMemoryStore()
	seed(t, store, "u1", docstore.KindLinks, linkFields("u1", "go"))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	waitUser(t, engine, "u1")

	provider.SignOut()
	st := waitUser(t, engine, "")
	assert.Equal(t, st.Phase, syncer.PhaseIdle)
	assert.Check(t, is.Len(st.Links, 0))
	assert.Assert(t, !st.Loading)
}

func TestEngine_ProfileChangeKeepsSubscriptions(t *testing.T) {
	store := newRecordingStore()
	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	waitUser(t, engine, "u1")

	assert.NilError(t, provider.UpdateProfile("Ada", ""))
	time.Sleep(20 * time.Millisecond)

	assert.Check(t, is.Len(store.subscriptions("u1"), 2))
}

func TestEngine_ViewIsMemoized(t *testing.T) {
	store := docstore.NewMemoryStore()
	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "A"))

	engine, provider := startEngine(t, store)
	provider.SignIn(session.User{ID: "u1"})
	waitUser(t, engine, "u1")

	v1 := engine.View()
	assert.Assert(t, engine.View() == v1)
	assert.Check(t, is.Len(v1.PublicFolders, 1))

	seed(t, store, "u1", docstore.KindFolders, folderFields("u1", "B"))
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if v := engine.View(); v == v1 || len(v.PublicFolders) != 2 {
			return poll.Continue("view not rebuilt")
		}
		return poll.Success()
	}, poll.WithTimeout(2*time.Second))
}

func TestEngine_RunEndsOnCancel(t *testing.T) {
	store := docstore.NewMemoryStore()
	engine := syncer.New(store, quietLogger())
	users := make(chan *session.User, 1)
	users <- &session.User{ID: "u1"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, users) }()

	waitUser(t, engine, "u1")
	cancel()

	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, engine.State().Phase, syncer.PhaseIdle)
}
