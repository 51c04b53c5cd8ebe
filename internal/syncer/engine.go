// Package syncer keeps an in-memory copy of the signed-in user's folders and
// links in step with the document store.
package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/tora/internal/docstore"
	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
	"github.com/nikbrunner/tora/internal/session"
)

// Phase is the engine's lifecycle state.
type Phase int

const (
	// PhaseIdle: nobody signed in, collections empty.
	PhaseIdle Phase = iota
	// PhaseSyncing: signed in, waiting for the first snapshot of each collection.
	PhaseSyncing
	// PhaseLive: both collections delivered at least once.
	PhaseLive
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSyncing:
		return "syncing"
	case PhaseLive:
		return "live"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// SubscriptionError reports a failed live query. It never stops the engine.
type SubscriptionError struct {
	UserID string
	Kind   docstore.Kind
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s for %s: %v", e.Kind, e.UserID, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// State is a point-in-time copy of the engine. Slices are shared and must not be modified.
type State struct {
	UserID  string
	Phase   Phase
	Loading bool
	Folders []model.Folder
	Links   []model.Link
	Version int64
	// LastErr is the most recent subscription error of this session, if any.
	LastErr error
}

// Engine owns the synced collections. Only Run writes them.
type Engine struct {
	store docstore.Store
	log   logrus.FieldLogger

	mu           sync.RWMutex
	userID       string
	folders      []model.Folder
	links        []model.Link
	foldersReady bool
	linksReady   bool
	lastErr      error
	version      int64
	view         *projection.View
	changed      chan struct{} // closed and replaced on every change
}

// New creates an idle engine reading from store.
func New(store docstore.Store, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		store:   store,
		log:     log.WithField("component", "syncer"),
		folders: []model.Folder{},
		links:   []model.Link{},
		changed: make(chan struct{}),
	}
}

// Run follows the session on users until ctx is done. Subscription failures
// are logged and never end Run. Run returns nil when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, users <-chan *session.User) error {
	var foldersSub, linksSub *docstore.Subscription
	var foldersC, linksC <-chan docstore.Snapshot

	stop := func() {
		if foldersSub != nil {
			foldersSub.Unsubscribe()
			foldersSub, foldersC = nil, nil
		}
		if linksSub != nil {
			linksSub.Unsubscribe()
			linksSub, linksC = nil, nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			stop()
			e.switchUser("")
			return nil

		case u, ok := <-users:
			if !ok {
				// Provider went away; keep serving the current session.
				users = nil
				continue
			}
			id := ""
			if u != nil {
				id = u.ID
			}
			if id == e.currentID() {
				continue
			}

			// Old channels are dropped before the new user is visible, so no
			// emission of the previous session can be applied after this point.
			stop()
			e.switchUser(id)
			if id == "" {
				continue
			}
			foldersSub = e.subscribe(ctx, id, docstore.KindFolders)
			if foldersSub != nil {
				foldersC = foldersSub.C()
			}
			linksSub = e.subscribe(ctx, id, docstore.KindLinks)
			if linksSub != nil {
				linksC = linksSub.C()
			}

		case snap, ok := <-foldersC:
			if !ok {
				foldersC = nil
				e.markReady(docstore.KindFolders)
				continue
			}
			e.applyFolders(snap)

		case snap, ok := <-linksC:
			if !ok {
				linksC = nil
				e.markReady(docstore.KindLinks)
				continue
			}
			e.applyLinks(snap)
		}
	}
}

// subscribe opens one live query. A failure is treated like an error emission.
func (e *Engine) subscribe(ctx context.Context, userID string, kind docstore.Kind) *docstore.Subscription {
	sub, err := e.store.Subscribe(ctx, userID, kind)
	if err != nil {
		e.fail(&SubscriptionError{UserID: userID, Kind: kind, Err: err})
		return nil
	}
	return sub
}

func (e *Engine) switchUser(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.userID != "" {
		e.log.WithField("user_id", e.userID).Debug("session ended")
	}
	e.userID = userID
	e.folders = []model.Folder{}
	e.links = []model.Link{}
	e.foldersReady = false
	e.linksReady = false
	e.lastErr = nil
	if userID != "" {
		e.log.WithField("user_id", userID).Debug("session started")
	}
	e.bumpLocked()
}

func (e *Engine) applyFolders(snap docstore.Snapshot) {
	if snap.Err != nil {
		e.fail(&SubscriptionError{UserID: e.currentID(), Kind: docstore.KindFolders, Err: snap.Err})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithFields(logrus.Fields{"user_id": e.userID, "kind": docstore.KindFolders})
	folders := make([]model.Folder, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		f, err := model.DecodeFolder(doc.ID, doc.Fields)
		if err != nil {
			log.WithError(err).Warn("dropping undecodable document")
			continue
		}
		if f.UserID != "" && f.UserID != e.userID {
			log.WithField("doc_id", doc.ID).Warn("dropping document owned by another user")
			continue
		}
		folders = append(folders, f)
	}
	e.folders = folders
	e.foldersReady = true
	e.bumpLocked()
}

func (e *Engine) applyLinks(snap docstore.Snapshot) {
	if snap.Err != nil {
		e.fail(&SubscriptionError{UserID: e.currentID(), Kind: docstore.KindLinks, Err: snap.Err})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.log.WithFields(logrus.Fields{"user_id": e.userID, "kind": docstore.KindLinks})
	links := make([]model.Link, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		l, err := model.DecodeLink(doc.ID, doc.Fields)
		if err != nil {
			log.WithError(err).Warn("dropping undecodable document")
			continue
		}
		if l.UserID != "" && l.UserID != e.userID {
			log.WithField("doc_id", doc.ID).Warn("dropping document owned by another user")
			continue
		}
		links = append(links, l)
	}
	e.links = links
	e.linksReady = true
	e.bumpLocked()
}

// fail records a subscription error. The collection keeps its last good
// contents and counts as ready so loading can finish.
func (e *Engine) fail(err *SubscriptionError) {
	e.log.WithError(err.Err).WithFields(logrus.Fields{
		"user_id": err.UserID,
		"kind":    err.Kind,
	}).Error("subscription failed")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
	e.setReadyLocked(err.Kind)
	e.bumpLocked()
}

func (e *Engine) markReady(kind docstore.Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setReadyLocked(kind)
	e.bumpLocked()
}

func (e *Engine) setReadyLocked(kind docstore.Kind) {
	switch kind {
	case docstore.KindFolders:
		e.foldersReady = true
	case docstore.KindLinks:
		e.linksReady = true
	}
}

func (e *Engine) bumpLocked() {
	e.version++
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *Engine) stateLocked() State {
	loading := e.userID != "" && !(e.foldersReady && e.linksReady)
	phase := PhaseLive
	switch {
	case e.userID == "":
		phase = PhaseIdle
	case loading:
		phase = PhaseSyncing
	}
	return State{
		UserID:  e.userID,
		Phase:   phase,
		Loading: loading,
		Folders: e.folders,
		Links:   e.links,
		Version: e.version,
		LastErr: e.lastErr,
	}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// View returns the projections of the current state, built once per version.
func (e *Engine) View() *projection.View {
	e.mu.RLock()
	v, version := e.view, e.version
	folders, links := e.folders, e.links
	e.mu.RUnlock()

	if v != nil && v.Version == version {
		return v
	}
	v = projection.NewView(version, folders, links)

	e.mu.Lock()
	if e.version == version {
		e.view = v
	}
	e.mu.Unlock()
	return v
}

// CurrentUserID reports the user whose data is loaded.
func (e *Engine) CurrentUserID() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID, e.userID != ""
}

func (e *Engine) currentID() string {
	id, _ := e.CurrentUserID()
	return id
}

// WaitFor blocks until cond holds for the current state or ctx is done.
func (e *Engine) WaitFor(ctx context.Context, cond func(State) bool) (State, error) {
	for {
		e.mu.RLock()
		st := e.stateLocked()
		changed := e.changed
		e.mu.RUnlock()

		if cond(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

// WaitReady blocks until the engine is not loading.
func (e *Engine) WaitReady(ctx context.Context) error {
	_, err := e.WaitFor(ctx, func(s State) bool { return !s.Loading })
	return err
}

// WaitUser blocks until userID's data has finished loading.
func (e *Engine) WaitUser(ctx context.Context, userID string) (State, error) {
	return e.WaitFor(ctx, func(s State) bool { return s.UserID == userID && !s.Loading })
}

// Changes returns a channel that receives a value after state changes.
// Bursts of changes are coalesced. The channel closes when ctx is done.
func (e *Engine) Changes(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	e.mu.RLock()
	changed := e.changed
	e.mu.RUnlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}

			e.mu.RLock()
			changed = e.changed
			e.mu.RUnlock()

			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}
