package docstore

import (
	"sort"
	"sync"
)

// Subscription is a live query. C delivers complete snapshots with latest-wins
// semantics: a reader that falls behind only ever sees the newest one.
type Subscription struct {
	ch      chan Snapshot
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	onClose func()
}

func newSubscription(onClose func()) *Subscription {
	return &Subscription{
		ch:      make(chan Snapshot, 1),
		onClose: onClose,
	}
}

// C returns the snapshot channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// push replaces any undelivered snapshot with snap.
func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

type partition struct {
	userID string
	kind   Kind
}

// hub fans snapshots out to the subscriptions of each partition.
type hub struct {
	mu   sync.Mutex
	subs map[partition]map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[partition]map[*Subscription]struct{})}
}

func (h *hub) add(p partition) *Subscription {
	var sub *Subscription
	sub = newSubscription(func() { h.remove(p, sub) })

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[p] == nil {
		h.subs[p] = make(map[*Subscription]struct{})
	}
	h.subs[p][sub] = struct{}{}
	return sub
}

func (h *hub) remove(p partition, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[p], sub)
	if len(h.subs[p]) == 0 {
		delete(h.subs, p)
	}
}

func (h *hub) watched(p partition) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[p]) > 0
}

func (h *hub) publish(p partition, snap Snapshot) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs[p]))
	for sub := range h.subs[p] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.push(snap)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var subs []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// sortDocs orders documents by id, the default order of a collection query.
func sortDocs(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}
