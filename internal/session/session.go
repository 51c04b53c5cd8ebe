// Package session tracks the signed-in user.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotSignedIn is returned by profile changes while nobody is signed in.
var ErrNotSignedIn = errors.New("not signed in")

// User is the signed-in identity. Only ID scopes data; the rest is display info.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Provider reports the current user and every change to it.
type Provider interface {
	// Watch delivers the current user first, then every sign-in, sign-out and
	// profile change. nil means signed out. The channel closes when ctx ends.
	Watch(ctx context.Context) <-chan *User
	CurrentUserID() (string, bool)
}

var _ Provider = (*Manual)(nil)

// Manual is an in-process Provider driven by explicit calls.
type Manual struct {
	mu       sync.Mutex
	user     *User
	watchers map[chan *User]struct{}
}

// NewManual creates a signed-out provider.
func NewManual() *Manual {
	return &Manual{watchers: make(map[chan *User]struct{})}
}

// SignIn replaces the current user.
func (m *Manual) SignIn(u User) {
	m.set(&u)
}

// SignOut clears the current user.
func (m *Manual) SignOut() {
	m.set(nil)
}

// UpdateProfile changes the display fields of the signed-in user.
func (m *Manual) UpdateProfile(displayName, avatarURL string) error {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return ErrNotSignedIn
	}
	u := *m.user
	m.mu.Unlock()

	u.DisplayName = displayName
	u.AvatarURL = avatarURL
	m.set(&u)
	return nil
}

// Current returns a copy of the signed-in user, or nil.
func (m *Manual) Current() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

func (m *Manual) CurrentUserID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return "", false
	}
	return m.user.ID, true
}

func (m *Manual) Watch(ctx context.Context) <-chan *User {
	ch := make(chan *User, 1)

	m.mu.Lock()
	ch <- copyUser(m.user)
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch
}

// set stores u and hands it to every watcher. A watcher that has not read the
// previous value only sees the newest one.
func (m *Manual) set(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
	for ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- copyUser(u)
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
