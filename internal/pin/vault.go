package pin

import (
	"context"
	"errors"
	"sync"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

var (
	ErrLocked   = errors.New("vault is locked")
	ErrWrongPin = errors.New("wrong pin")
)

// Vault tracks whether the private links of one user are unlocked.
// It starts locked.
type Vault struct {
	gate Gate

	mu     sync.Mutex
	userID string
}

// NewVault creates a locked vault checking PINs through gate.
func NewVault(gate Gate) *Vault {
	return &Vault{gate: gate}
}

// Unlock opens the vault for userID. When the user has no PIN yet, pin becomes
// the new PIN and created is true.
func (v *Vault) Unlock(ctx context.Context, userID, pin string) (created bool, err error) {
	if err := Validate(pin); err != nil {
		return false, err
	}

	has, err := v.gate.HasPin(ctx, userID)
	if err != nil {
		return false, err
	}
	if !has {
		if err := v.gate.SetPin(ctx, userID, pin); err != nil {
			return false, err
		}
		created = true
	} else {
		ok, err := v.gate.VerifyPin(ctx, userID, pin)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrWrongPin
		}
	}

	v.mu.Lock()
	v.userID = userID
	v.mu.Unlock()
	return created, nil
}

// Lock closes the vault.
func (v *Vault) Lock() {
	v.mu.Lock()
	v.userID = ""
	v.mu.Unlock()
}

// Reset removes the user's PIN and locks the vault; the next Unlock sets a new PIN.
func (v *Vault) Reset(ctx context.Context, userID string) error {
	v.Lock()
	return v.gate.RemovePin(ctx, userID)
}

// Unlocked reports whether the vault is open for userID.
func (v *Vault) Unlocked(userID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return userID != "" && v.userID == userID
}

// PrivateLinks returns the view's private links, or ErrLocked.
func (v *Vault) PrivateLinks(userID string, view *projection.View) ([]model.Link, error) {
	if !v.Unlocked(userID) {
		return nil, ErrLocked
	}
	return view.PrivateLinks, nil
}

// PrivateFolders returns the view's private folders, or ErrLocked.
func (v *Vault) PrivateFolders(userID string, view *projection.View) ([]model.Folder, error) {
	if !v.Unlocked(userID) {
		return nil, ErrLocked
	}
	return view.PrivateFolders, nil
}
