// Package pin guards the private vault behind a 4-digit PIN.
//
// The stored value is a 32-bit string hash, not a password hash. It keeps a
// casual onlooker out of the private links on a shared screen and is not a
// confidentiality control: anyone with store access can read the links directly.
package pin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf16"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/nikbrunner/tora/internal/docstore"
)

// Length is the number of digits in a PIN.
const Length = 4

// ProfileID is the id of the single document in a user's profile collection.
const ProfileID = "profile"

// FieldVaultPin holds the PIN hash, or null when no PIN is set.
const FieldVaultPin = "vaultPin"

var (
	ErrInvalidPin = errors.New("pin must be exactly 4 digits")
	ErrNoUser     = errors.New("no user")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Gate stores and checks a user's PIN.
type Gate interface {
	HasPin(ctx context.Context, userID string) (bool, error)
	SetPin(ctx context.Context, userID, pin string) error
	VerifyPin(ctx context.Context, userID, pin string) (bool, error)
	RemovePin(ctx context.Context, userID string) error
}

// Validate checks the PIN format.
func Validate(pin string) error {
	err := validation.Validate(pin, validation.Required, validation.Match(pinPattern))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPin, err)
	}
	return nil
}

// Hash renders pin as "pin_" plus the base-36 absolute value of a 31-multiplier
// string hash over its UTF-16 code units, wrapping at 32 bits.
func Hash(pin string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(pin)) {
		h = (h << 5) - h + int32(c)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return "pin_" + strconv.FormatInt(n, 36)
}

var _ Gate = (*StoreGate)(nil)

// StoreGate keeps the PIN hash in the user's profile document.
type StoreGate struct {
	store docstore.Store
}

// NewStoreGate creates a Gate backed by store.
func NewStoreGate(store docstore.Store) *StoreGate {
	return &StoreGate{store: store}
}

func (g *StoreGate) stored(ctx context.Context, userID string) (string, bool, error) {
	if userID == "" {
		return "", false, ErrNoUser
	}
	doc, err := g.store.Get(ctx, userID, docstore.KindProfile, ProfileID)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	hash, _ := doc.Fields[FieldVaultPin].(string)
	return hash, hash != "", nil
}

func (g *StoreGate) HasPin(ctx context.Context, userID string) (bool, error) {
	_, ok, err := g.stored(ctx, userID)
	return ok, err
}

// SetPin creates or replaces the PIN.
func (g *StoreGate) SetPin(ctx context.Context, userID, pin string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := Validate(pin); err != nil {
		return err
	}

	fields := map[string]any{FieldVaultPin: Hash(pin)}
	err := g.store.Update(ctx, userID, docstore.KindProfile, ProfileID, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return g.store.Set(ctx, userID, docstore.KindProfile, ProfileID, fields)
	}
	return err
}

// VerifyPin reports whether pin matches. It is false when no PIN is set.
func (g *StoreGate) VerifyPin(ctx context.Context, userID, pin string) (bool, error) {
	hash, ok, err := g.stored(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return hash == Hash(pin), nil
}

// RemovePin clears the PIN, as done by the "forgot PIN" reset.
func (g *StoreGate) RemovePin(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	err := g.store.Update(ctx, userID, docstore.KindProfile, ProfileID, map[string]any{FieldVaultPin: nil})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}
