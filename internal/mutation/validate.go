package mutation

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/nikbrunner/tora/internal/model"
)

// MaxNameLength bounds folder names and link titles.
const MaxNameLength = 200

// ErrValidation matches every ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError is returned before any store call when input is rejected.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-.]{3,}$`)

// notBlank rejects strings made only of whitespace. Nil and empty values are
// left to Required and NilOrNotEmpty.
var notBlank = validation.By(func(value any) error {
	v, _ := validation.Indirect(value)
	s, ok := v.(string)
	if ok && s != "" && strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
})

func platformValues() []any {
	out := make([]any, len(model.Platforms))
	for i, p := range model.Platforms {
		out[i] = p
	}
	return out
}

func validateNewFolder(p *model.NewFolderParams) error {
	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.Name, validation.Required, notBlank, validation.Length(1, MaxNameLength)),
	))
}

func validateFolderUpdate(u *model.FolderUpdate) error {
	return invalid(validation.ValidateStruct(u,
		validation.Field(&u.Name, validation.NilOrNotEmpty, notBlank, validation.Length(1, MaxNameLength)),
	))
}

func validateNewLink(p *model.NewLinkParams) error {
	urlRule := validation.Rule(is.URL)
	if p.Platform.IsPhone() {
		urlRule = validation.Match(phonePattern).Error("must be a phone number")
	}

	return invalid(validation.ValidateStruct(p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.Title, validation.Required, notBlank, validation.Length(1, MaxNameLength)),
		validation.Field(&p.URL, validation.Required, notBlank, urlRule),
		validation.Field(&p.Platform, validation.In(platformValues()...)),
		validation.Field(&p.FolderID, validation.NilOrNotEmpty),
	))
}
