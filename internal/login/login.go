// Package login holds the login form state and its submit logic.
//
// A locally cached user list allows an early "incorrect PIN" answer without
// a round trip, but the cache can be stale, so a PIN that passes the local
// check is still sent to the backend, which has the final say.
package login

import (
	"context"
	"errors"
	"strings"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/models"
	"go.uber.org/zap"
)

// Form messages.
const (
	MsgMissingFields = "select a user and enter the PIN"
	MsgPinFormat     = "the PIN must be 4 digits"
	MsgIncorrectPin  = "incorrect PIN"
)

// PinLength is the number of digits in a PIN.
const PinLength = 4

// ValidationError is reported inline on the form.
type ValidationError struct {
	Field   string // "username", "pin" or empty for the whole form
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Authenticator checks credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, username, pin string) (*api.LoginResponse, error)
}

// CredentialSaver persists accepted credentials. *session.Store satisfies it.
type CredentialSaver interface {
	SaveCredentials(username, pin string) error
}

// PinLookup returns a cached PIN. *session.UserCache satisfies it.
type PinLookup interface {
	Lookup(username string) (pin string, ok bool, err error)
}

// Form is the login form. Error holds the message shown after a failed
// Submit and is cleared on the next attempt.
type Form struct {
	Username string
	Pin      string
	Error    string

	auth  Authenticator
	saver CredentialSaver
	cache PinLookup
	log   *zap.Logger
}

// NewForm creates an empty form. cache may be nil.
func NewForm(auth Authenticator, saver CredentialSaver, cache PinLookup) *Form {
	return &Form{auth: auth, saver: saver, cache: cache, log: zap.NewNop()}
}

// WithLogger sets the form's logger.
func (f *Form) WithLogger(log *zap.Logger) *Form {
	if log != nil {
		f.log = log
	}
	return f
}

// Submit validates the form, checks the credentials with the backend and
// persists them on success. Nothing is persisted on failure.
func (f *Form) Submit(ctx context.Context) error {
	f.Error = ""
	f.Username = strings.TrimSpace(f.Username)

	if f.Username == "" || f.Pin == "" {
		return f.reject(&ValidationError{Message: MsgMissingFields}, false)
	}
	if !ValidPin(f.Pin) {
		return f.reject(&ValidationError{Field: "pin", Message: MsgPinFormat}, true)
	}

	if f.cache != nil {
		cached, ok, err := f.cache.Lookup(f.Username)
		switch {
		case err != nil:
			f.log.Debug("user cache lookup failed", zap.String("username", f.Username), zap.Error(err))
		case ok && cached != f.Pin:
			return f.reject(&ValidationError{Field: "pin", Message: MsgIncorrectPin}, true)
		}
	}

	if _, err := f.auth.Login(ctx, f.Username, f.Pin); err != nil {
		var httpErr *api.HTTPError
		if errors.As(err, &httpErr) && httpErr.Unauthorized() {
			return f.reject(&ValidationError{Field: "pin", Message: MsgIncorrectPin}, true)
		}
		f.Error = api.UserMessage(err)
		return err
	}

	if err := f.saver.SaveCredentials(f.Username, f.Pin); err != nil {
		f.Error = api.UserMessage(err)
		return err
	}
	f.log.Info("logged in", zap.String("username", f.Username))
	return nil
}

// reject records a validation failure, clearing the PIN when asked. The
// username is always kept.
func (f *Form) reject(err *ValidationError, clearPin bool) error {
	f.Error = err.Message
	if clearPin {
		f.Pin = ""
	}
	return err
}

// ValidPin reports whether pin is exactly PinLength ASCII digits.
func ValidPin(pin string) bool {
	if len(pin) != PinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UserLister fetches the backend user list.
type UserLister interface {
	Users(ctx context.Context) ([]api.User, error)
}

// CacheReplacer stores a fresh user list. *session.UserCache satisfies it.
type CacheReplacer interface {
	Replace(users []models.CachedUser) error
}

// SyncUsers fetches the user list and stores it in cache. It returns the
// usernames in backend order for the user picker.
func SyncUsers(ctx context.Context, lister UserLister, cache CacheReplacer) ([]string, error) {
	users, err := lister.Users(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]models.CachedUser, 0, len(users))
	names := make([]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, models.CachedUser{Username: u.Username, Pin: u.Pin})
		names = append(names, u.Username)
	}
	if err := cache.Replace(rows); err != nil {
		return nil, err
	}
	return names, nil
}
