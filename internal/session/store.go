// Package session persists the client's connection and credential state and
// derives the screen a client should open on.
package session

import (
	"fmt"
	"strings"

	"github.com/papertoplan/ptp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Namespace groups all preference rows owned by the session store.
const Namespace = "paper_to_plan_prefs"

// Preference keys.
const (
	KeyBaseURL  = "base_url"
	KeyUsername = "username"
	KeyPin      = "pin"
)

// Session is a point-in-time view of the persisted state.
type Session struct {
	BaseURL  string
	Username string
	Pin      string
}

// IsAuthenticated reports whether both username and pin are set.
func (s Session) IsAuthenticated() bool {
	return s.Username != "" && s.Pin != ""
}

// IsConfigured reports whether a backend base URL is set.
func (s Session) IsConfigured() bool {
	return s.BaseURL != ""
}

// Store is the single source of truth for connection and auth state.
type Store struct {
	db        *gorm.DB
	namespace string
}

// NewStore creates a Store over an already migrated database.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("session: db is required")
	}
	return &Store{db: db, namespace: Namespace}, nil
}

// SetBaseURL persists the backend address. Reachability is not checked.
func (s *Store) SetBaseURL(url string) error {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if err := s.put(s.db, KeyBaseURL, url); err != nil {
		return fmt.Errorf("session: set base url: %w", err)
	}
	return nil
}

// BaseURL returns the persisted base URL and whether it is set.
func (s *Store) BaseURL() (string, bool, error) {
	v, ok, err := s.get(KeyBaseURL)
	if err != nil {
		return "", false, fmt.Errorf("session: base url: %w", err)
	}
	return v, ok, nil
}

// SaveCredentials persists username and pin together. Either both rows are
// written or neither is.
func (s *Store) SaveCredentials(username, pin string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.put(tx, KeyUsername, username); err != nil {
			return err
		}
		return s.put(tx, KeyPin, pin)
	})
	if err != nil {
		return fmt.Errorf("session: save credentials: %w", err)
	}
	return nil
}

// Username returns the persisted username and whether it is set.
func (s *Store) Username() (string, bool, error) {
	v, ok, err := s.get(KeyUsername)
	if err != nil {
		return "", false, fmt.Errorf("session: username: %w", err)
	}
	return v, ok, nil
}

// Pin returns the persisted pin and whether it is set.
func (s *Store) Pin() (string, bool, error) {
	v, ok, err := s.get(KeyPin)
	if err != nil {
		return "", false, fmt.Errorf("session: pin: %w", err)
	}
	return v, ok, nil
}

// IsLoggedIn reports whether both username and pin are non-empty.
func (s *Store) IsLoggedIn() (bool, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return false, err
	}
	return snap.IsAuthenticated(), nil
}

// IsConfigured reports whether a base URL is set.
func (s *Store) IsConfigured() (bool, error) {
	_, ok, err := s.BaseURL()
	return ok, err
}

// Logout clears username and pin. The base URL is kept so the device stays
// paired with the same backend.
func (s *Store) Logout() error {
	err := s.db.
		Where("namespace = ? AND pref_key IN ?", s.namespace, []string{KeyUsername, KeyPin}).
		Delete(&models.Preference{}).Error
	if err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// ClearSession removes every key, reverting to first-launch state.
func (s *Store) ClearSession() error {
	err := s.db.Where("namespace = ?", s.namespace).Delete(&models.Preference{}).Error
	if err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// Snapshot reads all session values in a single query.
func (s *Store) Snapshot() (Session, error) {
	var prefs []models.Preference
	if err := s.db.Where("namespace = ?", s.namespace).Find(&prefs).Error; err != nil {
		return Session{}, fmt.Errorf("session: snapshot: %w", err)
	}
	var snap Session
	for _, p := range prefs {
		switch p.Key {
		case KeyBaseURL:
			snap.BaseURL = p.Value
		case KeyUsername:
			snap.Username = p.Value
		case KeyPin:
			snap.Pin = p.Value
		}
	}
	return snap, nil
}

func (s *Store) get(key string) (string, bool, error) {
	var prefs []models.Preference
	err := s.db.Where("namespace = ? AND pref_key = ?", s.namespace, key).Limit(1).Find(&prefs).Error
	if err != nil {
		return "", false, err
	}
	if len(prefs) == 0 || prefs[0].Value == "" {
		return "", false, nil
	}
	return prefs[0].Value, true, nil
}

func (s *Store) put(tx *gorm.DB, key, value string) error {
	pref := models.Preference{Namespace: s.namespace, Key: key, Value: value}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
}
