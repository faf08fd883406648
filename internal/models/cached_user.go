package models

import "time"

// CachedUser mirrors an entry of the backend user list. It backs the
// local PIN pre-check only; the backend remains the source of truth.
type CachedUser struct {
	Username  string `gorm:"primaryKey;size:64"`
	Pin       string `gorm:"size:16;not null"`
	FetchedAt time.Time
}
