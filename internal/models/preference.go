package models

import "time"

// Preference is a single key-value entry of persisted client state.
// Entries are grouped by Namespace so a full reset can drop them together.
type Preference struct {
	Namespace string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;column:pref_key;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
