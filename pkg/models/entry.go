package models

import (
	"fmt"
	"time"
)

// Entry represents a single journal entry owned by a user.
type Entry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;not null;size:36" json:"user_id"`
	Title     string    `gorm:"not null;size:255" json:"title"`
	Body      string    `gorm:"type:text" json:"body,omitempty"`
	Mood      string    `gorm:"size:50" json:"mood,omitempty"`
	EntryDate time.Time `gorm:"index;not null" json:"entry_date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Entry.
func (Entry) TableName() string {
	return "entries"
}

// Validate checks if the entry has valid configuration.
func (e *Entry) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// AllModels returns every model registered for schema migration.
func AllModels() []any {
	return []any{
		&User{},
		&Entry{},
	}
}
