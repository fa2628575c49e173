package store

import (
	"context"
	"time"

	"github.com/daybook-app/daybook-backend/pkg/models"
)

// EntryFilter narrows ListEntries results. Zero fields match everything.
type EntryFilter struct {
	// From filters out entries dated before the given day.
	From time.Time
	// To filters out entries dated after the given day.
	To time.Time
	// Mood filters by exact mood label.
	Mood string
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	return getByField[models.Entry](s.db, ctx, "id", id, models.ErrEntryNotFound)
}

func (s *Store) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]*models.Entry, error) {
	var entries []*models.Entry
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !filter.From.IsZero() {
		q = q.Where("entry_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("entry_date <= ?", filter.To)
	}
	if filter.Mood != "" {
		q = q.Where("mood = ?", filter.Mood)
	}
	if err := q.Order("entry_date DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry *models.Entry) (string, error) {
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now()
	}
	return createWithID(s.db, ctx, entry, func(e *models.Entry, id string) { e.ID = id }, entry.ID, models.ErrDuplicateEntry)
}

func (s *Store) UpdateEntry(ctx context.Context, entry *models.Entry) error {
	var existing models.Entry
	if err := s.db.WithContext(ctx).Where("id = ?", entry.ID).First(&existing).Error; err != nil {
		return convertNotFoundError(err, models.ErrEntryNotFound)
	}

	return s.db.WithContext(ctx).
		Model(&existing).
		Select("Title", "Body", "Mood", "EntryDate").
		Updates(entry).Error
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	return deleteByField[models.Entry](s.db, ctx, "id", id, models.ErrEntryNotFound)
}
