// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

// EntryStore provides mood and journal entry operations using GORM.
type EntryStore struct {
	db *gorm.DB
}

// NewEntryStore creates a new mood/journal entry store.
func NewEntryStore(store *Store) *EntryStore {
	return &EntryStore{db: store.DB}
}

// AddMoodEntry stores a mood check-in.
func (s *EntryStore) AddMoodEntry(ctx context.Context, id *models.Identity, entry models.MoodEntry) (string, error) {
	const op = "add mood entry"
	if err := requireIdentity(op, id); err != nil {
		return "", err
	}

	row := &MoodEntry{
		UserID:    id.UID,
		Date:      entry.Date,
		Mood:      entry.Mood,
		Energy:    entry.Energy,
		Factors:   datatypes.JSONSlice[string](nonNil(entry.Factors)),
		Notes:     entry.Notes,
		Timestamp: entry.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", mapError(op, err)
	}
	return row.ID, nil
}

// ListMoodEntries returns the identity's mood check-ins, newest first.
func (s *EntryStore) ListMoodEntries(ctx context.Context, id *models.Identity) ([]models.MoodEntry, error) {
	const op = "list mood entries"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}

	var rows []MoodEntry
	if err := s.db.WithContext(ctx).Scopes(forUser(id.UID), newestFirst).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}

	out := make([]models.MoodEntry, len(rows))
	for i := range rows {
		out[i] = models.MoodEntry{
			ID:        rows[i].ID,
			Date:      rows[i].Date,
			Mood:      rows[i].Mood,
			Energy:    rows[i].Energy,
			Factors:   nonNil(rows[i].Factors),
			Notes:     rows[i].Notes,
			Timestamp: rows[i].Timestamp,
		}
	}
	return out, nil
}

// DeleteMoodEntry removes a mood check-in owned by the identity.
func (s *EntryStore) DeleteMoodEntry(ctx context.Context, id *models.Identity, entryID string) error {
	return deleteOwned(ctx, s.db, "delete mood entry", id, entryID, &MoodEntry{})
}

// AddJournalEntry stores a journal entry. The word count is recomputed from the text.
func (s *EntryStore) AddJournalEntry(ctx context.Context, id *models.Identity, entry models.JournalEntry) (string, error) {
	const op = "add journal entry"
	if err := requireIdentity(op, id); err != nil {
		return "", err
	}

	row := &JournalEntry{
		UserID:    id.UID,
		Date:      entry.Date,
		Prompt:    entry.Prompt,
		Category:  entry.Category,
		Entry:     entry.Entry,
		WordCount: models.WordCount(entry.Entry),
		Timestamp: entry.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", mapError(op, err)
	}
	return row.ID, nil
}

// ListJournalEntries returns the identity's journal entries, newest first.
func (s *EntryStore) ListJournalEntries(ctx context.Context, id *models.Identity) ([]models.JournalEntry, error) {
	const op = "list journal entries"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}

	var rows []JournalEntry
	if err := s.db.WithContext(ctx).Scopes(forUser(id.UID), newestFirst).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}

	out := make([]models.JournalEntry, len(rows))
	for i := range rows {
		out[i] = models.JournalEntry{
			ID:        rows[i].ID,
			Date:      rows[i].Date,
			Prompt:    rows[i].Prompt,
			Category:  rows[i].Category,
			Entry:     rows[i].Entry,
			WordCount: rows[i].WordCount,
			Timestamp: rows[i].Timestamp,
		}
	}
	return out, nil
}

// DeleteJournalEntry removes a journal entry owned by the identity.
func (s *EntryStore) DeleteJournalEntry(ctx context.Context, id *models.Identity, entryID string) error {
	return deleteOwned(ctx, s.db, "delete journal entry", id, entryID, &JournalEntry{})
}

// deleteOwned deletes entryID from model's table if it belongs to the identity.
// An id outside the identity's collection yields KindNotFound.
func deleteOwned(ctx context.Context, db *gorm.DB, op string, id *models.Identity, entryID string, model any) error {
	if err := requireIdentity(op, id); err != nil {
		return err
	}

	res := db.WithContext(ctx).
		Scopes(forUser(id.UID)).
		Where("id = ?", entryID).
		Delete(model)
	if res.Error != nil {
		return mapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.NotFound(op, entryID)
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
