// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

// GratitudeStore provides gratitude entry operations using GORM.
type GratitudeStore struct {
	db *gorm.DB
}

// NewGratitudeStore creates a new gratitude entry store.
func NewGratitudeStore(store *Store) *GratitudeStore {
	return &GratitudeStore{db: store.DB}
}

// AddGratitudeEntry stores a gratitude entry with blank items removed.
func (s *GratitudeStore) AddGratitudeEntry(ctx context.Context, id *models.Identity, entry models.GratitudeEntry) (string, error) {
	const op = "add gratitude entry"
	if err := requireIdentity(op, id); err != nil {
		return "", err
	}

	row := &GratitudeEntry{
		UserID:     id.UID,
		Date:       entry.Date,
		Items:      datatypes.JSONSlice[string](models.CleanItems(entry.Items)),
		Mood:       entry.Mood,
		Reflection: entry.Reflection,
		Timestamp:  entry.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", mapError(op, err)
	}
	return row.ID, nil
}

// ListGratitudeEntries returns the identity's gratitude entries, newest first.
func (s *GratitudeStore) ListGratitudeEntries(ctx context.Context, id *models.Identity) ([]models.GratitudeEntry, error) {
	const op = "list gratitude entries"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}

	var rows []GratitudeEntry
	if err := s.db.WithContext(ctx).Scopes(forUser(id.UID), newestFirst).Find(&rows).Error; err != nil {
		return nil, mapError(op, err)
	}

	out := make([]models.GratitudeEntry, len(rows))
	for i := range rows {
		out[i] = models.GratitudeEntry{
			ID:         rows[i].ID,
			Date:       rows[i].Date,
			Items:      nonNil(rows[i].Items),
			Mood:       rows[i].Mood,
			Reflection: rows[i].Reflection,
			Timestamp:  rows[i].Timestamp,
		}
	}
	return out, nil
}

// UpdateGratitudeEntry applies the non-nil fields of patch.
// The timestamp only moves when the patch carries one.
func (s *GratitudeStore) UpdateGratitudeEntry(ctx context.Context, id *models.Identity, entryID string, patch models.GratitudePatch) error {
	const op = "update gratitude entry"
	if err := requireIdentity(op, id); err != nil {
		return err
	}

	updates := map[string]any{}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.Items != nil {
		updates["items"] = datatypes.JSONSlice[string](models.CleanItems(patch.Items))
	}
	if patch.Mood != nil {
		updates["mood"] = *patch.Mood
	}
	if patch.Reflection != nil {
		updates["reflection"] = *patch.Reflection
	}
	if patch.Timestamp != nil {
		ts := patch.Timestamp.UTC()
		updates["timestamp"] = ts
		updates["timestamp_epoch"] = ts.UnixMilli()
	}

	if len(updates) == 0 {
		// Nothing to write, but an unknown id is still an error.
		var count int64
		err := s.db.WithContext(ctx).Model(&GratitudeEntry{}).
			Scopes(forUser(id.UID)).
			Where("id = ?", entryID).
			Count(&count).Error
		if err != nil {
			return mapError(op, err)
		}
		if count == 0 {
			return ledger.NotFound(op, entryID)
		}
		return nil
	}

	res := s.db.WithContext(ctx).Model(&GratitudeEntry{}).
		Scopes(forUser(id.UID)).
		Where("id = ?", entryID).
		Updates(updates)
	if res.Error != nil {
		return mapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.NotFound(op, entryID)
	}
	return nil
}

// DeleteGratitudeEntry removes a gratitude entry owned by the identity.
func (s *GratitudeStore) DeleteGratitudeEntry(ctx context.Context, id *models.Identity, entryID string) error {
	return deleteOwned(ctx, s.db, "delete gratitude entry", id, entryID, &GratitudeEntry{})
}
