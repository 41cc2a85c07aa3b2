package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/pkg/models"
)

// CheckIn saves a mood entry and records a mood session.
func (s *Service) CheckIn(ctx context.Context, entry models.MoodEntry) (Result[models.MoodEntry], error) {
	id, err := s.identity()
	if err != nil {
		return Result[models.MoodEntry]{}, err
	}
	if err := entry.Validate(); err != nil {
		return Result[models.MoodEntry]{}, err
	}
	entry.Factors = models.CleanItems(entry.Factors)
	s.stamp(&entry.Date, &entry.Timestamp)

	entryID, err := s.store.AddMoodEntry(ctx, id, entry)
	if err != nil {
		log.Error().Err(err).Str("uid", id.UID).Msg("Error saving mood entry")
		return Result[models.MoodEntry]{}, err
	}
	entry.ID = entryID

	return Result[models.MoodEntry]{
		Entry:   entry,
		Receipt: s.record(ctx, models.ToolMood, MoodToolName, MoodMinutes),
		Message: MoodSaved,
	}, nil
}

// SaveJournal saves a journal entry and records a journaling session.
func (s *Service) SaveJournal(ctx context.Context, entry models.JournalEntry) (Result[models.JournalEntry], error) {
	id, err := s.identity()
	if err != nil {
		return Result[models.JournalEntry]{}, err
	}
	if err := entry.Validate(); err != nil {
		return Result[models.JournalEntry]{}, err
	}
	entry.WordCount = models.WordCount(entry.Entry)
	s.stamp(&entry.Date, &entry.Timestamp)

	entryID, err := s.store.AddJournalEntry(ctx, id, entry)
	if err != nil {
		log.Error().Err(err).Str("uid", id.UID).Msg("Error saving journal entry")
		return Result[models.JournalEntry]{}, err
	}
	entry.ID = entryID

	return Result[models.JournalEntry]{
		Entry:   entry,
		Receipt: s.record(ctx, models.ToolJournal, JournalToolName, JournalMinutes),
		Message: JournalSaved,
	}, nil
}

// SaveGratitude saves a new gratitude entry and records a gratitude session.
// Blank items are dropped first.
func (s *Service) SaveGratitude(ctx context.Context, entry models.GratitudeEntry) (Result[models.GratitudeEntry], error) {
	id, err := s.identity()
	if err != nil {
		return Result[models.GratitudeEntry]{}, err
	}
	entry.Items = models.CleanItems(entry.Items)
	if err := entry.Validate(); err != nil {
		return Result[models.GratitudeEntry]{}, err
	}
	s.stamp(&entry.Date, &entry.Timestamp)

	entryID, err := s.store.AddGratitudeEntry(ctx, id, entry)
	if err != nil {
		log.Error().Err(err).Str("uid", id.UID).Msg("Error saving gratitude entry")
		return Result[models.GratitudeEntry]{}, err
	}
	entry.ID = entryID

	return Result[models.GratitudeEntry]{
		Entry:   entry,
		Receipt: s.record(ctx, models.ToolGratitude, GratitudeToolName, GratitudeMinutes),
		Message: GratitudeSaved,
	}, nil
}

// UpdateGratitude edits an existing gratitude entry. Edits are not practice
// and record no session.
func (s *Service) UpdateGratitude(ctx context.Context, entryID string, patch models.GratitudePatch) error {
	id, err := s.identity()
	if err != nil {
		return err
	}
	if patch.Items != nil {
		patch.Items = models.CleanItems(patch.Items)
		if len(patch.Items) == 0 {
			return fmt.Errorf("%w: at least one gratitude item is required", models.ErrInvalidEntry)
		}
	}
	if patch.Mood != nil && (*patch.Mood < 1 || *patch.Mood > 5) {
		return fmt.Errorf("%w: mood must be between 1 and 5", models.ErrInvalidEntry)
	}

	if err := s.store.UpdateGratitudeEntry(ctx, id, entryID, patch); err != nil {
		log.Error().Err(err).Str("uid", id.UID).Str("entry", entryID).Msg("Error updating gratitude entry")
		return err
	}
	return nil
}

// MoodEntries lists the user's mood entries, newest first. A ledger failure
// degrades to an empty list.
func (s *Service) MoodEntries(ctx context.Context) ([]models.MoodEntry, error) {
	id, err := s.identity()
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListMoodEntries(ctx, id)
	return degrade(entries, err, id, "mood")
}

// JournalEntries lists the user's journal entries, newest first.
func (s *Service) JournalEntries(ctx context.Context) ([]models.JournalEntry, error) {
	id, err := s.identity()
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListJournalEntries(ctx, id)
	return degrade(entries, err, id, "journal")
}

// GratitudeEntries lists the user's gratitude entries, newest first.
func (s *Service) GratitudeEntries(ctx context.Context) ([]models.GratitudeEntry, error) {
	id, err := s.identity()
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListGratitudeEntries(ctx, id)
	return degrade(entries, err, id, "gratitude")
}

// DeleteMood removes one of the user's mood entries.
func (s *Service) DeleteMood(ctx context.Context, entryID string) error {
	id, err := s.identity()
	if err != nil {
		return err
	}
	return s.store.DeleteMoodEntry(ctx, id, entryID)
}

// DeleteJournal removes one of the user's journal entries.
func (s *Service) DeleteJournal(ctx context.Context, entryID string) error {
	id, err := s.identity()
	if err != nil {
		return err
	}
	return s.store.DeleteJournalEntry(ctx, id, entryID)
}

// DeleteGratitude removes one of the user's gratitude entries.
func (s *Service) DeleteGratitude(ctx context.Context, entryID string) error {
	id, err := s.identity()
	if err != nil {
		return err
	}
	return s.store.DeleteGratitudeEntry(ctx, id, entryID)
}

// stamp fills a missing timestamp with now and a missing date with the
// timestamp's local calendar day.
func (s *Service) stamp(date *string, ts *time.Time) {
	if ts.IsZero() {
		*ts = s.clock.Now()
	}
	if *date == "" {
		*date = ts.In(s.loc).Format(models.DateLayout)
	}
}

func degrade[T any](entries []T, err error, id *models.Identity, kind string) ([]T, error) {
	if err != nil {
		log.Warn().Err(err).Str("uid", id.UID).Str("kind", kind).Msg("Listing entries failed, showing none")
		return []T{}, nil
	}
	if entries == nil {
		entries = []T{}
	}
	return entries, nil
}
