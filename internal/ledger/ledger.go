// Package ledger defines the per-user persistence contract for practice
// sessions and wellness entries.
//
// Every operation is scoped to the identity passed in. A nil identity is
// rejected with KindUnavailable before any backend call is made.
package ledger

import (
	"context"

	"github.com/thebtf/dilse/pkg/models"
)

// PracticeStore persists practice sessions. Sessions are immutable once written.
type PracticeStore interface {
	AddPracticeSession(ctx context.Context, id *models.Identity, session models.PracticeSession) (string, error)
	ListPracticeSessions(ctx context.Context, id *models.Identity) ([]models.PracticeSession, error)
}

// MoodStore persists mood check-ins.
type MoodStore interface {
	AddMoodEntry(ctx context.Context, id *models.Identity, entry models.MoodEntry) (string, error)
	ListMoodEntries(ctx context.Context, id *models.Identity) ([]models.MoodEntry, error)
	DeleteMoodEntry(ctx context.Context, id *models.Identity, entryID string) error
}

// JournalStore persists journal entries.
type JournalStore interface {
	AddJournalEntry(ctx context.Context, id *models.Identity, entry models.JournalEntry) (string, error)
	ListJournalEntries(ctx context.Context, id *models.Identity) ([]models.JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, id *models.Identity, entryID string) error
}

// GratitudeStore persists gratitude entries, the only kind that supports edits.
type GratitudeStore interface {
	AddGratitudeEntry(ctx context.Context, id *models.Identity, entry models.GratitudeEntry) (string, error)
	ListGratitudeEntries(ctx context.Context, id *models.Identity) ([]models.GratitudeEntry, error)
	UpdateGratitudeEntry(ctx context.Context, id *models.Identity, entryID string, patch models.GratitudePatch) error
	DeleteGratitudeEntry(ctx context.Context, id *models.Identity, entryID string) error
}

// Store is the full ledger.
type Store interface {
	PracticeStore
	MoodStore
	JournalStore
	GratitudeStore
}
