// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/thebtf/dilse/pkg/models"
)

// PracticeStore provides practice-session operations using GORM.
type PracticeStore struct {
	db *gorm.DB
}

// NewPracticeStore creates a new practice session store.
func NewPracticeStore(store *Store) *PracticeStore {
	return &PracticeStore{db: store.DB}
}

// AddPracticeSession stores a session for the identity and returns its durable id.
func (s *PracticeStore) AddPracticeSession(ctx context.Context, id *models.Identity, session models.PracticeSession) (string, error) {
	const op = "add practice session"
	if err := requireIdentity(op, id); err != nil {
		return "", err
	}

	row := &PracticeSession{
		UserID:    id.UID,
		Tool:      string(session.Tool),
		ToolName:  session.ToolName,
		Duration:  session.Duration,
		Completed: session.Completed,
		Timestamp: session.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", mapError(op, err)
	}
	return row.ID, nil
}

// ListPracticeSessions returns all of the identity's sessions, newest first.
func (s *PracticeStore) ListPracticeSessions(ctx context.Context, id *models.Identity) ([]models.PracticeSession, error) {
	const op = "list practice sessions"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}

	var rows []PracticeSession
	err := s.db.WithContext(ctx).
		Scopes(forUser(id.UID), newestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, mapError(op, err)
	}
	return toModelPracticeSessions(rows), nil
}

func toModelPracticeSession(row *PracticeSession) models.PracticeSession {
	return models.PracticeSession{
		ID:        row.ID,
		Tool:      models.ToolKind(row.Tool),
		ToolName:  row.ToolName,
		Duration:  row.Duration,
		Completed: row.Completed,
		Timestamp: row.Timestamp,
	}
}

func toModelPracticeSessions(rows []PracticeSession) []models.PracticeSession {
	out := make([]models.PracticeSession, len(rows))
	for i := range rows {
		out[i] = toModelPracticeSession(&rows[i])
	}
	return out
}
