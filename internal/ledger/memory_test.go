package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/dilse/pkg/models"
)

func TestMemoryStore_PracticeNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := &models.Identity{UID: "u1"}
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, tool := range []models.ToolKind{models.ToolBreathing, models.ToolMood, models.ToolJournal} {
		_, err := store.AddPracticeSession(ctx, id, models.PracticeSession{
			Tool: tool, Duration: 1, Completed: true, Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := store.ListPracticeSessions(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.ToolJournal, got[0].Tool)
	assert.Equal(t, models.ToolBreathing, got[2].Tool)

	other, err := store.ListPracticeSessions(ctx, &models.Identity{UID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStore_BeforeOpInjectsFailure(t *testing.T) {
	store := NewMemoryStore()
	boom := Unavailable(OpAddPractice, errors.New("offline"))
	store.BeforeOp = func(_ context.Context, op string) error {
		if op == OpAddPractice {
			return boom
		}
		return nil
	}

	_, err := store.AddPracticeSession(context.Background(), &models.Identity{UID: "u1"}, models.PracticeSession{Tool: models.ToolMood})
	assert.Same(t, boom, err)
}

func TestMemoryStore_GratitudePatchAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := &models.Identity{UID: "u1"}

	entryID, err := store.AddGratitudeEntry(ctx, id, models.GratitudeEntry{Items: []string{"tea", " "}, Mood: 3})
	require.NoError(t, err)

	reflection := "quiet evening"
	require.NoError(t, store.UpdateGratitudeEntry(ctx, id, entryID, models.GratitudePatch{Reflection: &reflection}))

	entries, err := store.ListGratitudeEntries(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"tea"}, entries[0].Items)
	assert.Equal(t, reflection, entries[0].Reflection)

	require.NoError(t, store.DeleteGratitudeEntry(ctx, id, entryID))
	assert.True(t, IsNotFound(store.DeleteGratitudeEntry(ctx, id, entryID)))
	assert.True(t, IsNotFound(store.UpdateGratitudeEntry(ctx, id, entryID, models.GratitudePatch{})))
}

func TestMemoryStore_NilIdentity(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.ListMoodEntries(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIdentity)
}
