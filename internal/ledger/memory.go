package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thebtf/dilse/pkg/models"
)

// Operation names passed to MemoryStore.BeforeOp.
const (
	OpAddPractice     = "add practice session"
	OpListPractice    = "list practice sessions"
	OpAddMood         = "add mood entry"
	OpListMood        = "list mood entries"
	OpDeleteMood      = "delete mood entry"
	OpAddJournal      = "add journal entry"
	OpListJournal     = "list journal entries"
	OpDeleteJournal   = "delete journal entry"
	OpAddGratitude    = "add gratitude entry"
	OpListGratitude   = "list gratitude entries"
	OpUpdateGratitude = "update gratitude entry"
	OpDeleteGratitude = "delete gratitude entry"
)

// MemoryStore is a process-local Store. It backs the "memory" database driver
// and the package tests of its consumers.
type MemoryStore struct {
	// BeforeOp, when set, runs before every operation. A non-nil return
	// aborts the operation with that error. It may block.
	BeforeOp func(ctx context.Context, op string) error

	users map[string]*memoryUser
	now   func() time.Time
	mu    sync.Mutex
}

type memoryUser struct {
	practice  []models.PracticeSession
	mood      []models.MoodEntry
	journal   []models.JournalEntry
	gratitude []models.GratitudeEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*memoryUser),
		now:   time.Now,
	}
}

func (m *MemoryStore) begin(ctx context.Context, op string, id *models.Identity) error {
	if id == nil || id.UID == "" {
		return Unavailable(op, ErrNoIdentity)
	}
	if err := ctx.Err(); err != nil {
		return Unavailable(op, err)
	}
	if m.BeforeOp != nil {
		if err := m.BeforeOp(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// user returns the bucket for uid. Callers hold m.mu.
func (m *MemoryStore) user(uid string) *memoryUser {
	u, ok := m.users[uid]
	if !ok {
		u = &memoryUser{}
		m.users[uid] = u
	}
	return u
}

func (m *MemoryStore) stamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return m.now()
	}
	return ts
}

// AddPracticeSession implements PracticeStore.
func (m *MemoryStore) AddPracticeSession(ctx context.Context, id *models.Identity, session models.PracticeSession) (string, error) {
	if err := m.begin(ctx, OpAddPractice, id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session.ID = uuid.NewString()
	session.Provisional = false
	session.Timestamp = m.stamp(session.Timestamp)
	u := m.user(id.UID)
	u.practice = append(u.practice, session)
	return session.ID, nil
}

// ListPracticeSessions implements PracticeStore.
func (m *MemoryStore) ListPracticeSessions(ctx context.Context, id *models.Identity) ([]models.PracticeSession, error) {
	if err := m.begin(ctx, OpListPractice, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.PracticeSession{}, m.user(id.UID).practice...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// AddMoodEntry implements MoodStore.
func (m *MemoryStore) AddMoodEntry(ctx context.Context, id *models.Identity, entry models.MoodEntry) (string, error) {
	if err := m.begin(ctx, OpAddMood, id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = m.stamp(entry.Timestamp)
	u := m.user(id.UID)
	u.mood = append(u.mood, entry)
	return entry.ID, nil
}

// ListMoodEntries implements MoodStore.
func (m *MemoryStore) ListMoodEntries(ctx context.Context, id *models.Identity) ([]models.MoodEntry, error) {
	if err := m.begin(ctx, OpListMood, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.MoodEntry{}, m.user(id.UID).mood...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// DeleteMoodEntry implements MoodStore.
func (m *MemoryStore) DeleteMoodEntry(ctx context.Context, id *models.Identity, entryID string) error {
	if err := m.begin(ctx, OpDeleteMood, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(id.UID)
	for i := range u.mood {
		if u.mood[i].ID == entryID {
			u.mood = append(u.mood[:i], u.mood[i+1:]...)
			return nil
		}
	}
	return NotFound(OpDeleteMood, entryID)
}

// AddJournalEntry implements JournalStore.
func (m *MemoryStore) AddJournalEntry(ctx context.Context, id *models.Identity, entry models.JournalEntry) (string, error) {
	if err := m.begin(ctx, OpAddJournal, id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.WordCount = models.WordCount(entry.Entry)
	entry.Timestamp = m.stamp(entry.Timestamp)
	u := m.user(id.UID)
	u.journal = append(u.journal, entry)
	return entry.ID, nil
}

// ListJournalEntries implements JournalStore.
func (m *MemoryStore) ListJournalEntries(ctx context.Context, id *models.Identity) ([]models.JournalEntry, error) {
	if err := m.begin(ctx, OpListJournal, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.JournalEntry{}, m.user(id.UID).journal...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// DeleteJournalEntry implements JournalStore.
func (m *MemoryStore) DeleteJournalEntry(ctx context.Context, id *models.Identity, entryID string) error {
	if err := m.begin(ctx, OpDeleteJournal, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(id.UID)
	for i := range u.journal {
		if u.journal[i].ID == entryID {
			u.journal = append(u.journal[:i], u.journal[i+1:]...)
			return nil
		}
	}
	return NotFound(OpDeleteJournal, entryID)
}

// AddGratitudeEntry implements GratitudeStore.
func (m *MemoryStore) AddGratitudeEntry(ctx context.Context, id *models.Identity, entry models.GratitudeEntry) (string, error) {
	if err := m.begin(ctx, OpAddGratitude, id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Items = models.CleanItems(entry.Items)
	entry.Timestamp = m.stamp(entry.Timestamp)
	u := m.user(id.UID)
	u.gratitude = append(u.gratitude, entry)
	return entry.ID, nil
}

// ListGratitudeEntries implements GratitudeStore.
func (m *MemoryStore) ListGratitudeEntries(ctx context.Context, id *models.Identity) ([]models.GratitudeEntry, error) {
	if err := m.begin(ctx, OpListGratitude, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.GratitudeEntry{}, m.user(id.UID).gratitude...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// UpdateGratitudeEntry implements GratitudeStore.
func (m *MemoryStore) UpdateGratitudeEntry(ctx context.Context, id *models.Identity, entryID string, patch models.GratitudePatch) error {
	if err := m.begin(ctx, OpUpdateGratitude, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(id.UID)
	for i := range u.gratitude {
		e := &u.gratitude[i]
		if e.ID != entryID {
			continue
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.Items != nil {
			e.Items = models.CleanItems(patch.Items)
		}
		if patch.Mood != nil {
			e.Mood = *patch.Mood
		}
		if patch.Reflection != nil {
			e.Reflection = *patch.Reflection
		}
		if patch.Timestamp != nil {
			e.Timestamp = *patch.Timestamp
		}
		return nil
	}
	return NotFound(OpUpdateGratitude, entryID)
}

// DeleteGratitudeEntry implements GratitudeStore.
func (m *MemoryStore) DeleteGratitudeEntry(ctx context.Context, id *models.Identity, entryID string) error {
	if err := m.begin(ctx, OpDeleteGratitude, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(id.UID)
	for i := range u.gratitude {
		if u.gratitude[i].ID == entryID {
			u.gratitude = append(u.gratitude[:i], u.gratitude[i+1:]...)
			return nil
		}
	}
	return NotFound(OpDeleteGratitude, entryID)
}
