package practice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/thebtf/dilse/internal/clock"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

type EngineSuite struct {
	suite.Suite
	store  *ledger.MemoryStore
	engine *Engine
	now    time.Time
	alice  *models.Identity
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = ledger.NewMemoryStore()
	s.now = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	s.engine = NewEngine(s.store, WithClock(clock.Fixed(s.now)), WithLocation(time.UTC))
	s.alice = &models.Identity{UID: "alice"}
	s.ctx = context.Background()
}

func (s *EngineSuite) TearDownTest() {
	s.engine.Close()
}

func (s *EngineSuite) signIn(id *models.Identity) {
	s.engine.SetIdentity(id)
	s.engine.Wait()
}

func (s *EngineSuite) TestScenario_BreathingThenMood() {
	s.signIn(s.alice)
	s.Equal(models.PracticeStats{}, s.engine.Stats())

	_, err := s.engine.AddSession(s.ctx, models.ToolBreathing, "Breathing Exercise", 4)
	s.Require().NoError(err)
	s.Equal(models.PracticeStats{DaysPracticing: 1, TotalSessions: 1, MinutesToday: 4}, s.engine.Stats())

	_, err = s.engine.AddSession(s.ctx, models.ToolMood, "Mood Check-in", 2)
	s.Require().NoError(err)
	stats := s.engine.Stats()
	s.Equal(2, stats.TotalSessions)
	s.Equal(6, stats.MinutesToday)

	recent := s.engine.RecentSessions()
	s.Require().Len(recent, 2)
	s.Equal(models.ToolMood, recent[0].Tool)
	s.Equal(models.ToolBreathing, recent[1].Tool)
}

func (s *EngineSuite) TestAddSession_CountsEveryCall() {
	s.signIn(s.alice)
	for i := 1; i <= 7; i++ {
		receipt, err := s.engine.AddSession(s.ctx, models.ToolGrounding, "5-4-3-2-1 Grounding", 1)
		s.Require().NoError(err)
		s.True(receipt.Persisted)
		s.NotEmpty(receipt.DurableID)
		stats := s.engine.Stats()
		s.Equal(i, stats.TotalSessions)
		s.LessOrEqual(stats.DaysPracticing, stats.TotalSessions)
	}
	s.Len(s.engine.RecentSessions(), RecentLimit)
}

func (s *EngineSuite) TestAddSession_Unauthenticated() {
	_, err := s.engine.AddSession(s.ctx, models.ToolBreathing, "Breathing Exercise", 4)
	s.ErrorIs(err, ErrNotAuthenticated)
	s.Empty(s.engine.Sessions())
}

func (s *EngineSuite) TestAddSession_InvalidInput() {
	s.signIn(s.alice)
	_, err := s.engine.AddSession(s.ctx, models.ToolKind("dance"), "Dance", 4)
	s.ErrorIs(err, models.ErrUnknownTool)
	_, err = s.engine.AddSession(s.ctx, models.ToolMood, "Mood Check-in", -2)
	s.ErrorIs(err, models.ErrNegativeDuration)
	s.Empty(s.engine.Sessions())
}

func (s *EngineSuite) TestAddSession_RemoteFailureKeepsOptimisticEntry() {
	s.signIn(s.alice)
	s.store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpAddPractice {
			return ledger.Unavailable(op, errors.New("connection reset"))
		}
		return nil
	}

	receipt, err := s.engine.AddSession(s.ctx, models.ToolBreathing, "Breathing Exercise", 4)
	s.Require().NoError(err)
	s.False(receipt.Persisted)
	s.Equal(SyncWarning, receipt.Warning)
	s.Error(receipt.Err)
	s.True(receipt.Session.Provisional)

	s.Equal(1, s.engine.Stats().TotalSessions)
	s.Equal(4, s.engine.Stats().MinutesToday)
}

func (s *EngineSuite) TestAddSession_ProvisionalVisibleBeforeRemoteReturns() {
	s.signIn(s.alice)

	release := make(chan struct{})
	entered := make(chan struct{})
	s.store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpAddPractice {
			close(entered)
			<-release
		}
		return nil
	}

	done := make(chan Receipt)
	go func() {
		r, _ := s.engine.AddSession(s.ctx, models.ToolMeditation, "Body Scan", 10)
		done <- r
	}()

	<-entered
	sessions := s.engine.Sessions()
	s.Require().Len(sessions, 1)
	s.True(sessions[0].Provisional)
	s.Equal(10, s.engine.Stats().MinutesToday)

	close(release)
	receipt := <-done
	s.True(receipt.Persisted)

	// The provisional entry is not rewritten by the response.
	after := s.engine.Sessions()
	s.Require().Len(after, 1)
	s.Equal(sessions[0].ID, after[0].ID)
	s.True(after[0].Provisional)
}

func (s *EngineSuite) TestSignOutClearsSynchronously() {
	s.signIn(s.alice)
	_, err := s.engine.AddSession(s.ctx, models.ToolJournal, "Guided Journaling", 5)
	s.Require().NoError(err)

	s.engine.SetIdentity(nil)
	s.Equal(models.PracticeStats{}, s.engine.Stats())
	s.Empty(s.engine.RecentSessions())
	s.Nil(s.engine.Identity())
}

func (s *EngineSuite) TestReloadEqualsStoreAndIsIdempotent() {
	base := s.now.Add(-48 * time.Hour)
	for i, tool := range []models.ToolKind{models.ToolBreathing, models.ToolMood, models.ToolJournal, models.ToolGratitude} {
		_, err := s.store.AddPracticeSession(s.ctx, s.alice, session(tool, i+1, base.Add(time.Duration(i)*time.Hour)))
		s.Require().NoError(err)
	}
	want, err := s.store.ListPracticeSessions(s.ctx, s.alice)
	s.Require().NoError(err)

	s.signIn(s.alice)
	first := s.engine.Sessions()
	s.Empty(cmp.Diff(want, first))
	firstStats := s.engine.Stats()

	s.signIn(s.alice)
	s.Empty(cmp.Diff(first, s.engine.Sessions()))
	s.Equal(firstStats, s.engine.Stats())

	recent := s.engine.RecentSessions()
	s.Empty(cmp.Diff(want[:3], recent))
}

func (s *EngineSuite) TestReloadDropsProvisionalOnceDurable() {
	s.signIn(s.alice)
	_, err := s.engine.AddSession(s.ctx, models.ToolBreathing, "Breathing Exercise", 3)
	s.Require().NoError(err)

	s.signIn(s.alice)
	sessions := s.engine.Sessions()
	s.Require().Len(sessions, 1)
	s.False(sessions[0].Provisional)
}

func (s *EngineSuite) TestLoadFailureLeavesCacheEmpty() {
	s.store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpListPractice {
			return ledger.Unavailable(op, errors.New("offline"))
		}
		return nil
	}

	s.signIn(s.alice)
	s.Empty(s.engine.Sessions())
	s.False(s.engine.Loading())
	s.Require().Error(s.engine.LastError())
	kind, ok := ledger.KindOf(s.engine.LastError())
	s.True(ok)
	s.Equal(ledger.KindUnavailable, kind)
	s.Contains(s.engine.Snapshot().Error, "offline")
}

func (s *EngineSuite) TestStaleReloadDiscarded() {
	bob := &models.Identity{UID: "bob"}
	_, err := s.store.AddPracticeSession(s.ctx, s.alice, session(models.ToolMood, 2, s.now))
	s.Require().NoError(err)

	release := make(chan struct{})
	var once sync.Once
	s.store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpListPractice {
			once.Do(func() { <-release })
		}
		return nil
	}

	s.engine.SetIdentity(s.alice)
	s.engine.SetIdentity(bob)
	close(release)
	s.engine.Wait()

	s.Equal("bob", s.engine.Identity().UID)
	s.Empty(s.engine.Sessions())
}

func (s *EngineSuite) TestAddDuringLoadReconciledByReload() {
	_, err := s.store.AddPracticeSession(s.ctx, s.alice, session(models.ToolMood, 2, s.now.Add(-time.Hour)))
	s.Require().NoError(err)

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	s.store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpListPractice {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		return nil
	}

	s.engine.SetIdentity(s.alice)
	<-entered
	s.store.BeforeOp = nil
	_, err = s.engine.AddSession(s.ctx, models.ToolBreathing, "Breathing Exercise", 4)
	s.Require().NoError(err)
	close(release)
	s.engine.Wait()

	sessions := s.engine.Sessions()
	// The list snapshot was taken after the add committed, so the durable
	// copy is in the loaded set and the provisional entry is dropped.
	tools := make([]models.ToolKind, 0, len(sessions))
	for _, sess := range sessions {
		tools = append(tools, sess.Tool)
	}
	s.Equal([]models.ToolKind{models.ToolBreathing, models.ToolMood}, tools)
	s.False(sessions[0].Provisional)
}

func (s *EngineSuite) TestSubscribeReceivesSnapshots() {
	var mu sync.Mutex
	var snaps []Snapshot
	unsubscribe := s.engine.Subscribe(func(snap Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		mu.Unlock()
	})

	s.signIn(s.alice)
	_, err := s.engine.AddSession(s.ctx, models.ToolSupport, "Support Circle", 0)
	s.Require().NoError(err)
	unsubscribe()
	s.engine.SetIdentity(nil)

	mu.Lock()
	defer mu.Unlock()
	// clear, loaded, provisional add
	s.Require().Len(snaps, 3)
	s.True(snaps[0].Loading)
	s.False(snaps[1].Loading)
	s.Equal(1, snaps[2].Stats.TotalSessions)
	s.Equal("alice", snaps[2].UID)
}

func TestReconcile(t *testing.T) {
	now := time.Now()
	loaded := []models.PracticeSession{{ID: "d1", Tool: models.ToolMood, Timestamp: now.Add(-time.Minute)}}
	current := []models.PracticeSession{
		{ID: "local-a", Tool: models.ToolBreathing, Provisional: true, Timestamp: now},
		{ID: "local-b", Tool: models.ToolMood, Provisional: true, Timestamp: now},
		{ID: "old", Tool: models.ToolJournal},
	}
	pending := map[string]string{"local-b": "d1"}

	got := reconcile(current, loaded, pending)
	want := []models.PracticeSession{current[0], loaded[0]}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestEngine_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine(ledger.NewMemoryStore())
	engine.SetIdentity(&models.Identity{UID: "u"})
	engine.SetIdentity(nil)
	engine.Close()
	require.Empty(t, engine.Sessions())
}

// ackDelayedStore commits practice writes immediately but holds back the
// acknowledgement until release is closed.
type ackDelayedStore struct {
	*ledger.MemoryStore
	committed chan struct{}
	release   chan struct{}
}

func (s *ackDelayedStore) AddPracticeSession(ctx context.Context, id *models.Identity, session models.PracticeSession) (string, error) {
	durableID, err := s.MemoryStore.AddPracticeSession(ctx, id, session)
	close(s.committed)
	<-s.release
	return durableID, err
}

func TestEngine_ReloadBeforeAckCountsOnce(t *testing.T) {
	store := &ackDelayedStore{
		MemoryStore: ledger.NewMemoryStore(),
		committed:   make(chan struct{}),
		release:     make(chan struct{}),
	}
	var once sync.Once
	store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpListPractice {
			once.Do(func() { <-store.committed })
		}
		return nil
	}

	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	engine := NewEngine(store, WithClock(clock.Fixed(now)), WithLocation(time.UTC))
	defer engine.Close()

	alice := &models.Identity{UID: "alice"}
	engine.SetIdentity(alice)

	done := make(chan Receipt)
	go func() {
		r, _ := engine.AddSession(context.Background(), models.ToolBreathing, "Breathing Exercise", 4)
		done <- r
	}()

	// The reload reads the list after the write committed and finishes
	// while the acknowledgement is still held back.
	engine.Wait()
	close(store.release)
	receipt := <-done
	require.True(t, receipt.Persisted)

	stored, err := store.ListPracticeSessions(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	sessions := engine.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, receipt.DurableID, sessions[0].ID)
	assert.False(t, sessions[0].Provisional)
	assert.Equal(t, 1, engine.Stats().TotalSessions)
	assert.Equal(t, 4, engine.Stats().MinutesToday)
}
