// Package practice keeps the signed-in user's practice history in memory,
// in step with the ledger, and derives the dashboard statistics from it.
//
// The engine has two states. Without an identity the cache is empty and
// writes are refused. When an identity is published the cache is cleared
// and reloaded from the ledger; when it is withdrawn the cache is cleared
// synchronously. New sessions are inserted provisionally before the ledger
// write is attempted and are never rolled back.
package practice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/dilse/internal/clock"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

// ErrNotAuthenticated is returned by AddSession when nobody is signed in.
var ErrNotAuthenticated = errors.New("please log in to track your practice")

// SyncWarning is the receipt warning for a session that stayed local.
const SyncWarning = "Your session was saved on this device but could not be synced. It will be missing after you sign in again."

// DefaultLoadTimeout bounds a cache reload.
const DefaultLoadTimeout = 30 * time.Second

// Receipt describes the outcome of AddSession.
type Receipt struct {
	Err       error                  `json:"-"`
	Session   models.PracticeSession `json:"session"`
	DurableID string                 `json:"durableId,omitempty"`
	Warning   string                 `json:"warning,omitempty"`
	Persisted bool                   `json:"persisted"`
}

// Snapshot is a consistent view of the engine.
type Snapshot struct {
	Error    string                   `json:"error,omitempty"`
	UID      string                   `json:"uid,omitempty"`
	Sessions []models.PracticeSession `json:"-"`
	Recent   []models.PracticeSession `json:"recent"`
	Stats    models.PracticeStats     `json:"stats"`
	Loading  bool                     `json:"loading"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for session timestamps and "today".
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the time zone that defines local days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithMeterProvider sets the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// WithLoadTimeout bounds each reload.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.loadTimeout = d }
}

// Engine is the practice aggregation engine.
type Engine struct {
	store         ledger.PracticeStore
	clock         clock.Clock
	loc           *time.Location
	meterProvider metric.MeterProvider
	metrics       *engineMetrics
	baseCtx       context.Context
	cancel        context.CancelFunc

	identity *models.Identity
	lastErr  error
	// sessions is newest first. Provisional entries sit at the front.
	sessions []models.PracticeSession
	// pending maps a provisional id to the durable id the ledger assigned,
	// or "" while the write is in flight.
	pending   map[string]string
	listeners []listenerEntry

	epoch       uint64
	nextID      int
	loadTimeout time.Duration
	loading     bool

	mu       sync.Mutex
	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

type listenerEntry struct {
	fn func(Snapshot)
	id int
}

// NewEngine creates an unauthenticated engine over store.
func NewEngine(store ledger.PracticeStore, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:       store,
		clock:       clock.System{},
		loc:         time.Local,
		loadTimeout: DefaultLoadTimeout,
		pending:     make(map[string]string),
		baseCtx:     ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newEngineMetrics(e.meterProvider)
	return e
}

// Close cancels in-flight reloads and waits for them to exit.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// Wait blocks until in-flight reloads have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// SetIdentity handles an identity change. The cache is cleared before it
// returns; for a non-nil identity a reload then runs in the background.
// Publishing the same identity again reloads it.
func (e *Engine) SetIdentity(id *models.Identity) {
	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	e.identity = id
	e.sessions = nil
	e.pending = make(map[string]string)
	e.lastErr = nil
	e.loading = id != nil
	e.mu.Unlock()

	e.notify()

	if id == nil {
		log.Debug().Msg("Practice cache cleared")
		return
	}

	e.wg.Add(1)
	go e.load(epoch, id)
}

func (e *Engine) load(epoch uint64, id *models.Identity) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.baseCtx, e.loadTimeout)
	defer cancel()

	loaded, err := e.store.ListPracticeSessions(ctx, id)

	e.mu.Lock()
	if e.epoch != epoch {
		// Identity changed while loading; this result belongs to nobody.
		e.mu.Unlock()
		log.Debug().Str("uid", id.UID).Msg("Discarded stale practice reload")
		return
	}
	e.loading = false
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		e.metrics.reloaded(ctx, false)
		log.Error().Err(err).Str("uid", id.UID).Msg("Error loading practice sessions")
		e.notify()
		return
	}
	e.sessions = reconcile(e.sessions, loaded, e.pending)
	count := len(e.sessions)
	e.mu.Unlock()

	e.metrics.reloaded(ctx, true)
	log.Info().Str("uid", id.UID).Int("sessions", count).Msg("Practice sessions loaded")
	e.notify()
}

// reconcile lays the sessions added during a reload over the loaded list.
// A provisional entry is dropped once its durable copy is present.
func reconcile(current, loaded []models.PracticeSession, pending map[string]string) []models.PracticeSession {
	durable := make(map[string]struct{}, len(loaded))
	for _, s := range loaded {
		durable[s.ID] = struct{}{}
	}

	out := make([]models.PracticeSession, 0, len(current)+len(loaded))
	for _, s := range current {
		if !s.Provisional {
			continue
		}
		if id := pending[s.ID]; id != "" {
			if _, ok := durable[id]; ok {
				continue
			}
		}
		out = append(out, s)
	}
	return append(out, loaded...)
}

// AddSession records a completed session. The provisional entry is visible
// to readers before the ledger write starts. A failed write is logged and
// reported in the receipt; it is not an error and is not rolled back.
func (e *Engine) AddSession(ctx context.Context, tool models.ToolKind, toolName string, duration int) (Receipt, error) {
	e.mu.Lock()
	id := e.identity
	if id == nil {
		e.mu.Unlock()
		log.Warn().Str("tool", string(tool)).Msg("User not authenticated, cannot add practice session")
		return Receipt{}, ErrNotAuthenticated
	}
	if err := models.ValidateSession(tool, duration); err != nil {
		e.mu.Unlock()
		return Receipt{}, err
	}

	epoch := e.epoch
	session := models.PracticeSession{
		ID:          models.ProvisionalIDPrefix + uuid.NewString(),
		Tool:        tool,
		ToolName:    toolName,
		Duration:    duration,
		Timestamp:   e.clock.Now(),
		Completed:   true,
		Provisional: true,
	}
	e.sessions = append([]models.PracticeSession{session}, e.sessions...)
	e.pending[session.ID] = ""
	e.mu.Unlock()

	e.notify()

	record := session
	record.ID = ""
	record.Provisional = false
	durableID, err := e.store.AddPracticeSession(ctx, id, record)

	receipt := Receipt{Session: session, DurableID: durableID, Persisted: err == nil}
	e.metrics.sessionAdded(ctx, string(tool), duration, err == nil)

	if err != nil {
		receipt.Err = err
		receipt.Warning = SyncWarning
		log.Error().Err(err).
			Str("uid", id.UID).
			Str("tool", string(tool)).
			Int("duration", duration).
			Msg("Error adding practice session")
	} else {
		log.Info().Str("uid", id.UID).Str("tool", string(tool)).Int("duration", duration).Msg("Practice session recorded")
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return receipt, nil
	}
	if err != nil {
		delete(e.pending, session.ID)
		e.mu.Unlock()
		return receipt, nil
	}
	if !e.settle(session.ID, durableID) {
		e.pending[session.ID] = durableID
		e.mu.Unlock()
		return receipt, nil
	}
	e.mu.Unlock()
	e.notify()
	return receipt, nil
}

// settle drops the provisional entry if a reload already brought in its
// durable copy. It reports whether the cache changed. Callers hold e.mu.
func (e *Engine) settle(provisionalID, durableID string) bool {
	found := false
	for _, s := range e.sessions {
		if !s.Provisional && s.ID == durableID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	delete(e.pending, provisionalID)
	kept := make([]models.PracticeSession, 0, len(e.sessions)-1)
	for _, s := range e.sessions {
		if s.ID != provisionalID {
			kept = append(kept, s)
		}
	}
	e.sessions = kept
	return true
}

// Identity returns the identity the cache belongs to.
func (e *Engine) Identity() *models.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Sessions returns a copy of the cache, newest first.
func (e *Engine) Sessions() []models.PracticeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.PracticeSession{}, e.sessions...)
}

// Stats derives statistics from the current cache.
func (e *Engine) Stats() models.PracticeStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeStats(e.sessions, e.clock.Now(), e.loc)
}

// RecentSessions returns the three newest sessions.
func (e *Engine) RecentSessions() []models.PracticeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Recent(e.sessions, RecentLimit)
}

// Loading reports whether a reload is in flight.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// LastError returns the error from the most recent failed reload, if any.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Snapshot returns a consistent view of the cache and derived values.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Sessions: append([]models.PracticeSession{}, e.sessions...),
		Recent:   Recent(e.sessions, RecentLimit),
		Stats:    ComputeStats(e.sessions, e.clock.Now(), e.loc),
		Loading:  e.loading,
	}
	if e.identity != nil {
		snap.UID = e.identity.UID
	}
	if e.lastErr != nil {
		snap.Error = e.lastErr.Error()
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every change.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if len(e.listeners) == 0 {
		e.mu.Unlock()
		return
	}
	listeners := append([]listenerEntry{}, e.listeners...)
	e.mu.Unlock()

	snap := e.Snapshot()
	for _, l := range listeners {
		l.fn(snap)
	}
}
