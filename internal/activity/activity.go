// Package activity implements the wellness tools. Each tool saves what the
// user produced (if anything) and then records a practice session with the
// practice engine.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/thebtf/dilse/internal/catalog"
	"github.com/thebtf/dilse/internal/clock"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/internal/practice"
	"github.com/thebtf/dilse/pkg/models"
)

// Tool names and fixed lengths recorded for each tool.
const (
	MoodToolName      = "Mood Check-in"
	MoodMinutes       = 2
	JournalToolName   = "Guided Journaling"
	JournalMinutes    = 5
	GratitudeToolName = "Gratitude Practice"
	GratitudeMinutes  = 3
	BreathingToolName = "Breathing Exercise"
	GroundingToolName = "5-4-3-2-1 Grounding"
	SupportToolName   = "Support Circle"
)

// Confirmation sentences returned with a saved entry.
const (
	MoodSaved         = "Mood entry saved! Thank you for checking in with yourself."
	JournalSaved      = "Journal entry saved! Thank you for taking time to reflect."
	GratitudeSaved    = "Gratitude entry saved! Thank you for noticing the good in your day."
	GratitudeUpdated  = "Gratitude entry updated."
	SupportRequestAck = "Your message has been sent. Someone from our support team will get back to you within 24 hours."
)

var (
	// ErrUnknownMeditation is returned for a meditation id missing from the catalog.
	ErrUnknownMeditation = errors.New("unknown meditation")
	// ErrInvalidRequest wraps malformed tool input.
	ErrInvalidRequest = errors.New("invalid request")
)

// Recorder is the part of the practice engine the tools depend on.
type Recorder interface {
	Identity() *models.Identity
	AddSession(ctx context.Context, tool models.ToolKind, toolName string, duration int) (practice.Receipt, error)
}

// EntryStore is the part of the ledger the tools write entries to.
type EntryStore interface {
	ledger.MoodStore
	ledger.JournalStore
	ledger.GratitudeStore
}

// Result is returned by every tool. Receipt is nil when no practice
// session was recorded.
type Result[T any] struct {
	Entry   T                 `json:"entry"`
	Receipt *practice.Receipt `json:"receipt,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Service runs the wellness tools for the current identity.
type Service struct {
	store   EntryStore
	engine  Recorder
	catalog *catalog.Catalog
	clock   clock.Clock
	loc     *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for entry timestamps and dates.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the zone that defines an entry's calendar date.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService creates a Service.
func NewService(store EntryStore, engine Recorder, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:   store,
		engine:  engine,
		catalog: cat,
		clock:   clock.System{},
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the tools read from.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) identity() (*models.Identity, error) {
	id := s.engine.Identity()
	if id == nil {
		return nil, practice.ErrNotAuthenticated
	}
	return id, nil
}

func (s *Service) today() string {
	return s.clock.Now().In(s.loc).Format(models.DateLayout)
}

// record adds a practice session and returns its receipt. The entry was
// already saved, so a refused session is not reported as a failure of the
// tool.
func (s *Service) record(ctx context.Context, tool models.ToolKind, name string, minutes int) *practice.Receipt {
	receipt, err := s.engine.AddSession(ctx, tool, name, minutes)
	if err != nil {
		return &practice.Receipt{Err: err, Warning: err.Error()}
	}
	return &receipt
}
