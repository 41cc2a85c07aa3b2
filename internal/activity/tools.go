package activity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/internal/catalog"
	"github.com/thebtf/dilse/pkg/models"
)

// GroundingSteps is the number of senses walked through by the grounding exercise.
const GroundingSteps = 5

// MaxToolDuration caps the time a single tool run may report.
const MaxToolDuration = 24 * time.Hour

// Seconds converts a client-reported number of seconds into a duration,
// rejecting values outside [0, MaxToolDuration].
func Seconds(n int) (time.Duration, error) {
	if n < 0 || int64(n) > int64(MaxToolDuration/time.Second) {
		return 0, fmt.Errorf("%w: %d seconds is out of range", ErrInvalidRequest, n)
	}
	return time.Duration(n) * time.Second, nil
}

// Urgency levels of a support request.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// BreathingSession describes a finished breathing exercise.
type BreathingSession struct {
	Elapsed time.Duration
	Cycles  int
}

// SupportRequest is the contact form of the support circle.
type SupportRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Urgency string `json:"urgency"`
}

// CompleteMeditation records a finished guided meditation with the
// catalog's title and length.
func (s *Service) CompleteMeditation(ctx context.Context, meditationID string) (Result[catalog.Meditation], error) {
	if _, err := s.identity(); err != nil {
		return Result[catalog.Meditation]{}, err
	}
	m, ok := s.catalog.Meditation(meditationID)
	if !ok {
		return Result[catalog.Meditation]{}, fmt.Errorf("%w %q", ErrUnknownMeditation, meditationID)
	}
	return Result[catalog.Meditation]{
		Entry:   m,
		Receipt: s.record(ctx, models.ToolMeditation, m.Title, m.Minutes),
		Message: "Meditation complete. Take a moment to notice how you feel.",
	}, nil
}

// CompleteBreathing records a breathing exercise, rounded to whole minutes.
// A session that was stopped before the first full cycle is not recorded.
func (s *Service) CompleteBreathing(ctx context.Context, b BreathingSession) (Result[BreathingSession], error) {
	if _, err := s.identity(); err != nil {
		return Result[BreathingSession]{}, err
	}
	if b.Elapsed < 0 || b.Cycles < 0 {
		return Result[BreathingSession]{}, fmt.Errorf("%w: elapsed time and cycles must not be negative", ErrInvalidRequest)
	}
	if b.Elapsed > MaxToolDuration {
		return Result[BreathingSession]{}, fmt.Errorf("%w: elapsed time exceeds %s", ErrInvalidRequest, MaxToolDuration)
	}
	if b.Cycles == 0 {
		return Result[BreathingSession]{Entry: b}, nil
	}
	minutes := int(math.Round(b.Elapsed.Minutes()))
	return Result[BreathingSession]{
		Entry:   b,
		Receipt: s.record(ctx, models.ToolBreathing, BreathingToolName, minutes),
	}, nil
}

// CompleteGrounding records the 5-4-3-2-1 exercise once every step is done.
func (s *Service) CompleteGrounding(ctx context.Context, seconds int, completedSteps int) (Result[int], error) {
	if _, err := s.identity(); err != nil {
		return Result[int]{}, err
	}
	if _, err := Seconds(seconds); err != nil {
		return Result[int]{}, err
	}
	if completedSteps < GroundingSteps {
		return Result[int]{Entry: completedSteps}, nil
	}
	minutes := int(math.Round(float64(seconds) / 60))
	return Result[int]{
		Entry:   completedSteps,
		Receipt: s.record(ctx, models.ToolGrounding, GroundingToolName, minutes),
	}, nil
}

// RequestSupport accepts a support-circle contact request and records a
// zero-minute support session. The message body is not logged.
func (s *Service) RequestSupport(ctx context.Context, req SupportRequest) (Result[SupportRequest], error) {
	id, err := s.identity()
	if err != nil {
		return Result[SupportRequest]{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || strings.TrimSpace(req.Message) == "" {
		return Result[SupportRequest]{}, fmt.Errorf("%w: name, email and message are required", ErrInvalidRequest)
	}
	switch req.Urgency {
	case "":
		req.Urgency = UrgencyLow
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	default:
		return Result[SupportRequest]{}, fmt.Errorf("%w: unknown urgency %q", ErrInvalidRequest, req.Urgency)
	}

	log.Info().Str("uid", id.UID).Str("urgency", req.Urgency).Int("message_len", len(req.Message)).Msg("Support request received")

	return Result[SupportRequest]{
		Entry:   req,
		Receipt: s.record(ctx, models.ToolSupport, SupportToolName, 0),
		Message: SupportRequestAck,
	}, nil
}
