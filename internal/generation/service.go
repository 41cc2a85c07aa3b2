// Package generation answers chat messages and mood emoji on behalf of
// the companion. Chat text goes to a language model; emoji get canned
// replies.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/internal/privacy"
)

// Request types.
const (
	TypeChat  = "chat"
	TypeEmoji = "emoji"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

const chatPrompt = "You are DilSe AI, a compassionate mental health companion for students and young adults. " +
	"You provide empathetic, supportive responses that help users explore their feelings without judgment. " +
	"Keep responses concise (1-2 sentences), warm, and encouraging. \n\n" +
	"User message: \"%s\"\n\nRespond as DilSe AI:"

// Generator produces reply text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is an inbound reply request.
type Request struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Response carries the reply text.
type Response struct {
	Response string `json:"response"`
}

// Service validates requests and routes them to the canned emoji table or
// to the configured Generator.
type Service struct {
	gen       Generator
	maxTokens int
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMaxTokens caps the token length of chat messages. Zero disables the cap.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a Service. A nil gen means no API key is configured;
// chat requests then fail with KindUnconfigured while emoji still work.
func NewService(gen Generator, opts ...Option) *Service {
	s := &Service{
		gen:       gen,
		maxTokens: DefaultMaxMessageTokens,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether chat replies can be generated.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// Respond answers req. Every failure is an *Error.
func (s *Service) Respond(ctx context.Context, req Request) (Response, error) {
	if req.Message == "" || req.Type == "" {
		return Response{}, newError(KindInvalidInput, MsgMissingFields, nil)
	}

	switch req.Type {
	case TypeEmoji:
		return Response{Response: EmojiReply(req.Message)}, nil
	case TypeChat:
		return s.chat(ctx, req.Message)
	default:
		return Response{}, newError(KindInvalidInput, MsgInvalidType, nil)
	}
}

func (s *Service) chat(ctx context.Context, message string) (Response, error) {
	if s.gen == nil {
		return Response{}, newError(KindUnconfigured, MsgUnconfigured, nil)
	}

	cleaned := privacy.Clean(message)
	if cleaned == "" {
		return Response{}, newError(KindInvalidInput, MsgMissingFields, nil)
	}

	if s.maxTokens > 0 {
		n, err := CountTokens(cleaned)
		if err != nil {
			// Tokenizer trouble should not block a reply.
			log.Warn().Err(err).Msg("Token count unavailable, skipping length check")
		} else if n > s.maxTokens {
			return Response{}, newError(KindInvalidInput, MsgTooLong, fmt.Errorf("%d tokens exceeds %d", n, s.maxTokens))
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.gen.Generate(ctx, fmt.Sprintf(chatPrompt, cleaned))
	if err != nil {
		kind := classify(err)
		log.Error().Err(err).Str("kind", kind.String()).Dur("elapsed", time.Since(start)).Msg("Chat generation failed")
		return Response{}, newError(kind, messageFor(kind), err)
	}

	log.Debug().Dur("elapsed", time.Since(start)).Int("reply_len", len(text)).Msg("Chat reply generated")
	return Response{Response: strings.TrimSpace(text)}, nil
}

func messageFor(kind Kind) string {
	switch kind {
	case KindUpstreamAuth:
		return MsgUpstreamAuth
	case KindUpstreamQuota:
		return MsgUpstreamQuota
	default:
		return MsgUnknown
	}
}
