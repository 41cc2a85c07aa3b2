// Package models contains domain models for dilse.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ToolKind identifies the wellness tool a practice session came from.
type ToolKind string

const (
	ToolBreathing  ToolKind = "breathing"
	ToolMood       ToolKind = "mood"
	ToolJournal    ToolKind = "journal"
	ToolGrounding  ToolKind = "grounding"
	ToolMeditation ToolKind = "meditation"
	ToolGratitude  ToolKind = "gratitude"
	ToolSupport    ToolKind = "support"
)

// AllToolKinds lists every known tool kind.
var AllToolKinds = []ToolKind{
	ToolBreathing,
	ToolMood,
	ToolJournal,
	ToolGrounding,
	ToolMeditation,
	ToolGratitude,
	ToolSupport,
}

// Valid reports whether k is one of the known tool kinds.
func (k ToolKind) Valid() bool {
	for _, known := range AllToolKinds {
		if k == known {
			return true
		}
	}
	return false
}

var (
	// ErrUnknownTool is returned for a tool kind outside AllToolKinds.
	ErrUnknownTool = errors.New("unknown tool kind")
	// ErrNegativeDuration is returned for a session with duration below zero.
	ErrNegativeDuration = errors.New("duration must not be negative")
)

// ProvisionalIDPrefix marks ids assigned locally before the ledger confirms a write.
const ProvisionalIDPrefix = "local-"

// PracticeSession is one completed use of a wellness tool.
type PracticeSession struct {
	Timestamp   time.Time `json:"timestamp"`
	ID          string    `json:"id"`
	Tool        ToolKind  `json:"tool"`
	ToolName    string    `json:"toolName"`
	Duration    int       `json:"duration"`
	Completed   bool      `json:"completed"`
	Provisional bool      `json:"provisional,omitempty"`
}

// ValidateSession checks the fields a caller supplies when recording a session.
func ValidateSession(tool ToolKind, duration int) error {
	if !tool.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	if duration < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDuration, duration)
	}
	return nil
}

// PracticeStats is derived from the cached session list on every read.
type PracticeStats struct {
	DaysPracticing int `json:"daysPracticing"`
	TotalSessions  int `json:"totalSessions"`
	MinutesToday   int `json:"minutesToday"`
}
