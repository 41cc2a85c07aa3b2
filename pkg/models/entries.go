// Package models contains domain models for dilse.
package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by mood, journal and gratitude entries.
const DateLayout = "2006-01-02"

// ErrInvalidEntry is wrapped by entry validation failures.
var ErrInvalidEntry = errors.New("invalid entry")

// MoodEntry is a single mood check-in. Mood and Energy are on a 1-5 scale.
type MoodEntry struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Notes     string    `json:"notes"`
	Factors   []string  `json:"factors"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
}

// Validate checks the mood and energy ranges.
func (e *MoodEntry) Validate() error {
	if e.Mood < 1 || e.Mood > 5 {
		return wrapInvalid("mood must be between 1 and 5")
	}
	if e.Energy < 1 || e.Energy > 5 {
		return wrapInvalid("energy must be between 1 and 5")
	}
	return nil
}

// JournalEntry is a guided journaling entry answering a prompt.
type JournalEntry struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Prompt    string    `json:"prompt"`
	Category  string    `json:"category"`
	Entry     string    `json:"entry"`
	WordCount int       `json:"wordCount"`
}

// Validate rejects blank entries.
func (e *JournalEntry) Validate() error {
	if strings.TrimSpace(e.Entry) == "" {
		return wrapInvalid("journal entry is empty")
	}
	return nil
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// GratitudeEntry lists the things a user is grateful for on a given day.
type GratitudeEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Reflection string    `json:"reflection"`
	Items      []string  `json:"items"`
	Mood       int       `json:"mood"`
}

// Validate requires at least one non-blank item and an in-range mood.
func (e *GratitudeEntry) Validate() error {
	if len(CleanItems(e.Items)) == 0 {
		return wrapInvalid("at least one gratitude item is required")
	}
	if e.Mood < 1 || e.Mood > 5 {
		return wrapInvalid("mood must be between 1 and 5")
	}
	return nil
}

// GratitudePatch is a partial update. Nil fields are left untouched.
type GratitudePatch struct {
	Date       *string    `json:"date,omitempty"`
	Items      []string   `json:"items,omitempty"`
	Mood       *int       `json:"mood,omitempty"`
	Reflection *string    `json:"reflection,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *GratitudePatch) Empty() bool {
	return p.Date == nil && p.Items == nil && p.Mood == nil && p.Reflection == nil && p.Timestamp == nil
}

// CleanItems trims items and drops blank ones.
func CleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type invalidEntryError struct {
	reason string
}

func (e *invalidEntryError) Error() string { return e.reason }
func (e *invalidEntryError) Unwrap() error { return ErrInvalidEntry }

func wrapInvalid(reason string) error {
	return &invalidEntryError{reason: reason}
}
