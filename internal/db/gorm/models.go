// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GORM Models
//
// Every row carries the owning user's id; the (user_id, timestamp_epoch)
// index backs the newest-first listings.

// PracticeSession is an immutable record of a completed tool use.
type PracticeSession struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"type:varchar(128);not null;index:idx_practice_user_ts,priority:1"`
	Tool           string    `gorm:"type:varchar(32);not null;check:tool IN ('breathing','mood','journal','grounding','meditation','gratitude','support')"`
	ToolName       string    `gorm:"type:text;not null"`
	Duration       int       `gorm:"not null;default:0;check:duration >= 0"`
	Completed      bool      `gorm:"not null;default:true"`
	Timestamp      time.Time `gorm:"not null"`
	TimestampEpoch int64     `gorm:"not null;index:idx_practice_user_ts,priority:2,sort:desc"`
	CreatedAt      string    `gorm:"not null"`
}

func (PracticeSession) TableName() string { return "practice_sessions" }

// BeforeCreate hook to ensure ids and timestamps are set.
func (p *PracticeSession) BeforeCreate(tx *gorm.DB) error {
	stampRow(&p.ID, &p.Timestamp, &p.TimestampEpoch, &p.CreatedAt)
	return nil
}

// MoodEntry is a mood check-in row.
type MoodEntry struct {
	ID             string                      `gorm:"primaryKey;type:varchar(36)"`
	UserID         string                      `gorm:"type:varchar(128);not null;index:idx_mood_user_ts,priority:1"`
	Date           string                      `gorm:"type:varchar(10);not null"`
	Mood           int                         `gorm:"not null;check:mood BETWEEN 1 AND 5"`
	Energy         int                         `gorm:"not null;check:energy BETWEEN 1 AND 5"`
	Factors        datatypes.JSONSlice[string]
	Notes          string                      `gorm:"type:text"`
	Timestamp      time.Time                   `gorm:"not null"`
	TimestampEpoch int64                       `gorm:"not null;index:idx_mood_user_ts,priority:2,sort:desc"`
	CreatedAt      string                      `gorm:"not null"`
}

func (MoodEntry) TableName() string { return "mood_entries" }

// BeforeCreate hook to ensure ids and timestamps are set.
func (m *MoodEntry) BeforeCreate(tx *gorm.DB) error {
	stampRow(&m.ID, &m.Timestamp, &m.TimestampEpoch, &m.CreatedAt)
	return nil
}

// JournalEntry is a guided journaling row.
type JournalEntry struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"type:varchar(128);not null;index:idx_journal_user_ts,priority:1"`
	Date           string    `gorm:"type:varchar(10);not null"`
	Prompt         string    `gorm:"type:text"`
	Category       string    `gorm:"type:varchar(64)"`
	Entry          string    `gorm:"type:text;not null"`
	WordCount      int       `gorm:"not null;default:0"`
	Timestamp      time.Time `gorm:"not null"`
	TimestampEpoch int64     `gorm:"not null;index:idx_journal_user_ts,priority:2,sort:desc"`
	CreatedAt      string    `gorm:"not null"`
}

func (JournalEntry) TableName() string { return "journal_entries" }

// BeforeCreate hook to ensure ids and timestamps are set.
func (j *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	stampRow(&j.ID, &j.Timestamp, &j.TimestampEpoch, &j.CreatedAt)
	return nil
}

// GratitudeEntry is a gratitude practice row. Unlike the other kinds it can be edited.
type GratitudeEntry struct {
	ID             string                      `gorm:"primaryKey;type:varchar(36)"`
	UserID         string                      `gorm:"type:varchar(128);not null;index:idx_gratitude_user_ts,priority:1"`
	Date           string                      `gorm:"type:varchar(10);not null"`
	Items          datatypes.JSONSlice[string]
	Mood           int                         `gorm:"not null;check:mood BETWEEN 1 AND 5"`
	Reflection     string                      `gorm:"type:text"`
	Timestamp      time.Time                   `gorm:"not null"`
	TimestampEpoch int64                       `gorm:"not null;index:idx_gratitude_user_ts,priority:2,sort:desc"`
	CreatedAt      string                      `gorm:"not null"`
}

func (GratitudeEntry) TableName() string { return "gratitude_entries" }

// BeforeCreate hook to ensure ids and timestamps are set.
func (g *GratitudeEntry) BeforeCreate(tx *gorm.DB) error {
	stampRow(&g.ID, &g.Timestamp, &g.TimestampEpoch, &g.CreatedAt)
	return nil
}

// stampRow fills the durable id and time columns left empty by the caller.
// Timestamps are stored in UTC; the epoch column drives ordering.
func stampRow(id *string, ts *time.Time, epoch *int64, createdAt *string) {
	now := time.Now()
	if *id == "" {
		*id = uuid.NewString()
	}
	if ts.IsZero() {
		*ts = now
	}
	*ts = ts.UTC()
	if *epoch == 0 {
		*epoch = ts.UnixMilli()
	}
	if *createdAt == "" {
		*createdAt = now.UTC().Format(time.RFC3339)
	}
}
