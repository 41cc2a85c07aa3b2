// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: practice session ledger
		{
			ID: "001_practice_sessions",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PracticeSession{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("practice_sessions")
			},
		},

		// Migration 002: mood and journal entries
		{
			ID: "002_mood_journal_entries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&MoodEntry{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&JournalEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("mood_entries", "journal_entries")
			},
		},

		// Migration 003: gratitude entries
		{
			ID: "003_gratitude_entries",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&GratitudeEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("gratitude_entries")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}
	return nil
}
