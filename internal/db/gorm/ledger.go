// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import "github.com/thebtf/dilse/internal/ledger"

// Ledger bundles the per-kind stores into a ledger.Store.
type Ledger struct {
	*PracticeStore
	*EntryStore
	*GratitudeStore
}

var _ ledger.Store = (*Ledger)(nil)

// NewLedger builds every per-kind store over one connection.
func NewLedger(store *Store) *Ledger {
	return &Ledger{
		PracticeStore:  NewPracticeStore(store),
		EntryStore:     NewEntryStore(store),
		GratitudeStore: NewGratitudeStore(store),
	}
}
