package activity

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/thebtf/dilse/internal/practice"
	"github.com/thebtf/dilse/pkg/models"
)

// SnapshotSource supplies the practice view shown on the dashboard.
type SnapshotSource interface {
	Snapshot() practice.Snapshot
}

// EntryCounts totals the saved entries of each kind.
type EntryCounts struct {
	Mood      int `json:"mood"`
	Journal   int `json:"journal"`
	Gratitude int `json:"gratitude"`
}

// Dashboard is the signed-in landing view.
type Dashboard struct {
	LatestMood     *models.MoodEntry        `json:"latestMood,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Recent         []models.PracticeSession `json:"recentSessions"`
	Stats          models.PracticeStats     `json:"stats"`
	Counts         EntryCounts              `json:"counts"`
	CheckedInToday bool                     `json:"checkedInToday"`
	Loading        bool                     `json:"loading"`
}

// Dashboard assembles practice statistics with the user's saved entries.
// The three entry lists load concurrently; any that fail show as empty.
func (s *Service) Dashboard(ctx context.Context, src SnapshotSource) (Dashboard, error) {
	if _, err := s.identity(); err != nil {
		return Dashboard{}, err
	}

	var (
		moods     []models.MoodEntry
		journals  []models.JournalEntry
		gratitude []models.GratitudeEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		moods, err = s.MoodEntries(gctx)
		return err
	})
	g.Go(func() (err error) {
		journals, err = s.JournalEntries(gctx)
		return err
	})
	g.Go(func() (err error) {
		gratitude, err = s.GratitudeEntries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	snap := src.Snapshot()
	d := Dashboard{
		Recent:  snap.Recent,
		Stats:   snap.Stats,
		Loading: snap.Loading,
		Error:   snap.Error,
		Counts: EntryCounts{
			Mood:      len(moods),
			Journal:   len(journals),
			Gratitude: len(gratitude),
		},
	}
	if len(moods) > 0 {
		latest := moods[0]
		d.LatestMood = &latest
		d.CheckedInToday = latest.Date == s.today()
	}
	return d, nil
}
