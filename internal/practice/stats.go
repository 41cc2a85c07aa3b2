package practice

import (
	"time"

	"github.com/thebtf/dilse/pkg/models"
)

// RecentLimit is the size of the recent-activity view.
const RecentLimit = 3

// ComputeStats derives practice statistics from sessions. Days are bucketed
// by calendar date in loc; "today" is the date of now in loc.
func ComputeStats(sessions []models.PracticeSession, now time.Time, loc *time.Location) models.PracticeStats {
	if loc == nil {
		loc = time.Local
	}

	today := now.In(loc).Format(models.DateLayout)
	days := make(map[string]struct{}, len(sessions))
	stats := models.PracticeStats{TotalSessions: len(sessions)}

	for _, s := range sessions {
		day := s.Timestamp.In(loc).Format(models.DateLayout)
		days[day] = struct{}{}
		if day == today {
			stats.MinutesToday += s.Duration
		}
	}

	stats.DaysPracticing = len(days)
	return stats
}

// Recent returns up to n sessions from the front of a newest-first list.
// The result is a copy.
func Recent(sessions []models.PracticeSession, n int) []models.PracticeSession {
	if n > len(sessions) {
		n = len(sessions)
	}
	if n <= 0 {
		return []models.PracticeSession{}
	}
	out := make([]models.PracticeSession, n)
	copy(out, sessions[:n])
	return out
}
