package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/dilse/pkg/models"
)

func session(tool models.ToolKind, minutes int, ts time.Time) models.PracticeSession {
	return models.PracticeSession{Tool: tool, ToolName: string(tool), Duration: minutes, Timestamp: ts, Completed: true}
}

func TestComputeStats(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 6, 10, 0, 30, 0, 0, loc)

	tests := []struct {
		name     string
		sessions []models.PracticeSession
		want     models.PracticeStats
	}{
		{
			name: "empty",
			want: models.PracticeStats{},
		},
		{
			name: "yesterday within 24h excluded from today",
			sessions: []models.PracticeSession{
				session(models.ToolBreathing, 4, now.Add(-10*time.Minute)),
				session(models.ToolMood, 2, now.Add(-45*time.Minute)),
			},
			want: models.PracticeStats{DaysPracticing: 2, TotalSessions: 2, MinutesToday: 4},
		},
		{
			name: "same day counted once",
			sessions: []models.PracticeSession{
				session(models.ToolJournal, 5, now.Add(time.Hour)),
				session(models.ToolMood, 2, now.Add(2*time.Hour)),
				session(models.ToolGrounding, 1, now.Add(-72*time.Hour)),
			},
			want: models.PracticeStats{DaysPracticing: 2, TotalSessions: 3, MinutesToday: 7},
		},
		{
			name: "utc timestamps bucketed in local zone",
			sessions: []models.PracticeSession{
				// 2025-06-09T19:00Z is 00:30 on the 10th in IST.
				session(models.ToolMeditation, 10, time.Date(2025, 6, 9, 19, 0, 0, 0, time.UTC)),
			},
			want: models.PracticeStats{DaysPracticing: 1, TotalSessions: 1, MinutesToday: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.sessions, now, loc)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.DaysPracticing, got.TotalSessions)
		})
	}
}

func TestComputeStats_NilLocation(t *testing.T) {
	now := time.Now()
	got := ComputeStats([]models.PracticeSession{session(models.ToolSupport, 0, now)}, now, nil)
	assert.Equal(t, 1, got.TotalSessions)
}

func TestRecent(t *testing.T) {
	now := time.Now()
	all := []models.PracticeSession{
		session(models.ToolMood, 2, now),
		session(models.ToolBreathing, 4, now.Add(-time.Minute)),
		session(models.ToolJournal, 5, now.Add(-2*time.Minute)),
		session(models.ToolGratitude, 3, now.Add(-3*time.Minute)),
	}

	got := Recent(all, RecentLimit)
	assert.Len(t, got, 3)
	assert.Equal(t, models.ToolMood, got[0].Tool)
	assert.Equal(t, models.ToolJournal, got[2].Tool)

	got[0].ToolName = "changed"
	assert.Equal(t, "mood", all[0].ToolName)

	assert.Len(t, Recent(all[:2], RecentLimit), 2)
	assert.NotNil(t, Recent(nil, RecentLimit))
	assert.Empty(t, Recent(nil, RecentLimit))
}
