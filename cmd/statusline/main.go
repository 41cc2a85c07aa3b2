// Package main prints a one-line practice summary from a running dilse
// worker, for use in shell prompts and terminal status bars.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/dilse/internal/config"
)

// PracticeStats is the response of the worker's /api/practice/stats endpoint.
type PracticeStats struct {
	Error          string `json:"error,omitempty"`
	DaysPracticing int    `json:"daysPracticing"`
	TotalSessions  int    `json:"totalSessions"`
	MinutesToday   int    `json:"minutesToday"`
	Loading        bool   `json:"loading"`
}

type workerState int

const (
	stateOffline workerState = iota
	stateStarting
	stateReady
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorRed    = "\033[31m"
)

func main() {
	endpoint := fmt.Sprintf("http://127.0.0.1:%d", config.GetWorkerPort())
	state, stats := fetchStats(&http.Client{Timeout: 100 * time.Millisecond}, endpoint)
	fmt.Println(formatStatusLine(state, stats, useColors(), os.Getenv("DILSE_STATUSLINE_FORMAT")))
}

// fetchStats asks the worker at baseURL for practice statistics.
func fetchStats(client *http.Client, baseURL string) (workerState, *PracticeStats) {
	resp, err := client.Get(baseURL + "/api/practice/stats")
	if err != nil {
		return stateOffline, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return stateStarting, nil
	default:
		return stateOffline, nil
	}

	var stats PracticeStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stateOffline, nil
	}
	return stateReady, &stats
}

// useColors is on unless NO_COLOR is set or TERM is dumb.
// DILSE_STATUSLINE_COLORS=true|false overrides both.
func useColors() bool {
	switch os.Getenv("DILSE_STATUSLINE_COLORS") {
	case "true":
		return true
	case "false":
		return false
	}
	return os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
}

func paint(color, s string, on bool) string {
	if !on {
		return s
	}
	return color + s + colorReset
}

// formatStatusLine renders the line in the requested format: default,
// compact or minimal.
func formatStatusLine(state workerState, stats *PracticeStats, colors bool, format string) string {
	switch {
	case state == stateOffline || (state == stateReady && stats == nil):
		return paint(colorCyan, "[dilse]", colors) + " " + paint(colorGray, "○", colors)
	case state == stateStarting:
		return paint(colorCyan, "[dilse]", colors) + " " + paint(colorYellow, "◐", colors) + " starting"
	}

	indicator := paint(colorGreen, "●", colors)
	if stats.Error != "" {
		indicator = paint(colorRed, "●", colors)
	}

	switch format {
	case "compact":
		// [d] ● 12/3/25
		return fmt.Sprintf("%s %s %d/%d/%d", paint(colorCyan, "[d]", colors), indicator,
			stats.DaysPracticing, stats.TotalSessions, stats.MinutesToday)
	case "minimal":
		// ● 25m
		return fmt.Sprintf("%s %dm", indicator, stats.MinutesToday)
	}

	// [dilse] ● days:12 | sessions:3 | today:25m
	line := fmt.Sprintf("%s %s days:%d | sessions:%d | today:%dm", paint(colorCyan, "[dilse]", colors), indicator,
		stats.DaysPracticing, stats.TotalSessions, stats.MinutesToday)
	if stats.Loading {
		line += " | " + paint(colorYellow, "syncing...", colors)
	}
	return line
}
