package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPanicWave      BookmarkType = "panic_wave"
	BookmarkFirstBlood     BookmarkType = "first_blood"
	BookmarkFlockConverged BookmarkType = "flock_converged"
)

// Bookmark represents an automatically flagged moment in the run.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkThresholds configures detection sensitivity.
type BookmarkThresholds struct {
	PanicWaveMultiplier float64 // mean panic vs rolling average
	PanicWaveMinPanic   float64 // floor below which waves are ignored
	VarianceThreshold   float64 // density variance for convergence
	StableWindows       int     // consecutive calm windows to converge
}

// BookmarkDetector detects interesting moments from the window stats
// stream: panic waves, the first successful strike, and flock convergence.
type BookmarkDetector struct {
	thresholds BookmarkThresholds

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	firstBloodSeen bool
	calmWindows    int
	converged      bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, thresholds BookmarkThresholds) *BookmarkDetector {
	if historySize < 4 {
		historySize = 4
	}
	if thresholds.StableWindows < 1 {
		thresholds.StableWindows = 3
	}
	return &BookmarkDetector{
		thresholds:  thresholds,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstBlood(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkPanicWave(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkConvergence(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkFirstBlood flags the first successful strike of the run.
func (bd *BookmarkDetector) checkFirstBlood(stats WindowStats) *Bookmark {
	if bd.firstBloodSeen || stats.HuntSuccesses == 0 {
		return nil
	}
	bd.firstBloodSeen = true
	return &Bookmark{
		Type:        BookmarkFirstBlood,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("First successful strike (%d in window)", stats.HuntSuccesses),
	}
}

// checkPanicWave flags a window whose mean panic spikes far above the
// rolling average.
func (bd *BookmarkDetector) checkPanicWave(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.PanicMean
	}
	avg := total / float64(len(history))

	if stats.PanicMean < bd.thresholds.PanicWaveMinPanic {
		return nil
	}
	if avg > 0 && stats.PanicMean > avg*bd.thresholds.PanicWaveMultiplier {
		return &Bookmark{
			Type: BookmarkPanicWave,
			Tick: stats.WindowEndTick,
			Description: fmt.Sprintf("Mean panic %.2f is %.1fx average (%.2f), %d agents panicked",
				stats.PanicMean, stats.PanicMean/avg, avg, stats.PanickedCount),
		}
	}

	return nil
}

// checkConvergence flags the flock settling into a tight stable formation:
// low density variance held across consecutive windows with no panic.
// Triggers once; a later panic wave re-arms it.
func (bd *BookmarkDetector) checkConvergence(stats WindowStats) *Bookmark {
	if stats.PanicMean > 0.05 {
		bd.calmWindows = 0
		bd.converged = false
		return nil
	}

	if stats.DensityVariance < bd.thresholds.VarianceThreshold && stats.AgentCount > 0 {
		bd.calmWindows++
	} else {
		bd.calmWindows = 0
		return nil
	}

	if bd.calmWindows >= bd.thresholds.StableWindows && !bd.converged {
		bd.converged = true
		return &Bookmark{
			Type: BookmarkFlockConverged,
			Tick: stats.WindowEndTick,
			Description: fmt.Sprintf("Density variance %.2f below %.2f for %d windows",
				stats.DensityVariance, bd.thresholds.VarianceThreshold, bd.calmWindows),
		}
	}

	return nil
}
