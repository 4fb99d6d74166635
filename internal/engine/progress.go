package engine

import (
	"log/slog"
	"time"
)

const (
	progressEvery    = 10
	progressInterval = 30 * time.Second
)

// progressTracker emits periodic run statistics while a pass is in flight.
type progressTracker struct {
	logger  *slog.Logger
	total   int
	started time.Time
	lastLog time.Time

	processed int
	succeeded int
	failed    int
	skipped   int
}

func newProgressTracker(total int, logger *slog.Logger) *progressTracker {
	now := time.Now()
	return &progressTracker{logger: logger, total: total, started: now, lastLog: now}
}

func (p *progressTracker) success() { p.processed++; p.succeeded++; p.maybeLog() }
func (p *progressTracker) failure() { p.processed++; p.failed++; p.maybeLog() }
func (p *progressTracker) skip()    { p.skipped++ }

func (p *progressTracker) maybeLog() {
	if p.processed%progressEvery != 0 && time.Since(p.lastLog) < progressInterval {
		return
	}
	p.lastLog = time.Now()
	p.log("progress")
}

func (p *progressTracker) finish() {
	p.log("run complete")
}

func (p *progressTracker) log(msg string) {
	elapsed := time.Since(p.started)

	var pct float64
	if p.total > 0 {
		pct = float64(p.processed) / float64(p.total) * 100
	}
	var rate float64
	if mins := elapsed.Minutes(); mins > 0 {
		rate = float64(p.processed) / mins
	}
	var eta time.Duration
	if rate > 0 && p.total > p.processed {
		eta = time.Duration(float64(p.total-p.processed) / rate * float64(time.Minute))
	}

	p.logger.Info(msg,
		"processed", p.processed,
		"total", p.total,
		"percent", pct,
		"elapsed", elapsed.Round(time.Second).String(),
		"rate_per_min", rate,
		"eta", eta.Round(time.Second).String(),
		"succeeded", p.succeeded,
		"failed", p.failed,
		"skipped", p.skipped,
	)
}
