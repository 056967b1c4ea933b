package frame

import (
	"log/slog"
	"time"

	"github.com/loov/hrtime"
)

// Stats counts loop outcomes since the synchronizer was created.
type Stats struct {
	Frames      int
	Skipped     int
	Recreations int
	LastFrame   time.Duration
	MeanFrame   time.Duration
}

type statsReporter struct {
	stats    Stats
	total    time.Duration
	interval time.Duration
	logger   *slog.Logger

	windowStart  time.Duration
	windowFrames int
}

func newStatsReporter(interval time.Duration, logger *slog.Logger) *statsReporter {
	return &statsReporter{
		interval:    interval,
		logger:      logger,
		windowStart: hrtime.Now(),
	}
}

func (r *statsReporter) presented(start time.Duration) {
	now := hrtime.Now()
	elapsed := now - start

	r.stats.Frames++
	r.stats.LastFrame = elapsed
	r.total += elapsed
	r.stats.MeanFrame = r.total / time.Duration(r.stats.Frames)
	r.windowFrames++

	if r.interval <= 0 {
		return
	}
	window := now - r.windowStart
	if window < r.interval {
		return
	}

	r.logger.Info("frame statistics",
		"fps", float64(r.windowFrames)/window.Seconds(),
		"lastFrame", r.stats.LastFrame,
		"meanFrame", r.stats.MeanFrame,
		"frames", r.stats.Frames,
		"skipped", r.stats.Skipped,
		"recreations", r.stats.Recreations)
	r.windowStart = now
	r.windowFrames = 0
}
