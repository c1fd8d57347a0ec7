package app

import (
	"sync"

	"colour-replacer/internal/debug/timing"
	"colour-replacer/internal/gui"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/memory"
)

// Lifecycle releases what a run holds: windows first, then every tracked
// Mat.
type Lifecycle struct {
	memoryManager *memory.Manager
	guiManager    *gui.Manager
	timingTracker *timing.Tracker
	logger        logger.Logger
	once          sync.Once
}

func NewLifecycle(mm *memory.Manager, gm *gui.Manager, tt *timing.Tracker, log logger.Logger) *Lifecycle {
	return &Lifecycle{
		memoryManager: mm,
		guiManager:    gm,
		timingTracker: tt,
		logger:        log,
	}
}

func (l *Lifecycle) Shutdown() {
	l.once.Do(l.shutdown)
}

func (l *Lifecycle) shutdown() {
	l.logger.Info("Lifecycle", "shutdown sequence initiated", nil)

	if l.guiManager != nil {
		l.guiManager.Shutdown()
		l.logger.Debug("Lifecycle", "GUI manager shutdown completed", map[string]interface{}{
			"dropped_events": l.guiManager.Dropped(),
		})
	}

	if l.memoryManager != nil {
		stats := l.memoryManager.GetStats()
		released := l.memoryManager.Cleanup()
		l.logger.Debug("Lifecycle", "memory manager cleanup completed", map[string]interface{}{
			"released":   released,
			"peak_mats":  stats.PeakMats,
			"total_size": stats.TotalAllocated,
		})
	}

	if l.timingTracker != nil {
		l.logger.Info("Lifecycle", "timing summary", l.timingTracker.Summary())
	}

	l.logger.Info("Lifecycle", "shutdown sequence completed", nil)
}
