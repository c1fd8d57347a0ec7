package memory

import (
	"sync"
	"time"

	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/safe"
)

// Manager keeps every Mat produced during a run so teardown can close
// whatever the workflow did not release itself.
type Manager struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.Mutex
	stats       Stats
	logger      logger.Logger
}

type AllocationRecord struct {
	Mat       *safe.Mat
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PeakMats       int64
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		allocations: make(map[uint64]*AllocationRecord),
		logger:      log,
	}
}

// Track registers mat and returns it. Tracking a Mat twice is a no-op.
func (m *Manager) Track(mat *safe.Mat) *safe.Mat {
	if mat == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.allocations[mat.ID()]; exists {
		return mat
	}

	size := int64(mat.Rows() * mat.Cols() * mat.Channels())
	m.allocations[mat.ID()] = &AllocationRecord{
		Mat:       mat,
		CreatedAt: time.Now(),
		Size:      size,
	}

	m.stats.TotalAllocated += size
	m.stats.ActiveMats++
	if m.stats.ActiveMats > m.stats.PeakMats {
		m.stats.PeakMats = m.stats.ActiveMats
	}

	m.logger.Debug("MemoryManager", "Mat tracked", map[string]interface{}{
		"tag":   mat.Tag(),
		"bytes": size,
	})

	return mat
}

// Release closes mat and stops tracking it.
func (m *Manager) Release(mat *safe.Mat) {
	if mat == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.allocations[mat.ID()]
	if !exists {
		m.logger.Warning("MemoryManager", "releasing untracked Mat", map[string]interface{}{
			"tag": mat.Tag(),
		})
		mat.Close()
		return
	}

	m.release(mat.ID(), record)
}

func (m *Manager) release(id uint64, record *AllocationRecord) {
	record.Mat.Close()
	delete(m.allocations, id)
	m.stats.TotalReleased += record.Size
	m.stats.ActiveMats--
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stats
}

// Cleanup closes every tracked Mat and returns how many were closed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	matCount := 0
	for id, record := range m.allocations {
		m.release(id, record)
		matCount++
	}

	m.logger.Debug("MemoryManager", "tracked Mats released", map[string]interface{}{
		"count": matCount,
	})

	return matCount
}

func (m *Manager) Shutdown() {
	m.Cleanup()
}
