package orchestrator

import "sync"

// Manager tracks runs by batch ID so pause, resume, cancel, and progress
// requests can find them. Finished runs stay registered; their terminal
// status and final progress remain readable.
type Manager struct {
	mu   sync.RWMutex
	runs map[int64]*Run
}

// NewManager creates an empty run registry.
func NewManager() *Manager {
	return &Manager{runs: make(map[int64]*Run)}
}

// Register adds a run to the registry.
func (m *Manager) Register(r *Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
}

// Get returns the run for a batch ID, or nil if none is registered.
func (m *Manager) Get(batchID int64) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[batchID]
}

// Remove drops a run from the registry.
func (m *Manager) Remove(batchID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, batchID)
}
