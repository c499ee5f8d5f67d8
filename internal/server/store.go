package server

import (
	"sort"
	"sync"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// historyLimit caps how many reports the store keeps per environment.
const historyLimit = 50

// Store keeps drift reports in memory, newest first per environment.
type Store struct {
	mu      sync.RWMutex
	reports map[string][]types.DriftReport
}

// NewStore creates an empty report store.
func NewStore() *Store {
	return &Store{reports: make(map[string][]types.DriftReport)}
}

// Put records a report for its environment.
func (s *Store) Put(report types.DriftReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]types.DriftReport{report}, s.reports[report.Environment]...)
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}
	s.reports[report.Environment] = history
}

// Latest returns the newest report per environment, sorted by environment.
func (s *Store) Latest() []types.DriftReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.DriftReport, 0, len(s.reports))
	for _, history := range s.reports {
		out = append(out, history[0])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Environment < out[j].Environment
	})
	return out
}

// History returns the stored reports for one environment, newest first.
// The second return is false when the environment is unknown.
func (s *Store) History(environment string) ([]types.DriftReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.reports[environment]
	if !ok {
		return nil, false
	}
	out := make([]types.DriftReport, len(history))
	copy(out, history)
	return out, true
}
