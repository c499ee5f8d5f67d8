// Package types defines the public domain types shared by the karst platform tooling.
package types

import "time"

// Severity classifies how serious a drift finding is.
type Severity string

// Severity values, ordered from least to most serious.
const (
	SeverityOK       Severity = "OK"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the ordering value of a severity, with unknown values ranked lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityOK:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether s is at or above the given threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// ChangeCounts aggregates the resource operations a preview would perform.
type ChangeCounts struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Delete  int `json:"delete"`
	Replace int `json:"replace"`
	Same    int `json:"same"`
}

// Total returns the number of resources that would change. Unchanged
// resources are excluded.
func (c ChangeCounts) Total() int {
	return c.Create + c.Update + c.Delete + c.Replace
}

// DriftReport is the outcome of one drift detection run against one stack.
type DriftReport struct {
	RunID       string        `json:"runId"`
	Environment string        `json:"environment"`
	Stack       string        `json:"stack"`
	Counts      ChangeCounts  `json:"counts"`
	Drifted     bool          `json:"drifted"`
	Severity    Severity      `json:"severity"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Classify derives Drifted and Severity from the change counts. A failed
// detection is always critical: an unreviewable stack is treated as drifted.
func (r *DriftReport) Classify() {
	if r.Error != "" {
		r.Drifted = true
		r.Severity = SeverityCritical
		return
	}
	r.Drifted = r.Counts.Total() > 0
	switch {
	case r.Counts.Delete > 0 || r.Counts.Replace > 0:
		r.Severity = SeverityCritical
	case r.Drifted:
		r.Severity = SeverityWarning
	default:
		r.Severity = SeverityOK
	}
}
