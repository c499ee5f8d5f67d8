package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		counts       ChangeCounts
		err          string
		wantDrifted  bool
		wantSeverity Severity
	}{
		{"clean", ChangeCounts{Same: 20}, "", false, SeverityOK},
		{"creates only", ChangeCounts{Create: 2, Same: 18}, "", true, SeverityWarning},
		{"updates only", ChangeCounts{Update: 1}, "", true, SeverityWarning},
		{"delete escalates", ChangeCounts{Delete: 1, Same: 19}, "", true, SeverityCritical},
		{"replace escalates", ChangeCounts{Replace: 1}, "", true, SeverityCritical},
		{"error is critical", ChangeCounts{}, "preview failed", true, SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DriftReport{Counts: tt.counts, Error: tt.err}
			r.Classify()
			assert.Equal(t, tt.wantDrifted, r.Drifted)
			assert.Equal(t, tt.wantSeverity, r.Severity)
		})
	}
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityWarning))
	assert.True(t, SeverityWarning.AtLeast(SeverityWarning))
	assert.False(t, SeverityOK.AtLeast(SeverityWarning))
	assert.False(t, Severity("bogus").AtLeast(SeverityOK))
}

func TestChangeCountsTotal(t *testing.T) {
	c := ChangeCounts{Create: 1, Update: 2, Delete: 3, Replace: 4, Same: 100}
	assert.Equal(t, 10, c.Total())
}
