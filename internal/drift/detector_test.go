package drift

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/common/apitype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karstlabs/platform-infra/pkg/types"
)

type fakeStack struct {
	refreshErr error
	previewErr error
	summary    map[apitype.OpType]int

	mu        sync.Mutex
	refreshes int
	previews  int
}

func (f *fakeStack) Refresh(ctx context.Context, opts ...optrefresh.Option) (auto.RefreshResult, error) {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	return auto.RefreshResult{}, f.refreshErr
}

func (f *fakeStack) Preview(ctx context.Context, opts ...optpreview.Option) (auto.PreviewResult, error) {
	f.mu.Lock()
	f.previews++
	f.mu.Unlock()
	if f.previewErr != nil {
		return auto.PreviewResult{}, f.previewErr
	}
	return auto.PreviewResult{ChangeSummary: f.summary}, nil
}

func newTestDetector(t *testing.T, stacks map[string]*fakeStack, initErr map[string]error) *Detector {
	t.Helper()
	d := New("karst-test", types.DriftConfig{Parallelism: 2}, nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	d.newStack = func(ctx context.Context, env types.Environment) (stackClient, error) {
		if err := initErr[env.Name]; err != nil {
			return nil, err
		}
		s, ok := stacks[env.Name]
		require.True(t, ok, "no fake stack for %s", env.Name)
		return s, nil
	}
	return d
}

func TestDetectClean(t *testing.T) {
	stack := &fakeStack{summary: map[apitype.OpType]int{apitype.OpSame: 12}}
	d := newTestDetector(t, map[string]*fakeStack{"staging": stack}, nil)

	report := d.Detect(context.Background(), types.Environment{Name: "staging", Region: "us-east-1"})

	assert.False(t, report.Drifted)
	assert.Equal(t, types.SeverityOK, report.Severity)
	assert.Equal(t, 12, report.Counts.Same)
	assert.Empty(t, report.Error)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "staging", report.Stack)
	assert.Equal(t, 1, stack.refreshes)
	assert.Equal(t, 1, stack.previews)
}

func TestDetectDrifted(t *testing.T) {
	stack := &fakeStack{summary: map[apitype.OpType]int{
		apitype.OpSame:   8,
		apitype.OpUpdate: 2,
		apitype.OpDelete: 1,
	}}
	d := newTestDetector(t, map[string]*fakeStack{"prod": stack}, nil)

	report := d.Detect(context.Background(), types.Environment{Name: "prod", Stack: "prod-edge", Region: "us-east-1"})

	assert.True(t, report.Drifted)
	assert.Equal(t, types.SeverityCritical, report.Severity)
	assert.Equal(t, "prod-edge", report.Stack)
	assert.Equal(t, 2, report.Counts.Update)
	assert.Equal(t, 1, report.Counts.Delete)
	assert.Equal(t, 3, report.Counts.Total())
}

func TestDetectReplaceOpsFoldIntoReplace(t *testing.T) {
	stack := &fakeStack{summary: map[apitype.OpType]int{
		apitype.OpReplace:           1,
		apitype.OpCreateReplacement: 1,
		apitype.OpDeleteReplaced:    1,
	}}
	d := newTestDetector(t, map[string]*fakeStack{"staging": stack}, nil)

	report := d.Detect(context.Background(), types.Environment{Name: "staging", Region: "us-east-1"})

	assert.Equal(t, 3, report.Counts.Replace)
	assert.Equal(t, types.SeverityCritical, report.Severity)
}

func TestDetectRefreshError(t *testing.T) {
	stack := &fakeStack{refreshErr: errors.New("expired credentials")}
	d := newTestDetector(t, map[string]*fakeStack{"staging": stack}, nil)

	report := d.Detect(context.Background(), types.Environment{Name: "staging", Region: "us-east-1"})

	assert.Contains(t, report.Error, "refreshing stack")
	assert.Contains(t, report.Error, "expired credentials")
	assert.Equal(t, types.SeverityCritical, report.Severity)
	assert.True(t, report.Drifted)
	assert.Equal(t, 0, stack.previews)
}

func TestDetectPreviewError(t *testing.T) {
	stack := &fakeStack{previewErr: errors.New("rate exceeded")}
	d := newTestDetector(t, map[string]*fakeStack{"staging": stack}, nil)

	report := d.Detect(context.Background(), types.Environment{Name: "staging", Region: "us-east-1"})

	assert.Contains(t, report.Error, "previewing stack")
	assert.Equal(t, 1, stack.refreshes)
}

func TestDetectInitError(t *testing.T) {
	d := newTestDetector(t, nil, map[string]error{"staging": errors.New("no such plugin")})

	report := d.Detect(context.Background(), types.Environment{Name: "staging", Region: "us-east-1"})

	assert.Contains(t, report.Error, "initializing stack")
	assert.Equal(t, types.SeverityCritical, report.Severity)
}

func TestDetectAllOrderAndIsolation(t *testing.T) {
	stacks := map[string]*fakeStack{
		"dev":     {summary: map[apitype.OpType]int{apitype.OpSame: 5}},
		"staging": {summary: map[apitype.OpType]int{apitype.OpUpdate: 1, apitype.OpSame: 4}},
	}
	d := newTestDetector(t, stacks, map[string]error{"prod": errors.New("locked")})

	envs := []types.Environment{
		{Name: "dev", Region: "us-east-1"},
		{Name: "prod", Region: "us-east-1"},
		{Name: "staging", Region: "us-west-2"},
	}
	reports := d.DetectAll(context.Background(), envs)

	require.Len(t, reports, 3)
	assert.Equal(t, "dev", reports[0].Environment)
	assert.Equal(t, "prod", reports[1].Environment)
	assert.Equal(t, "staging", reports[2].Environment)

	assert.Equal(t, types.SeverityOK, reports[0].Severity)
	assert.NotEmpty(t, reports[1].Error)
	assert.True(t, reports[2].Drifted)
	assert.Equal(t, types.SeverityWarning, reports[2].Severity)
}

func TestDetectAllUnconfiguredParallelism(t *testing.T) {
	stack := &fakeStack{summary: map[apitype.OpType]int{apitype.OpSame: 1}}
	d := newTestDetector(t, map[string]*fakeStack{"dev": stack}, nil)
	d.cfg.Parallelism = 0

	reports := d.DetectAll(context.Background(), []types.Environment{{Name: "dev", Region: "us-east-1"}})
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Error)
}

func TestCountChangesIgnoresUnknownOps(t *testing.T) {
	counts := countChanges(map[apitype.OpType]int{
		apitype.OpCreate:  2,
		apitype.OpRefresh: 9,
	})
	assert.Equal(t, 2, counts.Create)
	assert.Equal(t, 2, counts.Total())
}
