// Package drift detects divergence between declared stacks and live cloud
// state by driving the Pulumi automation API: upsert the stack inline,
// refresh remote state, preview, then classify the change summary.
package drift

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/common/apitype"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"golang.org/x/sync/errgroup"

	"github.com/karstlabs/platform-infra/internal/metrics"
	"github.com/karstlabs/platform-infra/pkg/types"
)

// ProgramFactory builds the inline Pulumi program for an environment.
type ProgramFactory func(env types.Environment) pulumi.RunFunc

// stackClient is the subset of the automation API stack used by the detector.
type stackClient interface {
	Refresh(ctx context.Context, opts ...optrefresh.Option) (auto.RefreshResult, error)
	Preview(ctx context.Context, opts ...optpreview.Option) (auto.PreviewResult, error)
}

// stackFactory initializes the stack for an environment. Swapped out in tests.
type stackFactory func(ctx context.Context, env types.Environment) (stackClient, error)

// Detector runs drift detection against one or more environments.
type Detector struct {
	project  string
	cfg      types.DriftConfig
	newStack stackFactory
	logger   *slog.Logger
	progress io.Writer
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithProgressWriter streams refresh/preview progress to w.
func WithProgressWriter(w io.Writer) Option {
	return func(d *Detector) { d.progress = w }
}

// New creates a detector for the given Pulumi project. The program factory
// supplies the declared state each environment is compared against.
func New(project string, cfg types.DriftConfig, program ProgramFactory, opts ...Option) *Detector {
	d := &Detector{
		project:  project,
		cfg:      cfg,
		logger:   slog.Default(),
		progress: io.Discard,
	}
	for _, o := range opts {
		o(d)
	}
	d.newStack = func(ctx context.Context, env types.Environment) (stackClient, error) {
		return d.initStack(ctx, env, program)
	}
	return d
}

// initStack upserts the environment's stack from the inline program and
// pushes region, profile, and per-environment config into it.
func (d *Detector) initStack(ctx context.Context, env types.Environment, program ProgramFactory) (stackClient, error) {
	s, err := auto.UpsertStackInlineSource(ctx, env.StackName(), d.project, program(env))
	if err != nil {
		return nil, fmt.Errorf("upserting stack: %w", err)
	}

	if err := s.Workspace().InstallPlugin(ctx, "aws", d.cfg.PluginVersion); err != nil {
		return nil, fmt.Errorf("installing aws plugin: %w", err)
	}

	if err := s.SetConfig(ctx, "aws:region", auto.ConfigValue{Value: env.Region}); err != nil {
		return nil, fmt.Errorf("setting aws:region: %w", err)
	}
	if env.Profile != "" {
		if err := s.SetConfig(ctx, "aws:profile", auto.ConfigValue{Value: env.Profile}); err != nil {
			return nil, fmt.Errorf("setting aws:profile: %w", err)
		}
	}
	for k, v := range env.Config {
		if err := s.SetConfig(ctx, k, auto.ConfigValue{Value: v}); err != nil {
			return nil, fmt.Errorf("setting %s: %w", k, err)
		}
	}

	return &s, nil
}

// Detect runs one refresh+preview cycle against a single environment. The
// outcome is always a report; failures are recorded on it rather than
// returned, so one broken environment never hides the rest.
func (d *Detector) Detect(ctx context.Context, env types.Environment) types.DriftReport {
	started := time.Now()
	report := types.DriftReport{
		RunID:       ulid.Make().String(),
		Environment: env.Name,
		Stack:       env.StackName(),
		StartedAt:   started.UTC(),
	}
	metrics.DriftRunsTotal.Add(1)

	d.logger.Info("detecting drift", "environment", env.Name, "stack", report.Stack)
	d.detect(ctx, env, &report)

	report.Duration = time.Since(started)
	report.Classify()

	switch {
	case report.Error != "":
		metrics.DriftRunFailures.Add(1)
	case report.Drifted:
		metrics.StacksDrifted.Add(1)
	default:
		metrics.StacksClean.Add(1)
	}
	return report
}

func (d *Detector) detect(ctx context.Context, env types.Environment, report *types.DriftReport) {
	s, err := d.newStack(ctx, env)
	if err != nil {
		report.Error = fmt.Sprintf("initializing stack: %v", err)
		return
	}

	if _, err := s.Refresh(ctx, optrefresh.ProgressStreams(d.progress)); err != nil {
		metrics.RefreshFailures.Add(1)
		report.Error = fmt.Sprintf("refreshing stack: %v", err)
		return
	}

	prev, err := s.Preview(ctx, optpreview.ProgressStreams(d.progress))
	if err != nil {
		metrics.PreviewFailures.Add(1)
		report.Error = fmt.Sprintf("previewing stack: %v", err)
		return
	}

	report.Counts = countChanges(prev.ChangeSummary)
}

// DetectAll fans detection out across environments with bounded parallelism.
// Reports come back in the same order as the input environments.
func (d *Detector) DetectAll(ctx context.Context, envs []types.Environment) []types.DriftReport {
	parallelism := d.cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	reports := make([]types.DriftReport, len(envs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, env := range envs {
		g.Go(func() error {
			reports[i] = d.Detect(gctx, env)
			return nil
		})
	}
	_ = g.Wait() // Detect never returns an error through the group
	return reports
}

func countChanges(summary map[apitype.OpType]int) types.ChangeCounts {
	var c types.ChangeCounts
	for op, n := range summary {
		switch op {
		case apitype.OpCreate:
			c.Create += n
		case apitype.OpUpdate:
			c.Update += n
		case apitype.OpDelete:
			c.Delete += n
		case apitype.OpReplace, apitype.OpCreateReplacement, apitype.OpDeleteReplaced:
			c.Replace += n
		case apitype.OpSame:
			c.Same += n
		}
	}
	return c
}
