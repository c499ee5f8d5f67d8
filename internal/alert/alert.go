// Package alert implements drift report dispatching to multiple sinks.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karstlabs/platform-infra/internal/metrics"
	"github.com/karstlabs/platform-infra/pkg/types"
)

// Sink is a drift report destination.
type Sink interface {
	Send(ctx context.Context, report types.DriftReport) error
	Name() string
}

// Dispatcher routes drift reports to configured sinks.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from alert configs.
func NewDispatcher(configs []types.AlertConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for _, cfg := range configs {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s sink: %w", cfg.Type, err)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// Dispatch sends a report to all configured sinks. Sink failures are logged
// and counted, never fatal: one broken destination must not hide drift from
// the others.
func (d *Dispatcher) Dispatch(ctx context.Context, report types.DriftReport) {
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, report); err != nil {
			metrics.ReportDispatchErrs.Add(1)
			d.logger.Error("dispatching report",
				"sink", sink.Name(),
				"environment", report.Environment,
				"error", err,
			)
			continue
		}
		metrics.ReportsDispatched.Add(1)
	}
}

func newSink(cfg types.AlertConfig) (Sink, error) {
	switch cfg.Type {
	case types.AlertConsole:
		return NewConsoleSink(), nil
	case types.AlertFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path)
	case types.AlertWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		return NewWebhookSink(cfg.URL), nil
	case types.AlertSNS:
		if cfg.TopicARN == "" {
			return nil, fmt.Errorf("SNS topic ARN required")
		}
		return NewSNSSink(cfg.TopicARN)
	case types.AlertSQS:
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("SQS queue URL required")
		}
		return NewSQSSink(cfg.QueueURL)
	case types.AlertEventBridge:
		return NewEventBridgeSink(cfg.EventBus)
	default:
		return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
	}
}
