package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// Event metadata attached to every drift event.
const (
	eventSource     = "karst.drift"
	eventDetailType = "Drift Detected"
)

// EventBridgeAPI is the subset of the EventBridge client used by EventBridgeSink.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, input *eventbridge.PutEventsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeSink emits drift reports as events on an EventBridge bus.
type EventBridgeSink struct {
	client EventBridgeAPI
	bus    string // empty means the default bus
}

// EventBridgeSinkOption configures an EventBridgeSink.
type EventBridgeSinkOption func(*EventBridgeSink)

// WithEventBridgeClient sets a custom EventBridge client (useful for testing).
func WithEventBridgeClient(c EventBridgeAPI) EventBridgeSinkOption {
	return func(s *EventBridgeSink) { s.client = c }
}

// NewEventBridgeSink creates a new EventBridge report sink.
func NewEventBridgeSink(bus string, opts ...EventBridgeSinkOption) (*EventBridgeSink, error) {
	s := &EventBridgeSink{bus: bus}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = eventbridge.NewFromConfig(cfg)
	}
	return s, nil
}

// Name returns the sink identifier.
func (s *EventBridgeSink) Name() string { return "eventbridge" }

// Send emits the report as a single event. Failed entries are surfaced as
// errors even when the PutEvents call itself succeeds.
func (s *EventBridgeSink) Send(ctx context.Context, report types.DriftReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	entry := ebtypes.PutEventsRequestEntry{
		Source:     aws.String(eventSource),
		DetailType: aws.String(eventDetailType),
		Detail:     aws.String(string(data)),
	}
	if s.bus != "" {
		entry.EventBusName = aws.String(s.bus)
	}

	out, err := s.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("putting event: %w", err)
	}
	if out.FailedEntryCount > 0 {
		for _, e := range out.Entries {
			if e.ErrorCode != nil {
				return fmt.Errorf("event rejected: %s", aws.ToString(e.ErrorMessage))
			}
		}
		return fmt.Errorf("event rejected")
	}
	return nil
}
