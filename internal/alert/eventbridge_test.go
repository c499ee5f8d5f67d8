package alert

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEventBridge struct {
	inputs []*eventbridge.PutEventsInput
	out    *eventbridge.PutEventsOutput
}

func (m *mockEventBridge) PutEvents(_ context.Context, input *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.out != nil {
		return m.out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func TestEventBridgeSink_Send(t *testing.T) {
	mock := &mockEventBridge{}
	sink, err := NewEventBridgeSink("karst-events", WithEventBridgeClient(mock))
	require.NoError(t, err)

	err = sink.Send(context.Background(), sampleReport())
	require.NoError(t, err)

	require.Len(t, mock.inputs, 1)
	require.Len(t, mock.inputs[0].Entries, 1)
	entry := mock.inputs[0].Entries[0]
	assert.Equal(t, "karst.drift", *entry.Source)
	assert.Equal(t, "Drift Detected", *entry.DetailType)
	assert.Equal(t, "karst-events", *entry.EventBusName)
	assert.Contains(t, *entry.Detail, `"staging"`)
}

func TestEventBridgeSink_DefaultBus(t *testing.T) {
	mock := &mockEventBridge{}
	sink, err := NewEventBridgeSink("", WithEventBridgeClient(mock))
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), sampleReport()))
	assert.Nil(t, mock.inputs[0].Entries[0].EventBusName)
}

func TestEventBridgeSink_FailedEntry(t *testing.T) {
	mock := &mockEventBridge{
		out: &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries: []ebtypes.PutEventsResultEntry{
				{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
			},
		},
	}
	sink, err := NewEventBridgeSink("", WithEventBridgeClient(mock))
	require.NoError(t, err)

	err = sink.Send(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
