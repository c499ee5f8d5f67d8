package commands

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogs struct {
	pages []*cloudwatchlogs.FilterLogEventsOutput
	calls int
}

func (m *mockLogs) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	out := m.pages[m.calls]
	m.calls++
	return out, nil
}

func TestPrintEventsPagination(t *testing.T) {
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	logs := &mockLogs{pages: []*cloudwatchlogs.FilterLogEventsOutput{
		{
			Events: []cwtypes.FilteredLogEvent{
				{Timestamp: aws.Int64(base.UnixMilli()), Message: aws.String("first\n")},
			},
			NextToken: aws.String("page2"),
		},
		{
			Events: []cwtypes.FilteredLogEvent{
				{Timestamp: aws.Int64(base.Add(time.Second).UnixMilli()), Message: aws.String("second\n")},
			},
		},
	}}

	next, err := printEvents(context.Background(), logs, "/aws/lambda/karst-edge-api", base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, logs.calls)
	assert.True(t, next.After(base.Add(time.Second)))
}

func TestPrintEventsEmpty(t *testing.T) {
	start := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	logs := &mockLogs{pages: []*cloudwatchlogs.FilterLogEventsOutput{{}}}

	next, err := printEvents(context.Background(), logs, "/aws/lambda/karst-edge-api", start)
	require.NoError(t, err)
	assert.Equal(t, start, next)
}
