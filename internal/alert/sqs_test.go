package alert

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karstlabs/platform-infra/pkg/types"
)

type mockSQS struct {
	sent []*sqs.SendMessageInput
}

func (m *mockSQS) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.sent = append(m.sent, input)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSSink_Send(t *testing.T) {
	mock := &mockSQS{}
	sink, err := NewSQSSink("https://sqs.us-east-1.amazonaws.com/123456789012/karst-drift", WithSQSClient(mock))
	require.NoError(t, err)

	err = sink.Send(context.Background(), sampleReport())
	require.NoError(t, err)

	require.Len(t, mock.sent, 1)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/karst-drift", *mock.sent[0].QueueUrl)

	var decoded types.DriftReport
	require.NoError(t, json.Unmarshal([]byte(*mock.sent[0].MessageBody), &decoded))
	assert.Equal(t, types.SeverityCritical, decoded.Severity)
}

func TestSQSSink_EmptyQueueURL(t *testing.T) {
	_, err := NewSQSSink("")
	assert.Error(t, err)
}
