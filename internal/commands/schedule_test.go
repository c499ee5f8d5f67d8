package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	schedulertypes "github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockScheduler struct {
	getErr     error
	lastCreate *scheduler.CreateScheduleInput
	lastUpdate *scheduler.UpdateScheduleInput
}

func (m *mockScheduler) GetSchedule(ctx context.Context, params *scheduler.GetScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.GetScheduleOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &scheduler.GetScheduleOutput{Name: params.Name}, nil
}

func (m *mockScheduler) CreateSchedule(ctx context.Context, params *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error) {
	m.lastCreate = params
	return &scheduler.CreateScheduleOutput{}, nil
}

func (m *mockScheduler) UpdateSchedule(ctx context.Context, params *scheduler.UpdateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error) {
	m.lastUpdate = params
	return &scheduler.UpdateScheduleOutput{}, nil
}

func TestRunScheduleCreatesWhenMissing(t *testing.T) {
	client := &mockScheduler{getErr: &schedulertypes.ResourceNotFoundException{}}

	err := runSchedule(context.Background(), client, "karst-drift-check", "cron(0 */6 * * ? *)",
		"arn:aws:lambda:us-east-1:123456789012:function:collector",
		"arn:aws:iam::123456789012:role/scheduler", "prod")
	require.NoError(t, err)

	require.NotNil(t, client.lastCreate)
	assert.Nil(t, client.lastUpdate)
	assert.Equal(t, "cron(0 */6 * * ? *)", aws.ToString(client.lastCreate.ScheduleExpression))
	assert.Equal(t, schedulertypes.FlexibleTimeWindowModeOff, client.lastCreate.FlexibleTimeWindow.Mode)
	assert.JSONEq(t, `{"environment": "prod"}`, aws.ToString(client.lastCreate.Target.Input))
}

func TestRunScheduleUpdatesWhenPresent(t *testing.T) {
	client := &mockScheduler{}

	err := runSchedule(context.Background(), client, "karst-drift-check", "cron(0 12 * * ? *)",
		"arn:aws:lambda:us-east-1:123456789012:function:collector",
		"arn:aws:iam::123456789012:role/scheduler", "staging")
	require.NoError(t, err)

	require.NotNil(t, client.lastUpdate)
	assert.Nil(t, client.lastCreate)
	assert.Equal(t, "cron(0 12 * * ? *)", aws.ToString(client.lastUpdate.ScheduleExpression))
	assert.JSONEq(t, `{"environment": "staging"}`, aws.ToString(client.lastUpdate.Target.Input))
}

func TestRunScheduleOtherGetError(t *testing.T) {
	client := &mockScheduler{getErr: errors.New("access denied")}

	err := runSchedule(context.Background(), client, "x", "cron(0 12 * * ? *)", "arn:a", "arn:b", "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking schedule")
	assert.Nil(t, client.lastCreate)
	assert.Nil(t, client.lastUpdate)
}
