package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	schedulertypes "github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/karstlabs/platform-infra/internal/lambdax"
)

// SchedulerAPI is the subset of the EventBridge Scheduler client used here.
type SchedulerAPI interface {
	GetSchedule(ctx context.Context, params *scheduler.GetScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.GetScheduleOutput, error)
	CreateSchedule(ctx context.Context, params *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error)
	UpdateSchedule(ctx context.Context, params *scheduler.UpdateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error)
}

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	var name string
	var cron string
	var targetARN string
	var roleARN string
	var environment string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Create or update the recurring drift detection schedule",
		Long: `Upserts an EventBridge Scheduler schedule that invokes the collector
function on a cron expression, with the environment as the invocation payload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return fmt.Errorf("loading AWS config: %w", err)
			}
			client := scheduler.NewFromConfig(cfg)
			return runSchedule(ctx, client, name, cron, targetARN, roleARN, environment)
		},
	}

	cmd.Flags().StringVar(&name, "name", "karst-drift-check", "Schedule name")
	cmd.Flags().StringVar(&cron, "cron", "cron(0 */6 * * ? *)", "Schedule expression")
	cmd.Flags().StringVar(&targetARN, "target-arn", "", "ARN of the Lambda to invoke (required)")
	cmd.Flags().StringVar(&roleARN, "role-arn", "", "IAM role the scheduler assumes (required)")
	cmd.Flags().StringVar(&environment, "environment", "", "Environment the invocation runs against (required)")
	_ = cmd.MarkFlagRequired("target-arn")
	_ = cmd.MarkFlagRequired("role-arn")
	_ = cmd.MarkFlagRequired("environment")
	return cmd
}

func runSchedule(ctx context.Context, client SchedulerAPI, name, cron, targetARN, roleARN, environment string) error {
	// the collector takes a report-shaped payload; environment is enough
	// for a scheduled run, the rest is filled in downstream
	input, err := json.Marshal(lambdax.RemediationRequest{Environment: environment})
	if err != nil {
		return fmt.Errorf("encoding schedule input: %w", err)
	}
	target := &schedulertypes.Target{
		Arn:     aws.String(targetARN),
		RoleArn: aws.String(roleARN),
		Input:   aws.String(string(input)),
	}
	flexWindow := &schedulertypes.FlexibleTimeWindow{
		Mode: schedulertypes.FlexibleTimeWindowModeOff,
	}

	_, err = client.GetSchedule(ctx, &scheduler.GetScheduleInput{Name: aws.String(name)})
	if err != nil {
		var notFound *schedulertypes.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("checking schedule %s: %w", name, err)
		}
		_, err = client.CreateSchedule(ctx, &scheduler.CreateScheduleInput{
			Name:               aws.String(name),
			ScheduleExpression: aws.String(cron),
			Target:             target,
			FlexibleTimeWindow: flexWindow,
		})
		if err != nil {
			return fmt.Errorf("creating schedule %s: %w", name, err)
		}
		color.Green("Created schedule %s (%s)", name, cron)
		return nil
	}

	_, err = client.UpdateSchedule(ctx, &scheduler.UpdateScheduleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(cron),
		Target:             target,
		FlexibleTimeWindow: flexWindow,
	})
	if err != nil {
		return fmt.Errorf("updating schedule %s: %w", name, err)
	}
	color.Green("Updated schedule %s (%s)", name, cron)
	return nil
}
