package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/spf13/cobra"
)

// tailPollInterval is how often follow mode polls for new events.
const tailPollInterval = 2 * time.Second

// LogsAPI is the subset of the CloudWatch Logs client used by tail.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// NewTailCmd creates the tail command.
func NewTailCmd() *cobra.Command {
	var prefix string
	var since time.Duration
	var follow bool

	cmd := &cobra.Command{
		Use:   "tail <function>",
		Short: "Print recent log events for an edge Lambda function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading AWS config: %w", err)
			}
			client := cloudwatchlogs.NewFromConfig(cfg)
			return runTail(cmd.Context(), client, logGroupForFunction(prefix, args[0]), since, follow)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "karst-edge", "Resource name prefix of the deployed edge stack")
	cmd.Flags().DurationVar(&since, "since", 15*time.Minute, "How far back to start reading")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new events")
	return cmd
}

// logGroupForFunction maps a function short name to its log group.
func logGroupForFunction(prefix, function string) string {
	return fmt.Sprintf("/aws/lambda/%s-%s", prefix, function)
}

func runTail(ctx context.Context, client LogsAPI, logGroup string, since time.Duration, follow bool) error {
	start := time.Now().Add(-since)

	for {
		next, err := printEvents(ctx, client, logGroup, start)
		if err != nil {
			return err
		}
		if !follow {
			return nil
		}
		start = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tailPollInterval):
		}
	}
}

// printEvents prints every event in the group since start and returns the
// timestamp to resume from.
func printEvents(ctx context.Context, client LogsAPI, logGroup string, start time.Time) (time.Time, error) {
	next := start
	var token *string
	for {
		out, err := client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(logGroup),
			StartTime:    aws.Int64(start.UnixMilli()),
			NextToken:    token,
		})
		if err != nil {
			return next, fmt.Errorf("reading events from %s: %w", logGroup, err)
		}

		for _, event := range out.Events {
			ts := time.UnixMilli(aws.ToInt64(event.Timestamp))
			fmt.Printf("%s %s", ts.Format(time.RFC3339), aws.ToString(event.Message))
			if after := ts.Add(time.Millisecond); after.After(next) {
				next = after
			}
		}

		if out.NextToken == nil {
			return next, nil
		}
		token = out.NextToken
	}
}
