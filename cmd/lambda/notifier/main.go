// notifier Lambda publishes audit outcomes to the findings topic.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/karstlabs/platform-infra/internal/lambdax"
)

var (
	deps     *lambdax.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*lambdax.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = lambdax.Init(context.Background(), "TOPIC_ARN")
	})
	return deps, depsErr
}

func handleNotify(ctx context.Context, d *lambdax.Deps, req lambdax.NotifyRequest) (lambdax.NotifyResponse, error) {
	subject, body := lambdax.FormatSummary(req)

	out, err := d.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(d.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	if err != nil {
		d.Logger.Error("publishing summary", "environment", req.Report.Environment, "error", err)
		return lambdax.NotifyResponse{}, err
	}

	d.Logger.Info("summary published", "environment", req.Report.Environment, "messageId", aws.ToString(out.MessageId))
	return lambdax.NotifyResponse{MessageID: aws.ToString(out.MessageId)}, nil
}

func handler(ctx context.Context, req lambdax.NotifyRequest) (lambdax.NotifyResponse, error) {
	d, err := getDeps()
	if err != nil {
		return lambdax.NotifyResponse{}, err
	}
	return handleNotify(ctx, d, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
