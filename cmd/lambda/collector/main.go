// collector Lambda persists drift report snapshots to the artifacts bucket.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	"github.com/karstlabs/platform-infra/internal/lambdax"
	"github.com/karstlabs/platform-infra/pkg/types"
)

var (
	deps     *lambdax.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*lambdax.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = lambdax.Init(context.Background(), "BUCKET_NAME")
	})
	return deps, depsErr
}

// handleCollect writes the report as JSON under drift/<env>/<runID>.json.
// Reports arriving without a run ID get one assigned here.
func handleCollect(ctx context.Context, d *lambdax.Deps, report types.DriftReport) (lambdax.CollectResponse, error) {
	if report.Environment == "" {
		return lambdax.CollectResponse{}, fmt.Errorf("report has no environment")
	}
	if report.RunID == "" {
		report.RunID = ulid.Make().String()
	}

	body, err := json.Marshal(report)
	if err != nil {
		return lambdax.CollectResponse{}, fmt.Errorf("encoding report: %w", err)
	}

	key := lambdax.SnapshotKey(report.Environment, report.RunID)
	_, err = d.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		d.Logger.Error("writing snapshot", "key", key, "error", err)
		return lambdax.CollectResponse{}, fmt.Errorf("writing snapshot %s: %w", key, err)
	}

	d.Logger.Info("snapshot written", "bucket", d.BucketName, "key", key)
	return lambdax.CollectResponse{Bucket: d.BucketName, Key: key}, nil
}

func handler(ctx context.Context, report types.DriftReport) (lambdax.CollectResponse, error) {
	d, err := getDeps()
	if err != nil {
		return lambdax.CollectResponse{}, err
	}
	return handleCollect(ctx, d, report)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
