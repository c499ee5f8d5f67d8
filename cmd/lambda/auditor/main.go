// auditor Lambda checks a drift report against the resource inventory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/karstlabs/platform-infra/internal/lambdax"
)

var (
	deps     *lambdax.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*lambdax.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = lambdax.Init(context.Background(), "TABLE_NAME")
	})
	return deps, depsErr
}

// handleAudit loads the inventory partition for the report's environment and
// runs the audit rules over it.
func handleAudit(ctx context.Context, d *lambdax.Deps, req lambdax.AuditRequest) (lambdax.AuditResult, error) {
	env := req.Report.Environment
	if env == "" {
		return lambdax.AuditResult{}, fmt.Errorf("report has no environment")
	}

	records, err := loadInventory(ctx, d, env)
	if err != nil {
		return lambdax.AuditResult{}, fmt.Errorf("loading inventory for %s: %w", env, err)
	}

	result := lambdax.Audit(records, req.Report)
	d.Logger.Info("audit complete",
		"environment", env,
		"records", len(records),
		"pass", result.Pass,
		"findings", result.FindingCount,
	)
	return result, nil
}

func loadInventory(ctx context.Context, d *lambdax.Deps, env string) ([]lambdax.ResourceRecord, error) {
	var records []lambdax.ResourceRecord
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := d.DB.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.TableName),
			KeyConditionExpression: aws.String("#env = :env"),
			ExpressionAttributeNames: map[string]string{
				"#env": "environment",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":env": &ddbtypes.AttributeValueMemberS{Value: env},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		var page []lambdax.ResourceRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("decoding inventory items: %w", err)
		}
		records = append(records, page...)

		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func handler(ctx context.Context, req lambdax.AuditRequest) (lambdax.AuditResult, error) {
	d, err := getDeps()
	if err != nil {
		return lambdax.AuditResult{}, err
	}
	return handleAudit(ctx, d, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
