// api Lambda serves the edge REST API: resource inventory records and
// remediation kickoff.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
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
		deps, depsErr = lambdax.Init(context.Background(), "TABLE_NAME", "STATE_MACHINE_ARN")
	})
	return deps, depsErr
}

// handleRequest routes API Gateway proxy requests:
//
//	GET  /records/{env}/{id}  fetch one inventory record
//	PUT  /records             upsert an inventory record
//	POST /remediations        start a remediation execution
func handleRequest(ctx context.Context, d *lambdax.Deps, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.Trim(req.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case req.HTTPMethod == http.MethodGet && len(parts) == 3 && parts[0] == "records":
		return handleGetRecord(ctx, d, parts[1], parts[2])
	case req.HTTPMethod == http.MethodPut && path == "records":
		return handlePutRecord(ctx, d, req.Body)
	case req.HTTPMethod == http.MethodPost && path == "remediations":
		return handleStartRemediation(ctx, d, req.Body)
	default:
		return respondError(http.StatusNotFound, fmt.Sprintf("no route for %s /%s", req.HTTPMethod, path))
	}
}

func handleGetRecord(ctx context.Context, d *lambdax.Deps, env, id string) (events.APIGatewayProxyResponse, error) {
	out, err := d.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.TableName),
		Key: map[string]ddbtypes.AttributeValue{
			"environment": &ddbtypes.AttributeValueMemberS{Value: env},
			"id":          &ddbtypes.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		d.Logger.Error("getting record", "environment", env, "id", id, "error", err)
		return respondError(http.StatusInternalServerError, "getting record")
	}
	if out.Item == nil {
		return respondError(http.StatusNotFound, fmt.Sprintf("record %s/%s not found", env, id))
	}

	var rec lambdax.ResourceRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return respondError(http.StatusInternalServerError, "decoding record")
	}
	return respond(http.StatusOK, rec)
}

func handlePutRecord(ctx context.Context, d *lambdax.Deps, body string) (events.APIGatewayProxyResponse, error) {
	var rec lambdax.ResourceRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return respondError(http.StatusBadRequest, "invalid record body")
	}
	if rec.Environment == "" || rec.ID == "" {
		return respondError(http.StatusBadRequest, "environment and id are required")
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return respondError(http.StatusInternalServerError, "encoding record")
	}
	if _, err := d.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.TableName),
		Item:      item,
	}); err != nil {
		d.Logger.Error("putting record", "environment", rec.Environment, "id", rec.ID, "error", err)
		return respondError(http.StatusInternalServerError, "putting record")
	}
	return respond(http.StatusOK, rec)
}

func handleStartRemediation(ctx context.Context, d *lambdax.Deps, body string) (events.APIGatewayProxyResponse, error) {
	var req lambdax.RemediationRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respondError(http.StatusBadRequest, "invalid remediation request")
	}
	if req.Environment == "" {
		return respondError(http.StatusBadRequest, "environment is required")
	}

	// the state machine reads the report out of $.report
	input, err := json.Marshal(lambdax.WorkflowState{
		Report: types.DriftReport{Environment: req.Environment},
	})
	if err != nil {
		return respondError(http.StatusInternalServerError, "encoding execution input")
	}

	name := fmt.Sprintf("remediation-%s-%s", req.Environment, ulid.Make().String())
	out, err := d.SFN.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(d.StateMachineARN),
		Name:            aws.String(name),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		d.Logger.Error("starting remediation", "environment", req.Environment, "error", err)
		return respondError(http.StatusInternalServerError, "starting remediation")
	}
	return respond(http.StatusAccepted, map[string]string{
		"executionArn": aws.ToString(out.ExecutionArn),
	})
}

func respond(status int, v any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return respondError(http.StatusInternalServerError, "encoding response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func respondError(status int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	d, err := getDeps()
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return handleRequest(ctx, d, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
