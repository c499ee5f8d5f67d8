// Package lambdax holds shared dependencies and domain logic for the edge
// Lambda handlers. Handlers are pure functions over a Deps value; the AWS
// clients sit behind narrow interfaces so tests can swap them out.
package lambdax

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// DynamoDBAPI is the subset of the DynamoDB client the handlers use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// S3API is the subset of the S3 client the handlers use.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SNSAPI is the subset of the SNS client the handlers use.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SFNAPI is the subset of the Step Functions client the handlers use.
type SFNAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// SecretsAPI is the subset of the Secrets Manager client used at init.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the shape of the database secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Deps holds shared dependencies for Lambda handlers.
type Deps struct {
	DB      DynamoDBAPI
	S3      S3API
	SNS     SNSAPI
	SFN     SFNAPI
	Secrets SecretsAPI

	TableName       string
	BucketName      string
	TopicARN        string
	StateMachineARN string

	// DBCreds is resolved once at init when DB_SECRET_ARN is set.
	DBCreds Credentials

	Logger *slog.Logger
}

// Init creates shared dependencies from environment variables. Each binary
// names the variables it cannot run without; the rest stay optional.
// Reads: TABLE_NAME, BUCKET_NAME, TOPIC_ARN, STATE_MACHINE_ARN, DB_SECRET_ARN.
func Init(ctx context.Context, required ...string) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	for _, name := range required {
		if os.Getenv(name) == "" {
			return nil, fmt.Errorf("%s environment variable required", name)
		}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	d := &Deps{
		DB:              dynamodb.NewFromConfig(cfg),
		S3:              s3.NewFromConfig(cfg),
		SNS:             sns.NewFromConfig(cfg),
		SFN:             sfn.NewFromConfig(cfg),
		Secrets:         secretsmanager.NewFromConfig(cfg),
		TableName:       os.Getenv("TABLE_NAME"),
		BucketName:      os.Getenv("BUCKET_NAME"),
		TopicARN:        os.Getenv("TOPIC_ARN"),
		StateMachineARN: os.Getenv("STATE_MACHINE_ARN"),
		Logger:          logger,
	}

	if secretARN := os.Getenv("DB_SECRET_ARN"); secretARN != "" {
		creds, err := loadCredentials(ctx, d.Secrets, secretARN)
		if err != nil {
			return nil, fmt.Errorf("loading database credentials: %w", err)
		}
		d.DBCreds = creds
	}

	return d, nil
}

// loadCredentials fetches and decodes the database secret.
func loadCredentials(ctx context.Context, api SecretsAPI, arn string) (Credentials, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("getting secret value: %w", err)
	}
	var creds Credentials
	if out.SecretString == nil {
		return Credentials{}, fmt.Errorf("secret %s has no string value", arn)
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return Credentials{}, fmt.Errorf("decoding secret: %w", err)
	}
	return creds, nil
}
