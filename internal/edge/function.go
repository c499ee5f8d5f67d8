package edge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const lambdaAssumeRolePolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"Service": "lambda.amazonaws.com"},
		"Action": "sts:AssumeRole"
	}]
}`

// Functions holds the remediation workers. The api function is provisioned
// separately because its environment needs the state machine ARN.
type Functions struct {
	Collector *lambda.Function
	Auditor   *lambda.Function
	Notifier  *lambda.Function
}

// newFunction provisions one Lambda with its role, inline policy, and log
// group. All functions run the custom runtime on arm64 and ship as zip
// archives out of the dist dir.
func newFunction(ctx *pulumi.Context, cfg Config, name string, env pulumi.StringMap, policy pulumi.StringInput) (*lambda.Function, error) {
	fnName := resourceName(cfg.Prefix, name)

	role, err := iam.NewRole(ctx, fnName+"-role", &iam.RoleArgs{
		Name:             pulumi.String(fnName + "-role"),
		AssumeRolePolicy: pulumi.String(lambdaAssumeRolePolicy),
	})
	if err != nil {
		return nil, fmt.Errorf("creating role for %s: %w", name, err)
	}

	_, err = iam.NewRolePolicyAttachment(ctx, fnName+"-logs-attach", &iam.RolePolicyAttachmentArgs{
		Role:      role.Name,
		PolicyArn: pulumi.String("arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
	})
	if err != nil {
		return nil, fmt.Errorf("attaching execution policy for %s: %w", name, err)
	}

	if policy != nil {
		_, err = iam.NewRolePolicy(ctx, fnName+"-policy", &iam.RolePolicyArgs{
			Role:   role.Name,
			Policy: policy,
		})
		if err != nil {
			return nil, fmt.Errorf("creating policy for %s: %w", name, err)
		}
	}

	logGroup, err := cloudwatch.NewLogGroup(ctx, fnName+"-logs", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/aws/lambda/" + fnName),
		RetentionInDays: pulumi.Int(cfg.LogRetentionDays),
	})
	if err != nil {
		return nil, fmt.Errorf("creating log group for %s: %w", name, err)
	}

	fn, err := lambda.NewFunction(ctx, fnName, &lambda.FunctionArgs{
		Name:          pulumi.String(fnName),
		Runtime:       pulumi.String("provided.al2023"),
		Architectures: pulumi.StringArray{pulumi.String("arm64")},
		Role:          role.Arn,
		Handler:       pulumi.String("bootstrap"),
		Code:          pulumi.NewFileArchive(filepath.Join(cfg.DistDir, name+".zip")),
		MemorySize:    pulumi.Int(128),
		Timeout:       pulumi.Int(30),
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: env,
		},
	}, pulumi.DependsOn([]pulumi.Resource{logGroup}))
	if err != nil {
		return nil, fmt.Errorf("creating function %s: %w", name, err)
	}
	return fn, nil
}

// provisionWorkers creates the collector, auditor, and notifier functions.
// The collector scans the table and writes snapshots to the bucket, the
// auditor reads both, and the notifier publishes findings to the topic.
func provisionWorkers(ctx *pulumi.Context, cfg Config, region, account string, topicArn pulumi.StringOutput) (*Functions, error) {
	table := tableArn(region, account, cfg.TableName)
	bucket := bucketArn(cfg.BucketName)

	baseEnv := pulumi.StringMap{
		"TABLE_NAME":  pulumi.String(cfg.TableName),
		"BUCKET_NAME": pulumi.String(cfg.BucketName),
	}

	collectorPolicy := pulumi.String(fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{"Effect": "Allow", "Action": ["dynamodb:Scan", "dynamodb:Query", "dynamodb:GetItem"], "Resource": ["%s", "%s/index/*"]},
			{"Effect": "Allow", "Action": ["s3:PutObject"], "Resource": ["%s/*"]}
		]
	}`, table, table, bucket))
	collector, err := newFunction(ctx, cfg, "collector", baseEnv, collectorPolicy)
	if err != nil {
		return nil, err
	}

	auditorPolicy := pulumi.String(fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{"Effect": "Allow", "Action": ["dynamodb:GetItem", "dynamodb:Query"], "Resource": ["%s", "%s/index/*"]},
			{"Effect": "Allow", "Action": ["s3:GetObject", "s3:ListBucket"], "Resource": ["%s", "%s/*"]}
		]
	}`, table, table, bucket, bucket))
	auditor, err := newFunction(ctx, cfg, "auditor", baseEnv, auditorPolicy)
	if err != nil {
		return nil, err
	}

	notifierEnv := pulumi.StringMap{
		"TOPIC_ARN": topicArn,
	}
	notifierPolicy := topicArn.ApplyT(func(arn string) string {
		return fmt.Sprintf(`{
			"Version": "2012-10-17",
			"Statement": [{"Effect": "Allow", "Action": ["sns:Publish"], "Resource": ["%s"]}]
		}`, arn)
	}).(pulumi.StringOutput)
	notifier, err := newFunction(ctx, cfg, "notifier", notifierEnv, notifierPolicy)
	if err != nil {
		return nil, err
	}

	return &Functions{Collector: collector, Auditor: auditor, Notifier: notifier}, nil
}

// handlerPolicy is the api function's inline policy: start remediation
// executions, read and write the inventory table, and read the DB
// credentials secret when one is configured.
func handlerPolicy(tableArn, machineArn, secretArn string) string {
	statements := []string{
		fmt.Sprintf(`{"Effect": "Allow", "Action": ["states:StartExecution"], "Resource": ["%s"]}`, machineArn),
		fmt.Sprintf(`{"Effect": "Allow", "Action": ["dynamodb:GetItem", "dynamodb:PutItem", "dynamodb:Query"], "Resource": ["%s", "%s/index/*"]}`, tableArn, tableArn),
	}
	if secretArn != "" {
		statements = append(statements,
			fmt.Sprintf(`{"Effect": "Allow", "Action": ["secretsmanager:GetSecretValue"], "Resource": ["%s"]}`, secretArn))
	}
	return fmt.Sprintf(`{"Version": "2012-10-17", "Statement": [%s]}`, strings.Join(statements, ", "))
}

// provisionHandler creates the api function fronting the REST API. It serves
// inventory records out of the table and starts remediation executions, so
// it carries both the table and the state machine ARN.
func provisionHandler(ctx *pulumi.Context, cfg Config, region, account string, stateMachineArn pulumi.StringOutput) (*lambda.Function, error) {
	table := tableArn(region, account, cfg.TableName)

	env := pulumi.StringMap{
		"TABLE_NAME":        pulumi.String(cfg.TableName),
		"STATE_MACHINE_ARN": stateMachineArn,
	}
	if cfg.DbSecretArn != "" {
		env["DB_SECRET_ARN"] = pulumi.String(cfg.DbSecretArn)
	}

	policy := stateMachineArn.ApplyT(func(arn string) string {
		return handlerPolicy(table, arn, cfg.DbSecretArn)
	}).(pulumi.StringOutput)
	return newFunction(ctx, cfg, "api", env, policy)
}
