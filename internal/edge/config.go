// Package edge declares the serverless edge as a Pulumi program: four Lambda
// functions behind a WAF-protected REST API, plus a Step Functions workflow
// chaining the remediation functions. The program is exposed as a RunFunc so
// the drift detector can execute it through the automation API.
package edge

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

const configNamespace = "edge"

// Config is the stack configuration for the edge program.
type Config struct {
	// Prefix is prepended to every resource name.
	Prefix string
	// DistDir holds the compiled Lambda archives (<name>.zip).
	DistDir string
	// TableName and BucketName reference data resources owned by the core
	// platform stacks.
	TableName  string
	BucketName string
	// StageName is the API Gateway deployment stage.
	StageName string
	// RateLimit is the WAF rate-based rule threshold per 5-minute window.
	RateLimit int
	// DbSecretArn, when set, is the Secrets Manager secret holding the
	// database credentials the api function loads at init.
	DbSecretArn string
	// DefinitionPath points at the state machine ASL template.
	DefinitionPath string
	// LogRetentionDays applies to every log group the program creates.
	LogRetentionDays int
}

// LoadConfig reads the stack config for the edge namespace and fills defaults.
func LoadConfig(ctx *pulumi.Context) Config {
	cfg := config.New(ctx, configNamespace)
	c := Config{
		Prefix:           cfg.Get("prefix"),
		DistDir:          cfg.Get("distDir"),
		TableName:        cfg.Require("tableName"),
		BucketName:       cfg.Require("bucketName"),
		StageName:        cfg.Get("stageName"),
		RateLimit:        cfg.GetInt("rateLimit"),
		DbSecretArn:      cfg.Get("dbSecretArn"),
		DefinitionPath:   cfg.Get("definitionPath"),
		LogRetentionDays: cfg.GetInt("logRetentionDays"),
	}
	return withDefaults(c)
}

func withDefaults(c Config) Config {
	if c.Prefix == "" {
		c.Prefix = "karst-edge"
	}
	if c.DistDir == "" {
		c.DistDir = "dist"
	}
	if c.StageName == "" {
		c.StageName = "v1"
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 2000
	}
	if c.DefinitionPath == "" {
		c.DefinitionPath = "deploy/remediation.asl.json"
	}
	if c.LogRetentionDays <= 0 {
		c.LogRetentionDays = 30
	}
	return c
}

// resourceName builds the physical name for a component under the stack prefix.
func resourceName(prefix, component string) string {
	return fmt.Sprintf("%s-%s", prefix, component)
}

// tableArn reconstructs the ARN of the DynamoDB table owned by the data stack.
func tableArn(region, account, table string) string {
	return fmt.Sprintf("arn:aws:dynamodb:%s:%s:table/%s", region, account, table)
}

// bucketArn reconstructs the ARN of the S3 bucket owned by the data stack.
func bucketArn(bucket string) string {
	return fmt.Sprintf("arn:aws:s3:::%s", bucket)
}
