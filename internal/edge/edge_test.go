package edge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	c := withDefaults(Config{TableName: "reports", BucketName: "snapshots"})

	assert.Equal(t, "karst-edge", c.Prefix)
	assert.Equal(t, "dist", c.DistDir)
	assert.Equal(t, "v1", c.StageName)
	assert.Equal(t, 2000, c.RateLimit)
	assert.Equal(t, "deploy/remediation.asl.json", c.DefinitionPath)
	assert.Equal(t, 30, c.LogRetentionDays)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	c := withDefaults(Config{
		Prefix:           "acme-edge",
		DistDir:          "build",
		TableName:        "reports",
		BucketName:       "snapshots",
		StageName:        "prod",
		RateLimit:        500,
		DefinitionPath:   "asl/flow.json",
		LogRetentionDays: 7,
	})

	assert.Equal(t, "acme-edge", c.Prefix)
	assert.Equal(t, "build", c.DistDir)
	assert.Equal(t, "prod", c.StageName)
	assert.Equal(t, 500, c.RateLimit)
	assert.Equal(t, "asl/flow.json", c.DefinitionPath)
	assert.Equal(t, 7, c.LogRetentionDays)
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "karst-edge-collector", resourceName("karst-edge", "collector"))
}

func TestArnHelpers(t *testing.T) {
	assert.Equal(t,
		"arn:aws:dynamodb:us-east-1:123456789012:table/reports",
		tableArn("us-east-1", "123456789012", "reports"))
	assert.Equal(t, "arn:aws:s3:::snapshots", bucketArn("snapshots"))
}

func TestHandlerPolicyGrantsTableAccess(t *testing.T) {
	table := "arn:aws:dynamodb:us-east-1:123456789012:table/reports"
	machine := "arn:aws:states:us-east-1:123456789012:stateMachine:remediation"

	policy := handlerPolicy(table, machine, "")
	require.True(t, json.Valid([]byte(policy)))

	// record routes need the table, not just StartExecution
	assert.Contains(t, policy, "dynamodb:GetItem")
	assert.Contains(t, policy, "dynamodb:PutItem")
	assert.Contains(t, policy, table)
	assert.Contains(t, policy, table+"/index/*")
	assert.Contains(t, policy, "states:StartExecution")
	assert.Contains(t, policy, machine)
	assert.NotContains(t, policy, "secretsmanager")
}

func TestHandlerPolicyIncludesSecretWhenConfigured(t *testing.T) {
	secret := "arn:aws:secretsmanager:us-east-1:123456789012:secret:karst-db"

	policy := handlerPolicy("arn:table", "arn:machine", secret)
	require.True(t, json.Valid([]byte(policy)))
	assert.Contains(t, policy, "secretsmanager:GetSecretValue")
	assert.Contains(t, policy, secret)
}

func TestRenderDefinition(t *testing.T) {
	template := `{"StartAt":"Collect","States":{"Collect":{"Resource":"${CollectorArn}"},"Audit":{"Resource":"${AuditorArn}"}}}`

	out, err := renderDefinition(template, map[string]string{
		"CollectorArn": "arn:aws:lambda:us-east-1:123456789012:function:collector",
		"AuditorArn":   "arn:aws:lambda:us-east-1:123456789012:function:auditor",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "function:collector")
	assert.Contains(t, out, "function:auditor")
	assert.NotContains(t, out, "${")
}

func TestRenderDefinitionUnresolvedPlaceholder(t *testing.T) {
	_, err := renderDefinition(`{"Resource":"${NotifierArn}"}`, map[string]string{
		"CollectorArn": "arn:x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotifierArn")
}
