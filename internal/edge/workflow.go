package edge

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/sfn"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const statesAssumeRolePolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"Service": "states.amazonaws.com"},
		"Action": "sts:AssumeRole"
	}]
}`

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// renderDefinition substitutes ${Name} placeholders in an ASL template.
// Every placeholder must be resolved; a leftover one means the template and
// the program disagree about the workflow shape.
func renderDefinition(template string, subs map[string]string) (string, error) {
	out := template
	for name, value := range subs {
		out = strings.ReplaceAll(out, "${"+name+"}", value)
	}
	if m := placeholderPattern.FindStringSubmatch(out); m != nil {
		return "", fmt.Errorf("unresolved placeholder %q in state machine definition", m[1])
	}
	return out, nil
}

// provisionWorkflow creates the remediation state machine from the ASL
// template, chaining collector, auditor, and notifier. The execution role is
// scoped to exactly those function ARNs.
func provisionWorkflow(ctx *pulumi.Context, cfg Config, fns *Functions) (*sfn.StateMachine, error) {
	template, err := os.ReadFile(cfg.DefinitionPath)
	if err != nil {
		return nil, fmt.Errorf("reading state machine definition: %w", err)
	}

	definition := pulumi.All(fns.Collector.Arn, fns.Auditor.Arn, fns.Notifier.Arn).ApplyT(
		func(args []interface{}) (string, error) {
			return renderDefinition(string(template), map[string]string{
				"CollectorArn": args[0].(string),
				"AuditorArn":   args[1].(string),
				"NotifierArn":  args[2].(string),
			})
		}).(pulumi.StringOutput)

	role, err := iam.NewRole(ctx, resourceName(cfg.Prefix, "workflow-role"), &iam.RoleArgs{
		Name:             pulumi.String(resourceName(cfg.Prefix, "workflow-role")),
		AssumeRolePolicy: pulumi.String(statesAssumeRolePolicy),
	})
	if err != nil {
		return nil, fmt.Errorf("creating workflow role: %w", err)
	}

	invokePolicy := pulumi.All(fns.Collector.Arn, fns.Auditor.Arn, fns.Notifier.Arn).ApplyT(
		func(args []interface{}) string {
			return fmt.Sprintf(`{
				"Version": "2012-10-17",
				"Statement": [
					{"Effect": "Allow", "Action": ["lambda:InvokeFunction"], "Resource": ["%s", "%s", "%s"]},
					{"Effect": "Allow", "Action": [
						"logs:CreateLogDelivery", "logs:GetLogDelivery", "logs:UpdateLogDelivery",
						"logs:DeleteLogDelivery", "logs:ListLogDeliveries", "logs:PutResourcePolicy",
						"logs:DescribeResourcePolicies", "logs:DescribeLogGroups"
					], "Resource": ["*"]}
				]
			}`, args[0].(string), args[1].(string), args[2].(string))
		}).(pulumi.StringOutput)

	_, err = iam.NewRolePolicy(ctx, resourceName(cfg.Prefix, "workflow-policy"), &iam.RolePolicyArgs{
		Role:   role.Name,
		Policy: invokePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating workflow policy: %w", err)
	}

	logGroup, err := cloudwatch.NewLogGroup(ctx, resourceName(cfg.Prefix, "workflow-logs"), &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/aws/states/" + resourceName(cfg.Prefix, "remediation")),
		RetentionInDays: pulumi.Int(cfg.LogRetentionDays),
	})
	if err != nil {
		return nil, fmt.Errorf("creating workflow log group: %w", err)
	}

	machine, err := sfn.NewStateMachine(ctx, resourceName(cfg.Prefix, "remediation"), &sfn.StateMachineArgs{
		Name:       pulumi.String(resourceName(cfg.Prefix, "remediation")),
		RoleArn:    role.Arn,
		Definition: definition,
		LoggingConfiguration: &sfn.StateMachineLoggingConfigurationArgs{
			LogDestination:       pulumi.Sprintf("%s:*", logGroup.Arn),
			IncludeExecutionData: pulumi.Bool(true),
			Level:                pulumi.String("ALL"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating state machine: %w", err)
	}
	return machine, nil
}
