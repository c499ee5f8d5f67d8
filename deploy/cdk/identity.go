package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// IdentityStack carries the platform's IAM roles. It comes first so the
// other stacks can attach to known principals.
type IdentityStack struct {
	Stack         awscdk.Stack
	TaskRole      awsiam.Role
	ExecutionRole awsiam.Role
	DeployRole    awsiam.Role
}

// NewIdentityStack creates the ECS task, execution, and deploy roles.
func NewIdentityStack(scope constructs.Construct, id string, cfg StackConfig) *IdentityStack {
	stack := awscdk.NewStack(scope, &id, nil)
	tagStack(stack, cfg)

	taskRole := awsiam.NewRole(stack, jsii.String("TaskRole"), &awsiam.RoleProps{
		RoleName:    jsii.String(cfg.Prefix + "-" + cfg.Environment + "-task"),
		AssumedBy:   awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		Description: jsii.String("Runtime role for the karst service containers"),
	})
	// data access is scoped to the platform's own names, not resource ARNs,
	// so this stack stays free of cross-stack cycles
	taskRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: &[]*string{
			jsii.String("dynamodb:GetItem"),
			jsii.String("dynamodb:PutItem"),
			jsii.String("dynamodb:Query"),
			jsii.String("dynamodb:UpdateItem"),
		},
		Resources: &[]*string{
			awscdk.Fn_Sub(jsii.String("arn:aws:dynamodb:${AWS::Region}:${AWS::AccountId}:table/"+cfg.TableName), nil),
			awscdk.Fn_Sub(jsii.String("arn:aws:dynamodb:${AWS::Region}:${AWS::AccountId}:table/"+cfg.TableName+"/index/*"), nil),
		},
	}))
	taskRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: &[]*string{
			jsii.String("s3:GetObject"),
			jsii.String("s3:PutObject"),
		},
		Resources: &[]*string{
			jsii.String("arn:aws:s3:::" + cfg.Prefix + "-" + cfg.Environment + "-artifacts-*/*"),
		},
	}))
	taskRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: &[]*string{jsii.String("secretsmanager:GetSecretValue")},
		Resources: &[]*string{
			awscdk.Fn_Sub(jsii.String("arn:aws:secretsmanager:${AWS::Region}:${AWS::AccountId}:secret:"+cfg.Prefix+"-"+cfg.Environment+"-*"), nil),
		},
	}))

	executionRole := awsiam.NewRole(stack, jsii.String("ExecutionRole"), &awsiam.RoleProps{
		RoleName:  jsii.String(cfg.Prefix + "-" + cfg.Environment + "-execution"),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AmazonECSTaskExecutionRolePolicy")),
		},
	})

	deployRole := awsiam.NewRole(stack, jsii.String("DeployRole"), &awsiam.RoleProps{
		RoleName:    jsii.String(cfg.Prefix + "-" + cfg.Environment + "-deploy"),
		AssumedBy:   awsiam.NewAccountRootPrincipal(),
		Description: jsii.String("Assumed by CI to update the karst service"),
	})
	deployRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: &[]*string{
			jsii.String("ecs:UpdateService"),
			jsii.String("ecs:DescribeServices"),
			jsii.String("ecs:RegisterTaskDefinition"),
		},
		Resources: &[]*string{jsii.String("*")},
	}))
	deployRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   &[]*string{jsii.String("iam:PassRole")},
		Resources: &[]*string{taskRole.RoleArn(), executionRole.RoleArn()},
	}))

	awscdk.NewCfnOutput(stack, jsii.String("TaskRoleArn"), &awscdk.CfnOutputProps{Value: taskRole.RoleArn()})
	awscdk.NewCfnOutput(stack, jsii.String("ExecutionRoleArn"), &awscdk.CfnOutputProps{Value: executionRole.RoleArn()})
	awscdk.NewCfnOutput(stack, jsii.String("DeployRoleArn"), &awscdk.CfnOutputProps{Value: deployRole.RoleArn()})

	return &IdentityStack{
		Stack:         stack,
		TaskRole:      taskRole,
		ExecutionRole: executionRole,
		DeployRole:    deployRole,
	}
}
