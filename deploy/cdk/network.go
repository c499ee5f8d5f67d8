package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NetworkStack carries the VPC the data and compute stacks attach to.
type NetworkStack struct {
	Stack awscdk.Stack
	Vpc   awsec2.Vpc
}

// NewNetworkStack creates the VPC with public and private subnets across two
// AZs, gateway/interface endpoints, and flow logs.
func NewNetworkStack(scope constructs.Construct, id string, cfg StackConfig) *NetworkStack {
	stack := awscdk.NewStack(scope, &id, nil)
	tagStack(stack, cfg)

	mask, err := subnetMask(cfg.VpcCidr)
	if err != nil {
		panic(err.Error())
	}

	vpc := awsec2.NewVpc(stack, jsii.String("Vpc"), &awsec2.VpcProps{
		VpcName:     jsii.String(cfg.Prefix + "-" + cfg.Environment),
		IpAddresses: awsec2.IpAddresses_Cidr(jsii.String(cfg.VpcCidr)),
		MaxAzs:      jsii.Number(cfg.MaxAzs),
		NatGateways: jsii.Number(1),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				Name:       jsii.String("public"),
				SubnetType: awsec2.SubnetType_PUBLIC,
				CidrMask:   jsii.Number(mask),
			},
			{
				Name:       jsii.String("private"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(mask),
			},
		},
	})

	vpc.AddGatewayEndpoint(jsii.String("S3Endpoint"), &awsec2.GatewayVpcEndpointOptions{
		Service: awsec2.GatewayVpcEndpointAwsService_S3(),
	})
	vpc.AddInterfaceEndpoint(jsii.String("SecretsManagerEndpoint"), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_SECRETS_MANAGER(),
	})

	flowLogGroup := awslogs.NewLogGroup(stack, jsii.String("FlowLogGroup"), &awslogs.LogGroupProps{
		Retention:     logRetentionDays(cfg.LogRetentionDays),
		RemovalPolicy: removalPolicy(cfg.DestroyOnDelete),
	})
	awsec2.NewFlowLog(stack, jsii.String("FlowLog"), &awsec2.FlowLogProps{
		ResourceType: awsec2.FlowLogResourceType_FromVpc(vpc),
		Destination:  awsec2.FlowLogDestination_ToCloudWatchLogs(flowLogGroup, nil),
	})

	awscdk.NewCfnOutput(stack, jsii.String("VpcId"), &awscdk.CfnOutputProps{Value: vpc.VpcId()})

	return &NetworkStack{Stack: stack, Vpc: vpc}
}
