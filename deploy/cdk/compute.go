package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// ComputeStack runs the report service on Fargate behind an ALB.
type ComputeStack struct {
	Stack   awscdk.Stack
	Cluster awsecs.Cluster
	Service awsecs.FargateService
	LB      awselasticloadbalancingv2.ApplicationLoadBalancer
}

// NewComputeStack creates the ECS cluster, task definition, service, and
// load balancer. Task and execution roles come from the identity stack so
// permissions stay in one place.
func NewComputeStack(scope constructs.Construct, id string, cfg StackConfig, network *NetworkStack, identity *IdentityStack, data *DataStack) *ComputeStack {
	stack := awscdk.NewStack(scope, &id, nil)
	tagStack(stack, cfg)

	cluster := awsecs.NewCluster(stack, jsii.String("Cluster"), &awsecs.ClusterProps{
		ClusterName:       jsii.String(fmt.Sprintf("%s-%s", cfg.Prefix, cfg.Environment)),
		Vpc:               network.Vpc,
		ContainerInsights: jsii.Bool(true),
	})

	taskDef := awsecs.NewFargateTaskDefinition(stack, jsii.String("TaskDef"), &awsecs.FargateTaskDefinitionProps{
		Cpu:            jsii.Number(cfg.Cpu),
		MemoryLimitMiB: jsii.Number(cfg.MemoryMiB),
		TaskRole:       identity.TaskRole,
		ExecutionRole:  identity.ExecutionRole,
	})

	logGroup := awslogs.NewLogGroup(stack, jsii.String("ServiceLogs"), &awslogs.LogGroupProps{
		LogGroupName:  jsii.String(fmt.Sprintf("/ecs/%s-%s", cfg.Prefix, cfg.Environment)),
		Retention:     logRetentionDays(cfg.LogRetentionDays),
		RemovalPolicy: removalPolicy(cfg.DestroyOnDelete),
	})

	container := taskDef.AddContainer(jsii.String("app"), &awsecs.ContainerDefinitionOptions{
		Image: awsecs.ContainerImage_FromRegistry(jsii.String(cfg.ContainerImage), nil),
		Logging: awsecs.LogDrivers_AwsLogs(&awsecs.AwsLogDriverProps{
			LogGroup:     logGroup,
			StreamPrefix: jsii.String("app"),
		}),
		Environment: &map[string]*string{
			"ENVIRONMENT":    jsii.String(cfg.Environment),
			"TABLE_NAME":     data.Table.TableName(),
			"BUCKET_NAME":    data.Bucket.BucketName(),
			"DB_SECRET_ARN":  data.Cluster.Secret().SecretArn(),
			"DB_ENDPOINT":    data.Cluster.ClusterEndpoint().Hostname(),
			"LISTEN_ADDRESS": jsii.String(fmt.Sprintf(":%d", int(cfg.ContainerPort))),
		},
	})
	container.AddPortMappings(&awsecs.PortMapping{
		ContainerPort: jsii.Number(cfg.ContainerPort),
		Protocol:      awsecs.Protocol_TCP,
	})

	service := awsecs.NewFargateService(stack, jsii.String("Service"), &awsecs.FargateServiceProps{
		Cluster:        cluster,
		TaskDefinition: taskDef,
		DesiredCount:   jsii.Number(cfg.DesiredCount),
	})

	lb := awselasticloadbalancingv2.NewApplicationLoadBalancer(stack, jsii.String("LB"), &awselasticloadbalancingv2.ApplicationLoadBalancerProps{
		Vpc:            network.Vpc,
		InternetFacing: jsii.Bool(true),
	})
	listener := lb.AddListener(jsii.String("Http"), &awselasticloadbalancingv2.BaseApplicationListenerProps{
		Port: jsii.Number(80),
		Open: jsii.Bool(true),
	})
	listener.AddTargets(jsii.String("App"), &awselasticloadbalancingv2.AddApplicationTargetsProps{
		Port:    jsii.Number(cfg.ContainerPort),
		Targets: &[]awselasticloadbalancingv2.IApplicationLoadBalancerTarget{service},
		HealthCheck: &awselasticloadbalancingv2.HealthCheck{
			Path:                    jsii.String("/healthz"),
			HealthyThresholdCount:   jsii.Number(2),
			UnhealthyThresholdCount: jsii.Number(3),
			Interval:                awscdk.Duration_Seconds(jsii.Number(30)),
		},
	})

	scaling := service.AutoScaleTaskCount(&awsapplicationautoscaling.EnableScalingProps{
		MinCapacity: jsii.Number(cfg.MinCapacity),
		MaxCapacity: jsii.Number(cfg.MaxCapacity),
	})
	scaling.ScaleOnCpuUtilization(jsii.String("CpuScaling"), &awsecs.CpuUtilizationScalingProps{
		TargetUtilizationPercent: jsii.Number(70),
		ScaleInCooldown:          awscdk.Duration_Minutes(jsii.Number(5)),
		ScaleOutCooldown:         awscdk.Duration_Minutes(jsii.Number(1)),
	})

	awscdk.NewCfnOutput(stack, jsii.String("LoadBalancerDNS"), &awscdk.CfnOutputProps{Value: lb.LoadBalancerDnsName()})
	awscdk.NewCfnOutput(stack, jsii.String("ClusterName"), &awscdk.CfnOutputProps{Value: cluster.ClusterName()})
	awscdk.NewCfnOutput(stack, jsii.String("ServiceName"), &awscdk.CfnOutputProps{Value: service.ServiceName()})

	return &ComputeStack{Stack: stack, Cluster: cluster, Service: service, LB: lb}
}
