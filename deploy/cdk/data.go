package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// DataStack carries the platform's state: the DynamoDB table, the Aurora
// cluster, and the artifacts bucket.
type DataStack struct {
	Stack   awscdk.Stack
	Table   awsdynamodb.TableV2
	Cluster awsrds.DatabaseCluster
	Bucket  awss3.Bucket
}

// NewDataStack creates the data resources inside the platform VPC.
func NewDataStack(scope constructs.Construct, id string, cfg StackConfig, network *NetworkStack) *DataStack {
	stack := awscdk.NewStack(scope, &id, nil)
	tagStack(stack, cfg)

	table := awsdynamodb.NewTableV2(stack, jsii.String("Table"), &awsdynamodb.TablePropsV2{
		TableName: jsii.String(cfg.TableName),
		PartitionKey: &awsdynamodb.Attribute{
			Name: jsii.String("PK"),
			Type: awsdynamodb.AttributeType_STRING,
		},
		SortKey: &awsdynamodb.Attribute{
			Name: jsii.String("SK"),
			Type: awsdynamodb.AttributeType_STRING,
		},
		Billing:             awsdynamodb.Billing_OnDemand(nil),
		DynamoStream:        awsdynamodb.StreamViewType_NEW_IMAGE,
		TimeToLiveAttribute: jsii.String("ttl"),
		RemovalPolicy:       removalPolicy(cfg.DestroyOnDelete),
		GlobalSecondaryIndexes: &[]*awsdynamodb.GlobalSecondaryIndexPropsV2{
			{
				IndexName: jsii.String("GSI1"),
				PartitionKey: &awsdynamodb.Attribute{
					Name: jsii.String("GSI1PK"),
					Type: awsdynamodb.AttributeType_STRING,
				},
				SortKey: &awsdynamodb.Attribute{
					Name: jsii.String("GSI1SK"),
					Type: awsdynamodb.AttributeType_STRING,
				},
			},
		},
	})

	cluster := awsrds.NewDatabaseCluster(stack, jsii.String("Database"), &awsrds.DatabaseClusterProps{
		Engine: awsrds.DatabaseClusterEngine_AuroraPostgres(&awsrds.AuroraPostgresClusterEngineProps{
			Version: awsrds.AuroraPostgresEngineVersion_VER_16_4(),
		}),
		Writer:                  awsrds.ClusterInstance_ServerlessV2(jsii.String("writer"), nil),
		ServerlessV2MinCapacity: jsii.Number(0.5),
		ServerlessV2MaxCapacity: jsii.Number(4),
		Vpc:                     network.Vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		},
		Credentials:         awsrds.Credentials_FromGeneratedSecret(jsii.String(cfg.DatabaseName), nil),
		DefaultDatabaseName: jsii.String(cfg.DatabaseName),
		RemovalPolicy:       removalPolicy(cfg.DestroyOnDelete),
	})

	bucket := awss3.NewBucket(stack, jsii.String("Artifacts"), &awss3.BucketProps{
		Versioned:         jsii.Bool(true),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     removalPolicy(cfg.DestroyOnDelete),
		AutoDeleteObjects: jsii.Bool(cfg.DestroyOnDelete),
	})

	awscdk.NewCfnOutput(stack, jsii.String("TableName"), &awscdk.CfnOutputProps{Value: table.TableName()})
	awscdk.NewCfnOutput(stack, jsii.String("TableStreamArn"), &awscdk.CfnOutputProps{Value: table.TableStreamArn()})
	awscdk.NewCfnOutput(stack, jsii.String("ClusterEndpoint"), &awscdk.CfnOutputProps{Value: cluster.ClusterEndpoint().Hostname()})
	awscdk.NewCfnOutput(stack, jsii.String("DatabaseSecretArn"), &awscdk.CfnOutputProps{Value: cluster.Secret().SecretArn()})
	awscdk.NewCfnOutput(stack, jsii.String("ArtifactsBucketName"), &awscdk.CfnOutputProps{Value: bucket.BucketName()})

	return &DataStack{Stack: stack, Table: table, Cluster: cluster, Bucket: bucket}
}
