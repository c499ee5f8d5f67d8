package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsaps"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// MonitoringStack holds the alert topic, alarms, dashboard, and the
// Prometheus workspace that receives remote-write metrics from the platform.
type MonitoringStack struct {
	Stack      awscdk.Stack
	AlertTopic awssns.Topic
	Workspace  awsaps.CfnWorkspace
}

// NewMonitoringStack wires alarms for the compute and data stacks into a
// single alert topic and provisions the AMP workspace.
func NewMonitoringStack(scope constructs.Construct, id string, cfg StackConfig, compute *ComputeStack, data *DataStack) *MonitoringStack {
	stack := awscdk.NewStack(scope, &id, nil)
	tagStack(stack, cfg)

	topic := awssns.NewTopic(stack, jsii.String("Alerts"), &awssns.TopicProps{
		TopicName: jsii.String(fmt.Sprintf("%s-%s-alerts", cfg.Prefix, cfg.Environment)),
	})
	if cfg.AlarmEmail != "" {
		topic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(cfg.AlarmEmail), nil))
	}
	alarmAction := awscloudwatchactions.NewSnsAction(topic)

	serverErrors := compute.LB.Metrics().HttpCodeElb(awselasticloadbalancingv2.HttpCodeElb_ELB_5XX_COUNT, &awscloudwatch.MetricOptions{
		Period:    awscdk.Duration_Minutes(jsii.Number(5)),
		Statistic: jsii.String("Sum"),
	})
	lbAlarm := awscloudwatch.NewAlarm(stack, jsii.String("Http5xxAlarm"), &awscloudwatch.AlarmProps{
		AlarmName:          jsii.String(fmt.Sprintf("%s-%s-http-5xx", cfg.Prefix, cfg.Environment)),
		Metric:             serverErrors,
		Threshold:          jsii.Number(10),
		EvaluationPeriods:  jsii.Number(2),
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_THRESHOLD,
	})
	lbAlarm.AddAlarmAction(alarmAction)

	cpu := compute.Service.MetricCpuUtilization(&awscloudwatch.MetricOptions{
		Period: awscdk.Duration_Minutes(jsii.Number(5)),
	})
	cpuAlarm := awscloudwatch.NewAlarm(stack, jsii.String("ServiceCpuAlarm"), &awscloudwatch.AlarmProps{
		AlarmName:          jsii.String(fmt.Sprintf("%s-%s-service-cpu", cfg.Prefix, cfg.Environment)),
		Metric:             cpu,
		Threshold:          jsii.Number(85),
		EvaluationPeriods:  jsii.Number(3),
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
	})
	cpuAlarm.AddAlarmAction(alarmAction)

	throttles := data.Table.MetricThrottledRequestsForOperations(&awsdynamodb.OperationsMetricOptions{
		Operations: &[]awsdynamodb.Operation{
			awsdynamodb.Operation_GET_ITEM,
			awsdynamodb.Operation_PUT_ITEM,
			awsdynamodb.Operation_QUERY,
		},
		Period: awscdk.Duration_Minutes(jsii.Number(5)),
	})
	throttleAlarm := awscloudwatch.NewAlarm(stack, jsii.String("TableThrottleAlarm"), &awscloudwatch.AlarmProps{
		AlarmName:          jsii.String(fmt.Sprintf("%s-%s-table-throttles", cfg.Prefix, cfg.Environment)),
		Metric:             throttles,
		Threshold:          jsii.Number(1),
		EvaluationPeriods:  jsii.Number(1),
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
	})
	throttleAlarm.AddAlarmAction(alarmAction)

	dashboard := awscloudwatch.NewDashboard(stack, jsii.String("Dashboard"), &awscloudwatch.DashboardProps{
		DashboardName: jsii.String(fmt.Sprintf("%s-%s", cfg.Prefix, cfg.Environment)),
	})
	dashboard.AddWidgets(
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("ALB 5xx"),
			Left:  &[]awscloudwatch.IMetric{serverErrors},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("Service CPU"),
			Left:  &[]awscloudwatch.IMetric{cpu},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("DynamoDB throttles"),
			Left:  &[]awscloudwatch.IMetric{throttles},
		}),
	)

	ampLogs := awslogs.NewLogGroup(stack, jsii.String("WorkspaceLogs"), &awslogs.LogGroupProps{
		LogGroupName:  jsii.String(fmt.Sprintf("/aws/prometheus/%s-%s", cfg.Prefix, cfg.Environment)),
		Retention:     logRetentionDays(cfg.LogRetentionDays),
		RemovalPolicy: removalPolicy(cfg.DestroyOnDelete),
	})
	workspace := awsaps.NewCfnWorkspace(stack, jsii.String("Workspace"), &awsaps.CfnWorkspaceProps{
		Alias: jsii.String(fmt.Sprintf("%s-%s", cfg.Prefix, cfg.Environment)),
		LoggingConfiguration: &awsaps.CfnWorkspace_LoggingConfigurationProperty{
			LogGroupArn: ampLogs.LogGroupArn(),
		},
	})

	awscdk.NewCfnOutput(stack, jsii.String("AlertTopicArn"), &awscdk.CfnOutputProps{Value: topic.TopicArn()})
	awscdk.NewCfnOutput(stack, jsii.String("WorkspaceArn"), &awscdk.CfnOutputProps{Value: workspace.AttrArn()})
	awscdk.NewCfnOutput(stack, jsii.String("WorkspaceEndpoint"), &awscdk.CfnOutputProps{Value: workspace.AttrPrometheusEndpoint()})

	return &MonitoringStack{Stack: stack, AlertTopic: topic, Workspace: workspace}
}
