package edge

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/sns"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Program returns the edge infrastructure as an inline Pulumi program. It is
// both the entrypoint of cmd/edge and the declared state the drift detector
// compares live stacks against.
func Program() pulumi.RunFunc {
	return func(ctx *pulumi.Context) error {
		cfg := LoadConfig(ctx)

		caller, err := aws.GetCallerIdentity(ctx, &aws.GetCallerIdentityArgs{})
		if err != nil {
			return fmt.Errorf("resolving caller identity: %w", err)
		}
		region, err := aws.GetRegion(ctx, &aws.GetRegionArgs{})
		if err != nil {
			return fmt.Errorf("resolving region: %w", err)
		}

		topic, err := sns.NewTopic(ctx, resourceName(cfg.Prefix, "findings"), &sns.TopicArgs{
			Name: pulumi.String(resourceName(cfg.Prefix, "findings")),
		})
		if err != nil {
			return fmt.Errorf("creating findings topic: %w", err)
		}

		workers, err := provisionWorkers(ctx, cfg, region.Name, caller.AccountId, topic.Arn)
		if err != nil {
			return err
		}

		machine, err := provisionWorkflow(ctx, cfg, workers)
		if err != nil {
			return err
		}

		handler, err := provisionHandler(ctx, cfg, region.Name, caller.AccountId, machine.Arn)
		if err != nil {
			return err
		}

		api, err := provisionAPI(ctx, cfg, handler)
		if err != nil {
			return err
		}

		acl, err := provisionWAF(ctx, cfg, api)
		if err != nil {
			return err
		}

		ctx.Export("apiInvokeUrl", api.Stage.InvokeUrl)
		ctx.Export("webAclArn", acl.Arn)
		ctx.Export("stateMachineArn", machine.Arn)
		ctx.Export("findingsTopicArn", topic.Arn)
		ctx.Export("apiFunctionArn", handler.Arn)
		ctx.Export("collectorFunctionArn", workers.Collector.Arn)
		ctx.Export("auditorFunctionArn", workers.Auditor.Arn)
		ctx.Export("notifierFunctionArn", workers.Notifier.Arn)
		ctx.Export("tableName", pulumi.String(cfg.TableName))
		ctx.Export("bucketName", pulumi.String(cfg.BucketName))
		return nil
	}
}
