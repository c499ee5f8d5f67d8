package edge

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/wafv2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// provisionWAF puts a regional web ACL in front of the API stage: the AWS
// managed common rule set plus an IP rate limit rule.
func provisionWAF(ctx *pulumi.Context, cfg Config, api *API) (*wafv2.WebAcl, error) {
	aclName := resourceName(cfg.Prefix, "waf")

	acl, err := wafv2.NewWebAcl(ctx, aclName, &wafv2.WebAclArgs{
		Name:  pulumi.String(aclName),
		Scope: pulumi.String("REGIONAL"),
		DefaultAction: &wafv2.WebAclDefaultActionArgs{
			Allow: &wafv2.WebAclDefaultActionAllowArgs{},
		},
		Rules: wafv2.WebAclRuleArray{
			&wafv2.WebAclRuleArgs{
				Name:     pulumi.String("common-rule-set"),
				Priority: pulumi.Int(1),
				OverrideAction: &wafv2.WebAclRuleOverrideActionArgs{
					None: &wafv2.WebAclRuleOverrideActionNoneArgs{},
				},
				Statement: &wafv2.WebAclRuleStatementArgs{
					ManagedRuleGroupStatement: &wafv2.WebAclRuleStatementManagedRuleGroupStatementArgs{
						Name:       pulumi.String("AWSManagedRulesCommonRuleSet"),
						VendorName: pulumi.String("AWS"),
					},
				},
				VisibilityConfig: &wafv2.WebAclRuleVisibilityConfigArgs{
					CloudwatchMetricsEnabled: pulumi.Bool(true),
					MetricName:               pulumi.String(aclName + "-common"),
					SampledRequestsEnabled:   pulumi.Bool(true),
				},
			},
			&wafv2.WebAclRuleArgs{
				Name:     pulumi.String("rate-limit"),
				Priority: pulumi.Int(2),
				Action: &wafv2.WebAclRuleActionArgs{
					Block: &wafv2.WebAclRuleActionBlockArgs{},
				},
				Statement: &wafv2.WebAclRuleStatementArgs{
					RateBasedStatement: &wafv2.WebAclRuleStatementRateBasedStatementArgs{
						Limit:            pulumi.Int(cfg.RateLimit),
						AggregateKeyType: pulumi.String("IP"),
					},
				},
				VisibilityConfig: &wafv2.WebAclRuleVisibilityConfigArgs{
					CloudwatchMetricsEnabled: pulumi.Bool(true),
					MetricName:               pulumi.String(aclName + "-rate-limit"),
					SampledRequestsEnabled:   pulumi.Bool(true),
				},
			},
		},
		VisibilityConfig: &wafv2.WebAclVisibilityConfigArgs{
			CloudwatchMetricsEnabled: pulumi.Bool(true),
			MetricName:               pulumi.String(aclName),
			SampledRequestsEnabled:   pulumi.Bool(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating web acl: %w", err)
	}

	_, err = wafv2.NewWebAclAssociation(ctx, aclName+"-association", &wafv2.WebAclAssociationArgs{
		ResourceArn: api.Stage.Arn,
		WebAclArn:   acl.Arn,
	})
	if err != nil {
		return nil, fmt.Errorf("associating web acl: %w", err)
	}

	return acl, nil
}
