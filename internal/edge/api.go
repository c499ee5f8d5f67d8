package edge

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/apigateway"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const accessLogFormat = `{"requestId":"$context.requestId","ip":"$context.identity.sourceIp","requestTime":"$context.requestTime","httpMethod":"$context.httpMethod","resourcePath":"$context.resourcePath","status":"$context.status","protocol":"$context.protocol","responseLength":"$context.responseLength"}`

// API bundles the REST API resources the rest of the program needs.
type API struct {
	Rest  *apigateway.RestApi
	Stage *apigateway.Stage
}

// provisionAPI fronts the handler function with a regional REST API: a proxy
// resource with an ANY method on it and on the root, both integrated
// AWS_PROXY to the handler, deployed to an access-logged stage. The v1
// gateway is used so the WAF web ACL can associate with the stage.
func provisionAPI(ctx *pulumi.Context, cfg Config, handler *lambda.Function) (*API, error) {
	apiName := resourceName(cfg.Prefix, "api")

	rest, err := apigateway.NewRestApi(ctx, apiName, &apigateway.RestApiArgs{
		Name:        pulumi.String(apiName),
		Description: pulumi.String("drift report and remediation API"),
		EndpointConfiguration: &apigateway.RestApiEndpointConfigurationArgs{
			Types: pulumi.String("REGIONAL"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating rest api: %w", err)
	}

	proxy, err := apigateway.NewResource(ctx, apiName+"-proxy", &apigateway.ResourceArgs{
		RestApi:  rest.ID(),
		ParentId: rest.RootResourceId,
		PathPart: pulumi.String("{proxy+}"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating proxy resource: %w", err)
	}

	proxyMethod, err := apigateway.NewMethod(ctx, apiName+"-proxy-method", &apigateway.MethodArgs{
		RestApi:       rest.ID(),
		ResourceId:    proxy.ID(),
		HttpMethod:    pulumi.String("ANY"),
		Authorization: pulumi.String("NONE"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating proxy method: %w", err)
	}

	proxyIntegration, err := apigateway.NewIntegration(ctx, apiName+"-proxy-integration", &apigateway.IntegrationArgs{
		RestApi:               rest.ID(),
		ResourceId:            proxy.ID(),
		HttpMethod:            proxyMethod.HttpMethod,
		IntegrationHttpMethod: pulumi.String("POST"),
		Type:                  pulumi.String("AWS_PROXY"),
		Uri:                   handler.InvokeArn,
	})
	if err != nil {
		return nil, fmt.Errorf("creating proxy integration: %w", err)
	}

	rootMethod, err := apigateway.NewMethod(ctx, apiName+"-root-method", &apigateway.MethodArgs{
		RestApi:       rest.ID(),
		ResourceId:    rest.RootResourceId,
		HttpMethod:    pulumi.String("ANY"),
		Authorization: pulumi.String("NONE"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating root method: %w", err)
	}

	rootIntegration, err := apigateway.NewIntegration(ctx, apiName+"-root-integration", &apigateway.IntegrationArgs{
		RestApi:               rest.ID(),
		ResourceId:            rest.RootResourceId,
		HttpMethod:            rootMethod.HttpMethod,
		IntegrationHttpMethod: pulumi.String("POST"),
		Type:                  pulumi.String("AWS_PROXY"),
		Uri:                   handler.InvokeArn,
	})
	if err != nil {
		return nil, fmt.Errorf("creating root integration: %w", err)
	}

	_, err = lambda.NewPermission(ctx, apiName+"-permission", &lambda.PermissionArgs{
		Action:    pulumi.String("lambda:InvokeFunction"),
		Function:  handler.Name,
		Principal: pulumi.String("apigateway.amazonaws.com"),
		SourceArn: pulumi.Sprintf("%s/*/*", rest.ExecutionArn),
	})
	if err != nil {
		return nil, fmt.Errorf("creating invoke permission: %w", err)
	}

	deployment, err := apigateway.NewDeployment(ctx, apiName+"-deployment", &apigateway.DeploymentArgs{
		RestApi: rest.ID(),
	}, pulumi.DependsOn([]pulumi.Resource{proxyIntegration, rootIntegration}))
	if err != nil {
		return nil, fmt.Errorf("creating deployment: %w", err)
	}

	accessLogs, err := cloudwatch.NewLogGroup(ctx, apiName+"-access-logs", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/aws/apigateway/" + apiName),
		RetentionInDays: pulumi.Int(cfg.LogRetentionDays),
	})
	if err != nil {
		return nil, fmt.Errorf("creating access log group: %w", err)
	}

	stage, err := apigateway.NewStage(ctx, apiName+"-stage", &apigateway.StageArgs{
		RestApi:    rest.ID(),
		Deployment: deployment.ID(),
		StageName:  pulumi.String(cfg.StageName),
		AccessLogSettings: &apigateway.StageAccessLogSettingsArgs{
			DestinationArn: accessLogs.Arn,
			Format:         pulumi.String(accessLogFormat),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating stage: %w", err)
	}

	return &API{Rest: rest, Stage: stage}, nil
}
