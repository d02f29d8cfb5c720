package aws

import (
	"strings"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
)

type (
	MethodConfig struct {
		Api        construct.ResourceId
		Resource   any
		HttpMethod string
		// Authorizer is a Cognito authorizer; the zero id leaves the method unauthenticated.
		Authorizer  construct.ResourceId
		Integration map[string]any
	}

	CorsConfig struct {
		AllowOrigins []string
		AllowMethods []string
		AllowHeaders []string
	}
)

// DefaultCorsHeaders are the request headers browsers may send with a CORS request.
var DefaultCorsHeaders = []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token", "X-Amz-User-Agent"}

func (b *Builder) RestApi(name, apiName, description string) construct.ResourceId {
	props := construct.Properties{
		"Name": apiName,
		"EndpointConfiguration": map[string]any{
			"Types": []any{"REGIONAL"},
		},
	}
	if description != "" {
		props["Description"] = description
	}
	return b.Add(REST_API_TYPE, name, props)
}

// RootResource refers to the API's `/` resource.
func RootResource(api construct.ResourceId) construct.PropertyRef {
	return ref(api, "RootResourceId")
}

func (b *Builder) ApiResource(name string, api construct.ResourceId, parent any, pathPart string) construct.ResourceId {
	return b.Add(API_RESOURCE_TYPE, name, construct.Properties{
		"RestApiId": api,
		"ParentId":  parent,
		"PathPart":  pathPart,
	})
}

// CognitoAuthorizer validates the `Authorization` header against the pools' tokens.
func (b *Builder) CognitoAuthorizer(name string, api construct.ResourceId, pools ...construct.ResourceId) construct.ResourceId {
	arns := make([]any, len(pools))
	for i, p := range pools {
		arns[i] = Arn(p)
	}
	return b.Add(API_AUTHORIZER_TYPE, name, construct.Properties{
		"Name":           name,
		"RestApiId":      api,
		"Type":           "COGNITO_USER_POOLS",
		"IdentitySource": "method.request.header.Authorization",
		"ProviderARNs":   arns,
	})
}

func (b *Builder) ApiMethod(name string, cfg MethodConfig) construct.ResourceId {
	props := construct.Properties{
		"RestApiId":         cfg.Api,
		"ResourceId":        cfg.Resource,
		"HttpMethod":        cfg.HttpMethod,
		"AuthorizationType": "NONE",
		"Integration":       cfg.Integration,
	}
	if !cfg.Authorizer.IsZero() {
		props["AuthorizationType"] = "COGNITO_USER_POOLS"
		props["AuthorizerId"] = cfg.Authorizer
	}
	return b.Add(API_METHOD_TYPE, name, props)
}

// LambdaProxyIntegration passes the whole request to function and its result back as the response.
func LambdaProxyIntegration(function construct.ResourceId) map[string]any {
	return map[string]any{
		"Type":                  "AWS_PROXY",
		"IntegrationHttpMethod": "POST",
		"Uri": intrinsic.Join{Values: []any{
			"arn:", intrinsic.Partition, ":apigateway:", intrinsic.Region,
			":lambda:path/2015-03-31/functions/", Arn(function), "/invocations",
		}},
	}
}

// CorsPreflight answers OPTIONS requests on resource without invoking any backend.
func (b *Builder) CorsPreflight(name string, api construct.ResourceId, resource any, cors CorsConfig) construct.ResourceId {
	headers := cors.AllowHeaders
	if len(headers) == 0 {
		headers = DefaultCorsHeaders
	}
	quote := func(v []string) string {
		return "'" + strings.Join(v, ",") + "'"
	}
	responseParams := map[string]any{
		"method.response.header.Access-Control-Allow-Headers": quote(headers),
		"method.response.header.Access-Control-Allow-Origin":  quote(cors.AllowOrigins),
		"method.response.header.Access-Control-Allow-Methods": quote(cors.AllowMethods),
	}
	declared := make(map[string]any, len(responseParams))
	for k := range responseParams {
		declared[k] = true
	}
	return b.Add(API_METHOD_TYPE, name, construct.Properties{
		"RestApiId":         api,
		"ResourceId":        resource,
		"HttpMethod":        "OPTIONS",
		"AuthorizationType": "NONE",
		"Integration": map[string]any{
			"Type": "MOCK",
			"RequestTemplates": map[string]any{
				"application/json": "{ statusCode: 200 }",
			},
			"IntegrationResponses": []any{
				map[string]any{
					"StatusCode":         "204",
					"ResponseParameters": responseParams,
				},
			},
		},
		"MethodResponses": []any{
			map[string]any{
				"StatusCode":         "204",
				"ResponseParameters": declared,
			},
		},
	})
}

// ApiDeployment snapshots the API once all of methods exist.
func (b *Builder) ApiDeployment(name string, api construct.ResourceId, description string, methods ...construct.ResourceId) construct.ResourceId {
	id := b.Add(API_DEPLOYMENT_TYPE, name, construct.Properties{
		"RestApiId":   api,
		"Description": description,
	})
	b.DependsOn(id, methods...)
	return id
}

func (b *Builder) ApiStage(name string, api, deployment construct.ResourceId, stageName string) construct.ResourceId {
	return b.Add(API_STAGE_TYPE, name, construct.Properties{
		"RestApiId":    api,
		"DeploymentId": deployment,
		"StageName":    stageName,
	})
}

// ApiUrl is the invoke URL of stage.
func ApiUrl(api, stage construct.ResourceId) intrinsic.Join {
	return intrinsic.Join{Values: []any{
		"https://", api, ".execute-api.", intrinsic.Region, ".", intrinsic.URLSuffix, "/", stage, "/",
	}}
}

// ExecuteApiArn matches invocations of method on path (for example `/audits/*/verify`) in any stage.
func ExecuteApiArn(api construct.ResourceId, method, path string) intrinsic.Join {
	return intrinsic.Arn("execute-api", true, api, "/*/"+method+path)
}
