package stacks

import (
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

// VerifyPath is the chain verification endpoint, relative to the stage URL.
const VerifyPath = "/audits/{datasetId}/verify"

var allowAll = aws.CorsConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{"OPTIONS", "GET", "PUT", "POST", "DELETE", "PATCH", "HEAD"},
}

func (a *App) apiStack() (*Stack, error) {
	cfg := a.Config.Api
	ledger := a.storage.ledgerBucket
	s := NewStack(ApiStackName, "Authenticated API for GRACE audit verification")

	pool := s.UserPool("GraceUserPool", aws.UserPoolConfig{
		SelfSignUp:      true,
		AutoVerifyEmail: true,
		EmailRequired:   true,
		EmailMutable:    true,
		PasswordPolicy: aws.PasswordPolicy{
			MinimumLength:    8,
			RequireLowercase: true,
			RequireUppercase: true,
			RequireNumbers:   true,
			RequireSymbols:   true,
		},
		DeletionPolicy: a.deletionPolicy(),
	})
	client := s.UserPoolClient("GraceApiClient", pool, aws.AuthFlowUserPassword, aws.AuthFlowUserSrp)

	api := s.RestApi("GraceApi", cfg.Name, cfg.Description)
	authorizer := s.CognitoAuthorizer("GraceAuthorizer", api, pool)

	verifier, err := a.addFunction(s, function{
		Name:    "ChainVerifierFunction",
		Handler: ChainVerifierHandler,
		FunctionConfig: aws.FunctionConfig{
			Description: "Verifies the hash chain of a dataset's audit records",
			Timeout:     30,
			Environment: map[string]any{
				"LEDGER_BUCKET_NAME": ledger,
			},
		},
		Statements: []aws.Statement{
			aws.Allow([]any{aws.BucketArn(ledger, ""), aws.BucketArn(ledger, "/*")}, "s3:ListBucket", "s3:GetObject"),
		},
	})
	if err != nil {
		return nil, err
	}

	methods := []construct.ResourceId{
		s.CorsPreflight("GraceApiOPTIONS", api, aws.RootResource(api), allowAll),
	}
	audits := s.ApiResource("GraceApiAudits", api, aws.RootResource(api), "audits")
	dataset := s.ApiResource("GraceApiAuditsDatasetId", api, audits, "{datasetId}")
	verify := s.ApiResource("GraceApiAuditsDatasetIdVerify", api, dataset, "verify")
	for _, r := range []construct.ResourceId{audits, dataset, verify} {
		methods = append(methods, s.CorsPreflight(r.Name+"OPTIONS", api, r, allowAll))
	}
	methods = append(methods, s.ApiMethod("GraceApiAuditsDatasetIdVerifyPOST", aws.MethodConfig{
		Api:         api,
		Resource:    verify,
		HttpMethod:  "POST",
		Authorizer:  authorizer,
		Integration: aws.LambdaProxyIntegration(verifier),
	}))
	s.LambdaPermission("ChainVerifierApiPermission", verifier, aws.ApiGatewayServicePrincipal,
		aws.ExecuteApiArn(api, "POST", "/audits/*/verify"))

	deployment := s.ApiDeployment("GraceApiDeployment", api, "Automatically created by the GRACE API stack", methods...)
	stage := s.ApiStage("GraceApiDeploymentStage", api, deployment, cfg.StageName)

	s.AddOutput("UserPoolId", pool, "The ID of the Cognito User Pool")
	s.AddOutput("UserPoolClientId", client, "The ID of the Cognito User Pool Client")
	s.AddOutput("ApiUrl", aws.ApiUrl(api, stage), "The URL of the API Gateway")
	return s, nil
}
