package aws

import "github.com/grace-platform/grace/pkg/construct"

type (
	UserPoolConfig struct {
		UserPoolName    string
		SelfSignUp      bool
		AutoVerifyEmail bool
		EmailRequired   bool
		EmailMutable    bool
		PasswordPolicy  PasswordPolicy
		DeletionPolicy  string
	}

	PasswordPolicy struct {
		MinimumLength    int
		RequireLowercase bool
		RequireUppercase bool
		RequireNumbers   bool
		RequireSymbols   bool
	}

	// AuthFlow is an explicit authentication flow a user pool client allows.
	AuthFlow string
)

const (
	AuthFlowUserPassword AuthFlow = "ALLOW_USER_PASSWORD_AUTH"
	AuthFlowUserSrp      AuthFlow = "ALLOW_USER_SRP_AUTH"
	AuthFlowRefreshToken AuthFlow = "ALLOW_REFRESH_TOKEN_AUTH"
)

func (b *Builder) UserPool(name string, cfg UserPoolConfig) construct.ResourceId {
	props := construct.Properties{
		"AdminCreateUserConfig": map[string]any{
			"AllowAdminCreateUserOnly": !cfg.SelfSignUp,
		},
		"Policies": map[string]any{
			"PasswordPolicy": map[string]any{
				"MinimumLength":    cfg.PasswordPolicy.MinimumLength,
				"RequireLowercase": cfg.PasswordPolicy.RequireLowercase,
				"RequireUppercase": cfg.PasswordPolicy.RequireUppercase,
				"RequireNumbers":   cfg.PasswordPolicy.RequireNumbers,
				"RequireSymbols":   cfg.PasswordPolicy.RequireSymbols,
			},
		},
		"UsernameAttributes": []any{"email"},
		"AccountRecoverySetting": map[string]any{
			"RecoveryMechanisms": []any{
				map[string]any{"Name": "verified_email", "Priority": 1},
			},
		},
	}
	if cfg.UserPoolName != "" {
		props["UserPoolName"] = cfg.UserPoolName
	}
	if cfg.AutoVerifyEmail {
		props["AutoVerifiedAttributes"] = []any{"email"}
	}
	if cfg.EmailRequired || cfg.EmailMutable {
		props["Schema"] = []any{
			map[string]any{
				"Name":     "email",
				"Required": cfg.EmailRequired,
				"Mutable":  cfg.EmailMutable,
			},
		}
	}
	if cfg.DeletionPolicy != "" {
		props["DeletionPolicy"] = cfg.DeletionPolicy
	}
	return b.Add(COGNITO_USER_POOL_TYPE, name, props)
}

// UserPoolClient declares a public (secretless) app client. Refresh tokens are always allowed.
func (b *Builder) UserPoolClient(name string, pool construct.ResourceId, flows ...AuthFlow) construct.ResourceId {
	explicit := make([]any, 0, len(flows)+1)
	for _, f := range flows {
		explicit = append(explicit, string(f))
	}
	explicit = append(explicit, string(AuthFlowRefreshToken))
	return b.Add(COGNITO_USER_POOL_CLIENT_TYPE, name, construct.Properties{
		"UserPoolId":                      pool,
		"ExplicitAuthFlows":               explicit,
		"GenerateSecret":                  false,
		"AllowedOAuthFlowsUserPoolClient": false,
		"SupportedIdentityProviders":      []any{"COGNITO"},
	})
}
