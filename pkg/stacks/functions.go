package stacks

import (
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type function struct {
	aws.FunctionConfig

	// Name prefixes the names of the function's role, policy, and log group.
	Name             string
	Handler          string
	LogRetentionDays int
	Statements       []aws.Statement
}

const defaultLogRetentionDays = 30

// addFunction declares a function along with its execution role, inline policy, and log group.
func (a *App) addFunction(s *Stack, f function) (construct.ResourceId, error) {
	code, err := a.functionCode(f.Handler)
	if err != nil {
		return construct.ResourceId{}, err
	}
	cfg := f.FunctionConfig
	cfg.Code = code
	cfg.Role = s.LambdaExecutionRole(f.Name+"ServiceRole", len(cfg.Subnets) > 0)

	var policy construct.ResourceId
	if len(f.Statements) > 0 {
		policy = s.Grant(f.Name+"ServiceRoleDefaultPolicy", []construct.ResourceId{cfg.Role}, f.Statements...)
	}
	fn := s.LambdaFunction(f.Name, cfg)
	if !policy.IsZero() {
		s.DependsOn(fn, policy)
	}

	retention := f.LogRetentionDays
	if retention == 0 {
		retention = defaultLogRetentionDays
	}
	s.FunctionLogGroup(f.Name+"LogGroup", fn, retention, a.deletionPolicy())
	return fn, nil
}

func (a *App) deletionPolicy() string {
	return aws.DeletionPolicyFor(a.Config.RemovalPolicy())
}

func idList(list []construct.ResourceId) []any {
	out := make([]any, len(list))
	for i, id := range list {
		out[i] = id
	}
	return out
}
