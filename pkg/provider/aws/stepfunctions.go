package aws

import (
	"github.com/grace-platform/grace/pkg/construct"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

type StateMachineConfig struct {
	StateMachineName string
	Role             construct.ResourceId
	// Definition is the Amazon States Language document. `${Name}` placeholders in it are replaced
	// with the matching Substitutions value at deploy time.
	Definition    map[string]any
	Substitutions map[string]any
}

func (b *Builder) StateMachine(name string, cfg StateMachineConfig) construct.ResourceId {
	props := construct.Properties{
		"StateMachineType": "STANDARD",
		"RoleArn":          Arn(cfg.Role),
		"Definition":       cfg.Definition,
	}
	if cfg.StateMachineName != "" {
		props["StateMachineName"] = awssanitizer.StateMachineSanitizer.Apply(cfg.StateMachineName)
	}
	if len(cfg.Substitutions) > 0 {
		props["DefinitionSubstitutions"] = cfg.Substitutions
	}
	return b.Add(STATE_MACHINE_TYPE, name, props)
}
