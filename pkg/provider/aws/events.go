package aws

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

// DefaultEventBus is the account's default bus, which receives AWS service events such as S3
// notifications routed through EventBridge.
const DefaultEventBus = "default"

type (
	ArchiveConfig struct {
		ArchiveName   string
		Description   string
		Source        any
		RetentionDays int
		EventPattern  map[string]any
	}

	RuleConfig struct {
		Description  string
		EventBusName any
		EventPattern map[string]any
		Targets      []RuleTarget
	}

	RuleTarget struct {
		Id      string
		Arn     any
		RoleArn any
	}
)

func (b *Builder) EventBus(name string, busName string) construct.ResourceId {
	return b.Add(EVENT_BUS_TYPE, name, construct.Properties{
		"Name": awssanitizer.StateMachineSanitizer.Apply(busName),
	})
}

// EventBusArn returns the ARN of a bus that is not declared in the application.
func EventBusArn(busName string) intrinsic.Join {
	return intrinsic.Arn("events", true, "event-bus/"+busName)
}

func (b *Builder) EventArchive(name string, cfg ArchiveConfig) construct.ResourceId {
	props := construct.Properties{
		"SourceArn":     cfg.Source,
		"RetentionDays": cfg.RetentionDays,
	}
	if cfg.ArchiveName != "" {
		props["ArchiveName"] = awssanitizer.StateMachineSanitizer.Apply(cfg.ArchiveName)
	}
	if cfg.Description != "" {
		props["Description"] = cfg.Description
	}
	if cfg.EventPattern != nil {
		props["EventPattern"] = cfg.EventPattern
	}
	return b.Add(EVENT_ARCHIVE_TYPE, name, props)
}

func (b *Builder) EventRule(name string, cfg RuleConfig) construct.ResourceId {
	targets := make([]any, len(cfg.Targets))
	for i, t := range cfg.Targets {
		target := map[string]any{
			"Id":  t.Id,
			"Arn": t.Arn,
		}
		if t.RoleArn != nil {
			target["RoleArn"] = t.RoleArn
		}
		targets[i] = target
	}
	props := construct.Properties{
		"State":        "ENABLED",
		"EventPattern": cfg.EventPattern,
		"Targets":      targets,
	}
	if cfg.EventBusName != nil {
		props["EventBusName"] = cfg.EventBusName
	}
	if cfg.Description != "" {
		props["Description"] = cfg.Description
	}
	return b.Add(EVENT_RULE_TYPE, name, props)
}
