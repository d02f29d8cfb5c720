package stacks

import (
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type eventBusOutputs struct {
	name any
	arn  any
	// custom is false for the account's default bus, which receives S3 events directly.
	custom bool
}

func (a *App) eventBusStack() (*Stack, error) {
	cfg := a.Config.EventBus
	s := NewStack(EventBusStackName, "EventBridge bus for GRACE audit events")
	out := &eventBusOutputs{custom: cfg.Name != aws.DefaultEventBus}

	if cfg.Import || !out.custom {
		out.name = cfg.Name
		out.arn = aws.EventBusArn(cfg.Name)
	} else {
		bus := s.EventBus("GraceAuditEventBus", cfg.Name)
		s.EventArchive("GraceEventArchive", aws.ArchiveConfig{
			ArchiveName:   cfg.Name + "-archive",
			Description:   "Archive for GRACE audit events",
			Source:        aws.Arn(bus),
			RetentionDays: cfg.ArchiveRetentionDays,
		})
		out.name = bus
		out.arn = aws.Arn(bus)
	}

	s.AddOutput("AuditEventBusName", out.name, "Name of the EventBridge bus for audit events")
	a.eventBus = out
	return s, nil
}
