package stacks

import (
	"fmt"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

// lambdaInvokeRetry is the retry policy for transient Lambda service errors.
var lambdaInvokeRetry = []any{
	map[string]any{
		"ErrorEquals": []any{
			"Lambda.ClientExecutionTimeoutException",
			"Lambda.ServiceException",
			"Lambda.AWSLambdaException",
			"Lambda.SdkClientException",
		},
		"IntervalSeconds": 2,
		"MaxAttempts":     6,
		"BackoffRate":     2,
	},
}

// AuditWorkflowDefinition is the state machine that records provenance for a new data object.
func AuditWorkflowDefinition(timeoutSeconds int) map[string]any {
	return map[string]any{
		"StartAt":        "LogProvenance",
		"TimeoutSeconds": timeoutSeconds,
		"States": map[string]any{
			"LogProvenance": map[string]any{
				"Type":     "Task",
				"Resource": "arn:${Partition}:states:::lambda:invoke",
				"Parameters": map[string]any{
					"FunctionName": "${ProvenanceLoggerArn}",
					"Payload": map[string]any{
						"eventSource": "S3",
						"eventType":   "ObjectCreated",
						"timestamp.$": "$.time",
						"detail.$":    "$.detail",
						"resources.$": "$.resources",
					},
				},
				"ResultPath": "$.provenanceResult",
				"Retry":      lambdaInvokeRetry,
				"Next":       "AuditSucceeded",
			},
			"AuditSucceeded": map[string]any{
				"Type": "Succeed",
			},
		},
	}
}

// DataObjectCreatedPattern matches EventBridge notifications of new objects in the data bucket.
func DataObjectCreatedPattern(bucketName any) map[string]any {
	return map[string]any{
		"source":      []any{"aws.s3"},
		"detail-type": []any{"Object Created"},
		"detail": map[string]any{
			"bucket": map[string]any{
				"name": []any{bucketName},
			},
		},
	}
}

func (a *App) workflowStack() (*Stack, error) {
	cfg := a.Config.Workflow
	logger, bus, storage := a.compute.provenanceLogger, a.eventBus, a.storage
	s := NewStack(WorkflowStackName, "Audit workflow orchestration for the GRACE project")

	name, err := a.Config.WorkflowName()
	if err != nil {
		return nil, fmt.Errorf("could not render workflow name: %w", err)
	}

	role := s.IamRole("AuditWorkflowRole", aws.RoleConfig{Service: aws.StatesServicePrincipal})
	policy := s.Grant("AuditWorkflowRoleDefaultPolicy", []construct.ResourceId{role},
		aws.Allow(
			[]any{aws.Arn(logger), intrinsic.Join{Values: []any{aws.Arn(logger), ":*"}}},
			"lambda:InvokeFunction",
		),
	)
	machine := s.StateMachine("AuditWorkflow", aws.StateMachineConfig{
		StateMachineName: name,
		Role:             role,
		Definition:       AuditWorkflowDefinition(cfg.TimeoutSeconds),
		Substitutions: map[string]any{
			"Partition":           intrinsic.Partition,
			"ProvenanceLoggerArn": aws.Arn(logger),
		},
	})
	s.DependsOn(machine, policy)

	eventsRole := s.IamRole("AuditWorkflowEventsRole", aws.RoleConfig{Service: aws.EventsServicePrincipal})
	eventsPolicy := s.Grant("AuditWorkflowEventsRoleDefaultPolicy", []construct.ResourceId{eventsRole},
		aws.Allow([]any{machine}, "states:StartExecution"),
	)
	pattern := DataObjectCreatedPattern(storage.dataBucketName)
	rule := s.EventRule("S3ObjectCreatedRule", aws.RuleConfig{
		Description:  "Rule to trigger the audit workflow when a new object is created in the data bucket",
		EventBusName: bus.name,
		EventPattern: pattern,
		Targets: []aws.RuleTarget{
			{Id: "AuditWorkflow", Arn: machine, RoleArn: aws.Arn(eventsRole)},
		},
	})
	s.DependsOn(rule, eventsPolicy)

	if bus.custom {
		// S3 only publishes to the default bus; forward the matching events on to the audit bus.
		forwardRole := s.IamRole("AuditEventForwarderRole", aws.RoleConfig{Service: aws.EventsServicePrincipal})
		forwardPolicy := s.Grant("AuditEventForwarderRoleDefaultPolicy", []construct.ResourceId{forwardRole},
			aws.Allow([]any{bus.arn}, "events:PutEvents"),
		)
		forward := s.EventRule("S3ObjectCreatedForwardRule", aws.RuleConfig{
			Description:  "Forward data bucket object events from the default bus to the audit bus",
			EventPattern: pattern,
			Targets: []aws.RuleTarget{
				{Id: "AuditEventBus", Arn: bus.arn, RoleArn: aws.Arn(forwardRole)},
			},
		})
		s.DependsOn(forward, forwardPolicy)
	}

	s.AddOutput("StateMachineArn", machine, "The ARN of the audit workflow state machine")
	return s, nil
}
