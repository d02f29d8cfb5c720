package config

import (
	"fmt"
	"net"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/coreos/go-semver/semver"
)

const (
	RemovalPolicyRetain  = "RETAIN"
	RemovalPolicyDestroy = "DESTROY"
)

// Environment is `production` or `development`.
func (cfg Application) Environment() string {
	if cfg.Production {
		return "production"
	}
	return "development"
}

// RemovalPolicy is what happens to environment-scoped data when its stack is deleted.
func (cfg Application) RemovalPolicy() string {
	if cfg.Production {
		return RemovalPolicyRetain
	}
	return RemovalPolicyDestroy
}

// IsProductionFlag renders Production the way custom resources receive it, as the string "true" or "false".
func (cfg Application) IsProductionFlag() string {
	if cfg.Production {
		return "true"
	}
	return "false"
}

// WorkflowName renders Workflow.NameTemplate.
func (cfg Application) WorkflowName() (string, error) {
	return cfg.render("workflow.name_template", cfg.Workflow.NameTemplate)
}

func (cfg Application) render(name, text string) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.HermeticTxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("could not parse %s: %w", name, err)
	}
	sb := new(strings.Builder)
	if err := tmpl.Execute(sb, cfg); err != nil {
		return "", fmt.Errorf("could not render %s: %w", name, err)
	}
	return sb.String(), nil
}

// Validate reports every invalid setting at once.
func (cfg Application) Validate() error {
	var errs []string
	current := semver.New(CurrentVersion)
	if v, err := semver.NewVersion(cfg.Version); err != nil {
		errs = append(errs, fmt.Sprintf("version: %v", err))
	} else if v.Major != current.Major {
		errs = append(errs, fmt.Sprintf("version: unsupported major version %d (expected %d)", v.Major, current.Major))
	}
	if cfg.AppName == "" {
		errs = append(errs, "app: must not be empty")
	}
	if cfg.Region == "" {
		errs = append(errs, "region: must not be empty")
	}
	if _, ipnet, err := net.ParseCIDR(cfg.Network.Cidr); err != nil {
		errs = append(errs, fmt.Sprintf("network.cidr: %v", err))
	} else if ones, _ := ipnet.Mask.Size(); ones > 20 {
		errs = append(errs, fmt.Sprintf("network.cidr: /%d is too small for %d AZs of /24 subnets", ones, cfg.Network.MaxAzs))
	}
	if cfg.Network.MaxAzs < 1 || cfg.Network.MaxAzs > 3 {
		errs = append(errs, fmt.Sprintf("network.max_azs: must be between 1 and 3, got %d", cfg.Network.MaxAzs))
	}
	if cfg.Network.NatGateways < 1 || cfg.Network.NatGateways > cfg.Network.MaxAzs {
		errs = append(errs, fmt.Sprintf("network.nat_gateways: must be between 1 and max_azs, got %d", cfg.Network.NatGateways))
	}
	if cfg.Storage.DataBucketName == "" {
		errs = append(errs, "storage.data_bucket_name: must not be empty")
	}
	if cfg.EventBus.Name == "" {
		errs = append(errs, "event_bus.name: must not be empty")
	}
	if cfg.Assets.Bucket == "" {
		errs = append(errs, "assets.bucket: must not be empty")
	}
	if _, err := cfg.WorkflowName(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
