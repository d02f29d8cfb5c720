package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type (
	Application struct {
		// Version is the semantic version of the config file format.
		Version string `json:"version" yaml:"version" toml:"version" mapstructure:"version"`
		AppName string `json:"app" yaml:"app" toml:"app" mapstructure:"app"`
		Region  string `json:"region" yaml:"region" toml:"region" mapstructure:"region"`
		Account string `json:"account,omitempty" yaml:"account,omitempty" toml:"account,omitempty" mapstructure:"account"`

		// Production selects production behaviour: retained data, deletion protection, and `prod` names.
		Production bool `json:"production" yaml:"production" toml:"production" mapstructure:"production"`

		// Format is what format the file was originally in so that when we output
		// the resolved config, it keeps the same format.
		Format string `json:"-" yaml:"-" toml:"-" mapstructure:"-"`

		Tags     map[string]string `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty" mapstructure:"tags"`
		Network  Network           `json:"network" yaml:"network" toml:"network" mapstructure:"network"`
		Database Database          `json:"database" yaml:"database" toml:"database" mapstructure:"database"`
		Storage  Storage           `json:"storage" yaml:"storage" toml:"storage" mapstructure:"storage"`
		EventBus EventBus          `json:"event_bus" yaml:"event_bus" toml:"event_bus" mapstructure:"event_bus"`
		Api      Api               `json:"api" yaml:"api" toml:"api" mapstructure:"api"`
		Workflow Workflow          `json:"workflow" yaml:"workflow" toml:"workflow" mapstructure:"workflow"`
		Assets   Assets            `json:"assets" yaml:"assets" toml:"assets" mapstructure:"assets"`
	}

	Network struct {
		Cidr        string `json:"cidr" yaml:"cidr" toml:"cidr" mapstructure:"cidr"`
		MaxAzs      int    `json:"max_azs" yaml:"max_azs" toml:"max_azs" mapstructure:"max_azs"`
		NatGateways int    `json:"nat_gateways" yaml:"nat_gateways" toml:"nat_gateways" mapstructure:"nat_gateways"`
	}

	Database struct {
		SecretName          string `json:"secret_name" yaml:"secret_name" toml:"secret_name" mapstructure:"secret_name"`
		Username            string `json:"username" yaml:"username" toml:"username" mapstructure:"username"`
		DatabaseName        string `json:"database_name" yaml:"database_name" toml:"database_name" mapstructure:"database_name"`
		EngineVersion       string `json:"engine_version" yaml:"engine_version" toml:"engine_version" mapstructure:"engine_version"`
		InstanceClass       string `json:"instance_class" yaml:"instance_class" toml:"instance_class" mapstructure:"instance_class"`
		AllocatedStorage    int    `json:"allocated_storage" yaml:"allocated_storage" toml:"allocated_storage" mapstructure:"allocated_storage"`
		BackupRetentionDays int    `json:"backup_retention_days" yaml:"backup_retention_days" toml:"backup_retention_days" mapstructure:"backup_retention_days"`
		Port                int    `json:"port" yaml:"port" toml:"port" mapstructure:"port"`
	}

	Storage struct {
		DataBucketName string `json:"data_bucket_name" yaml:"data_bucket_name" toml:"data_bucket_name" mapstructure:"data_bucket_name"`
		// ImportDataBucket references an existing data bucket by name instead of creating it.
		ImportDataBucket    bool `json:"import_data_bucket" yaml:"import_data_bucket" toml:"import_data_bucket" mapstructure:"import_data_bucket"`
		LedgerRetentionDays int  `json:"ledger_retention_days" yaml:"ledger_retention_days" toml:"ledger_retention_days" mapstructure:"ledger_retention_days"`
	}

	EventBus struct {
		Name string `json:"name" yaml:"name" toml:"name" mapstructure:"name"`
		// Import references an existing bus by name. The name `default` always refers to the account's default bus.
		Import               bool `json:"import" yaml:"import" toml:"import" mapstructure:"import"`
		ArchiveRetentionDays int  `json:"archive_retention_days" yaml:"archive_retention_days" toml:"archive_retention_days" mapstructure:"archive_retention_days"`
	}

	Api struct {
		Name        string `json:"name" yaml:"name" toml:"name" mapstructure:"name"`
		Description string `json:"description" yaml:"description" toml:"description" mapstructure:"description"`
		StageName   string `json:"stage_name" yaml:"stage_name" toml:"stage_name" mapstructure:"stage_name"`
	}

	Workflow struct {
		// NameTemplate is a text/template (with sprig functions) rendered against the [Application].
		NameTemplate   string `json:"name_template" yaml:"name_template" toml:"name_template" mapstructure:"name_template"`
		TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" mapstructure:"timeout_seconds"`
	}

	Assets struct {
		// Bucket holds the staged function bundles. The CLI uploads nothing: a deploy step copies `<out>/assets` there.
		Bucket string `json:"bucket" yaml:"bucket" toml:"bucket" mapstructure:"bucket"`
		// SourceRoot is the module root that the handler source globs are relative to.
		SourceRoot string `json:"source_root" yaml:"source_root" toml:"source_root" mapstructure:"source_root"`
	}
)

const CurrentVersion = "1.0.0"

// Default returns the configuration used for any value not set in the config file.
func Default() Application {
	return Application{
		Version: CurrentVersion,
		AppName: "grace",
		Region:  "eu-west-2",
		Network: Network{
			Cidr:        "10.0.0.0/16",
			MaxAzs:      2,
			NatGateways: 1,
		},
		Database: Database{
			SecretName:          "grace/database/credentials/v1",
			Username:            "graceadmin",
			DatabaseName:        "gracedb",
			EngineVersion:       "15",
			InstanceClass:       "db.t3.small",
			AllocatedStorage:    20,
			BackupRetentionDays: 7,
			Port:                5432,
		},
		Storage: Storage{
			DataBucketName:      "grace-kirocomp-data",
			LedgerRetentionDays: 365,
		},
		EventBus: EventBus{
			Name:                 "grace-audit-events",
			ArchiveRetentionDays: 365,
		},
		Api: Api{
			Name:        "GRACE API",
			Description: "API for GRACE audit verification",
			StageName:   "prod",
		},
		Workflow: Workflow{
			NameTemplate:   `grace-audit-workflow-{{ ternary "prod" "dev" .Production }}`,
			TimeoutSeconds: 300,
		},
		Assets: Assets{
			SourceRoot: ".",
		},
	}
}

// ReadConfig reads the file at fpath, by extension, on top of [Default].
func ReadConfig(fpath string) (Application, error) {
	appCfg := Default()

	f, err := os.Open(fpath)
	if err != nil {
		return appCfg, err
	}
	defer f.Close() // nolint:errcheck

	var read Application
	switch filepath.Ext(fpath) {
	case ".json":
		err = json.NewDecoder(f).Decode(&read)
		read.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&read)
		read.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&read)
		read.Format = "toml"

	default:
		return appCfg, fmt.Errorf("unsupported config format %q", filepath.Ext(fpath))
	}
	if err != nil {
		return appCfg, fmt.Errorf("could not decode %s: %w", fpath, err)
	}
	appCfg.Merge(read)
	return appCfg, nil
}

// Merge overlays every non-zero value of other onto cfg. Production is a plain bool,
// so a file can only turn it on; use an override to turn it off.
func (cfg *Application) Merge(other Application) {
	mergeString(&cfg.Version, other.Version)
	mergeString(&cfg.AppName, other.AppName)
	mergeString(&cfg.Region, other.Region)
	mergeString(&cfg.Account, other.Account)
	mergeString(&cfg.Format, other.Format)
	if other.Production {
		cfg.Production = true
	}
	if len(other.Tags) > 0 && cfg.Tags == nil {
		cfg.Tags = make(map[string]string, len(other.Tags))
	}
	for k, v := range other.Tags {
		cfg.Tags[k] = v
	}
	cfg.Network.Merge(other.Network)
	cfg.Database.Merge(other.Database)
	cfg.Storage.Merge(other.Storage)
	cfg.EventBus.Merge(other.EventBus)
	cfg.Api.Merge(other.Api)
	cfg.Workflow.Merge(other.Workflow)
	cfg.Assets.Merge(other.Assets)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (cfg *Network) Merge(other Network) {
	mergeString(&cfg.Cidr, other.Cidr)
	mergeInt(&cfg.MaxAzs, other.MaxAzs)
	mergeInt(&cfg.NatGateways, other.NatGateways)
}

func (cfg *Database) Merge(other Database) {
	mergeString(&cfg.SecretName, other.SecretName)
	mergeString(&cfg.Username, other.Username)
	mergeString(&cfg.DatabaseName, other.DatabaseName)
	mergeString(&cfg.EngineVersion, other.EngineVersion)
	mergeString(&cfg.InstanceClass, other.InstanceClass)
	mergeInt(&cfg.AllocatedStorage, other.AllocatedStorage)
	mergeInt(&cfg.BackupRetentionDays, other.BackupRetentionDays)
	mergeInt(&cfg.Port, other.Port)
}

func (cfg *Storage) Merge(other Storage) {
	mergeString(&cfg.DataBucketName, other.DataBucketName)
	if other.ImportDataBucket {
		cfg.ImportDataBucket = true
	}
	mergeInt(&cfg.LedgerRetentionDays, other.LedgerRetentionDays)
}

func (cfg *EventBus) Merge(other EventBus) {
	mergeString(&cfg.Name, other.Name)
	if other.Import {
		cfg.Import = true
	}
	mergeInt(&cfg.ArchiveRetentionDays, other.ArchiveRetentionDays)
}

func (cfg *Api) Merge(other Api) {
	mergeString(&cfg.Name, other.Name)
	mergeString(&cfg.Description, other.Description)
	mergeString(&cfg.StageName, other.StageName)
}

func (cfg *Workflow) Merge(other Workflow) {
	mergeString(&cfg.NameTemplate, other.NameTemplate)
	mergeInt(&cfg.TimeoutSeconds, other.TimeoutSeconds)
}

func (cfg *Assets) Merge(other Assets) {
	mergeString(&cfg.Bucket, other.Bucket)
	mergeString(&cfg.SourceRoot, other.SourceRoot)
}
