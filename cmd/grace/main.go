package main

import (
	"fmt"
	"os"

	clicommon "github.com/grace-platform/grace/pkg/cli_common"
	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"
)

var commonCfg struct {
	clicommon.CommonConfig
	configPath string
	overrides  []string
	format     string
}

func cli() int {
	var rootCmd = &cobra.Command{
		Use:   "grace",
		Short: "Synthesize the GRACE infrastructure into CloudFormation templates",
		Long: dedent.Dedent(`
			grace declares the GRACE audit infrastructure (network, database, storage, event bus,
			compute, API, and workflow stacks) and synthesizes one CloudFormation template per stack,
			plus a manifest.json listing the deploy order and the function bundles each stack expects.

			Settings come from --config (JSON, YAML, or TOML) and can be overridden with -c:

			  grace synth -c isProduction=true -c database.instance_class=db.t3.medium
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	clicommon.SetupRoot(rootCmd, &commonCfg.CommonConfig)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&commonCfg.configPath, "config", "", "Config file (JSON, YAML, or TOML). Defaults to grace.yaml if it exists")
	flags.StringArrayVarP(&commonCfg.overrides, "context", "c", nil, "Override a config value, as key=value (repeatable)")
	flags.StringVar(&commonCfg.format, "format", "json", "Template format: json or yaml")

	rootCmd.AddCommand(
		newSynthCmd(),
		newLsCmd(),
		newGraphCmd(),
		newDiffCmd(),
		newQueryCmd(),
		newBundleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errFmt := "Error: %v\n"
		if commonCfg.Verbosity() > 0 {
			// pkg/errors stack traces
			errFmt = "Error: %+v\n"
		}
		fmt.Fprintf(os.Stderr, errFmt, err)
		return 1
	}
	if commonCfg.HadErrors.Load() {
		return 1
	}
	return 0
}

func main() {
	os.Exit(cli())
}
