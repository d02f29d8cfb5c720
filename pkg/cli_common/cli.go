package clicommon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/grace-platform/grace/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	verbose   LevelledFlag
	jsonLog   bool
	color     string
	logsDir   string
	profileTo string

	HadWarnings atomic.Bool
	HadErrors   atomic.Bool
}

// Verbosity is the number of times `-v` was given.
func (c *CommonConfig) Verbosity() int {
	return int(c.verbose)
}

func setupProfiling(commonCfg *CommonConfig) func() {
	if commonCfg.profileTo == "" {
		return func() {}
	}
	err := os.MkdirAll(filepath.Dir(commonCfg.profileTo), 0755)
	if err != nil {
		panic(fmt.Errorf("failed to create profile directory: %w", err))
	}
	profileF, err := os.OpenFile(commonCfg.profileTo, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		panic(fmt.Errorf("failed to open profile file: %w", err))
	}
	err = pprof.StartCPUProfile(profileF)
	if err != nil {
		panic(fmt.Errorf("failed to start profile: %w", err))
	}
	return func() {
		pprof.StopCPUProfile()
		profileF.Close()
	}
}

// LogOpts builds the logging options for the parsed flags. A single `-v` turns on debug output;
// a second one also lowers the noisy per-tool loggers.
func (c *CommonConfig) LogOpts() logging.LogOpts {
	opts := logging.LogOpts{
		Verbose:         c.verbose > 0,
		Color:           c.color,
		CategoryLogsDir: c.logsDir,
		HadWarnings:     &c.HadWarnings,
		HadErrors:       &c.HadErrors,
		DefaultLevels: map[string]zapcore.Level{
			"kb.load":       zap.WarnLevel,
			"bundle.stdout": zap.WarnLevel,
			"bundle.stderr": zap.InfoLevel,
		},
	}
	if c.verbose > 1 {
		opts.DefaultLevels = nil
	}
	if c.jsonLog {
		opts.Encoding = "json"
	}
	return opts
}

func SetupRoot(root *cobra.Command, commonCfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&commonCfg.verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.BoolVar(&commonCfg.jsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&commonCfg.color, "color", "auto", "Colorize output: auto, always, never")
	flags.StringVar(&commonCfg.logsDir, "logs-dir", "", "Directory to write per-command logs to")
	flags.StringVar(&commonCfg.profileTo, "profiling", "", "Profile to file")

	profileClose := func() {}

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		zap.ReplaceGlobals(commonCfg.LogOpts().NewLogger())

		profileClose = setupProfiling(commonCfg)
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck

		profileClose()
	}
}
