package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/config"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/traverse"
)

var (
	configPath    string
	schemaPath    string
	debug         bool
	format        string
	allowBoundary bool
	exitIDs       []int64
	policyName    string
	workers       int

	// cfg is the loaded config file with flag overrides applied.
	cfg config.Config
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (default ~/.hydronet/config.yaml)")
	pf.StringVarP(&schemaPath, "schema", "s", "", "Path to source schema (JSON or YAML)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVarP(&format, "format", "f", "json", "Output format: json or msgpack")
	pf.BoolVar(&allowBoundary, "boundary", false, "Treat every unknown downstream target as a boundary exit")
	pf.Int64SliceVar(&exitIDs, "exit", nil, "Declare a downstream target as a boundary exit (repeatable)")
	pf.StringVar(&policyName, "policy", traverse.DefaultPolicyName, "Upstream mainstem policy")
	pf.IntVar(&workers, "workers", 4, "Concurrent traversals for multi-start navigation")
}

var rootCmd = &cobra.Command{
	Use:           "hydronet",
	Short:         "Hydronet: flow-network traversal and path-length engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}

		// Flags set on the command line win over the config file.
		flags := cmd.Flags()
		if flags.Changed("debug") {
			cfg.Debug = debug
		}
		if flags.Changed("schema") {
			cfg.Schema = schemaPath
		}
		if flags.Changed("format") {
			cfg.Format = format
		}
		if flags.Changed("boundary") {
			cfg.AllowBoundary = allowBoundary
		}
		if flags.Changed("policy") {
			cfg.Policy = policyName
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return log.Init(cfg.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
