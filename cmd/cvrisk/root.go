package main

import (
	"github.com/spf13/cobra"

	"cvrisk/config"
)

// Set by the linker at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(config.ResolvePath(o.configPath))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cvrisk",
		Short:         "SLE cardiovascular 5-year risk calculator.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default $"+config.EnvPath+" or config.yaml)")

	root.AddCommand(newEvaluateCmd(opts))
	root.AddCommand(newModelCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}
