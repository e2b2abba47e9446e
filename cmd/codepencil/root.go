package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configPath string
		assumeYes  bool
	)
	ctx := newCommandContext(&configPath, &assumeYes)

	root := &cobra.Command{
		Use:           "codepencil",
		Short:         "Handwritten code notebooks",
		Long:          "codepencil stores ink notebooks as SVG cell documents and runs their recognized code in an isolated worker.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Configuration file path")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "Grant project access without prompting")

	for _, build := range []func(*commandContext) *cobra.Command{
		newProjectCommand,
		newRunCommand,
		newServeCommand,
		newWorkerCommand,
		newExportCommand,
		newHistoryCommand,
		newStatusCommand,
		newConfigCommand,
	} {
		root.AddCommand(build(ctx))
	}
	return root
}
