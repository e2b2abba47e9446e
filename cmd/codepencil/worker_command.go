package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/sandbox"
)

// newWorkerCommand is the isolated execution context. The parent bridge
// talks to it over stdin/stdout with newline-delimited JSON.
func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    bridge.WorkerCommand,
		Short:  "Run the execution context on stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()
			rt, err := sandbox.FromConfig(cfg)
			if err != nil {
				return err
			}
			err = sandbox.NewWorker(rt, logger).Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
