package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/ipc"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/sandbox"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the execution context over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()
			if strings.TrimSpace(bind) == "" {
				bind = cfg.Serve.Bind
			}

			b, err := sandbox.NewBridge(cfg, ctx.configPath, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			srv, err := ipc.NewServer(cmd.Context(), bind, b, logger)
			if err != nil {
				return err
			}
			srv.Serve()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (isolation %s, runtime %s)\n", srv.URL(), cfg.Bridge.Isolation, cfg.Bridge.Runtime)

			<-cmd.Context().Done()
			logger.Info("shutting down execution server", logging.String("url", srv.URL()))
			srv.Close()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default serve.bind)")
	return cmd
}
