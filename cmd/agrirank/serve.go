package main

import (
	"context"

	"github.com/spf13/cobra"

	"agrirank/internal/app"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rankings over HTTP and stream runs over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			application, err := app.NewApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port, overrides server.port")
	return cmd
}
