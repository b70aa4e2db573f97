package main

import (
	"github.com/spf13/cobra"

	"led-service/internal/rpc"
	"led-service/internal/utils"
)

func newServeStdioCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-stdio",
		Short: "Serve JSON-RPC requests on stdin/stdout, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer utils.CloseLogger(logger)

			return rpc.ServeStdio(cmd.Context(), c.stdin, c.stdout, rpc.NewDispatcher(svc, logger))
		},
	}
}
