package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"led-service/internal/utils"
)

func newBoardsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List known boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer utils.CloseLogger(logger)

			w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLED\tVARIANT\tBAUD")
			for _, b := range svc.ListBoards() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", b.ID, b.Name, b.Led.Type, b.Variant(), b.Serial.BaudRate)
			}
			return w.Flush()
		},
	}
}
