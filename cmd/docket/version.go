package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/docket"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of docket",
		Args:  cobra.NoArgs,
		// The version needs no config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docket version %s\n", docket.Version)
		},
	}
}
