package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yishak-cs/bundle-miner/internal/ingest"
)

func newDatesCmd(_ *globalOptions) *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "dates <transactions>",
		Short: "Print the distinct dates of a timestamp column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ingest.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			dates, err := ingest.UniqueDates(t, column)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range dates {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "Created Time", "timestamp column")
	return cmd
}
