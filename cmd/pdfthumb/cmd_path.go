package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsawler/pdfthumb"
)

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path name",
		Short: "Print the public path of a thumbnail without creating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := pdfthumb.New(a.cfg)
			if err != nil {
				return err
			}
			ref, err := t.Reference(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref)
			return nil
		},
	}
}
