package main

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <sample>",
	Short: "Run a sample and print the compiler's symbols, region and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := findSample(args[0])
		if err != nil {
			return err
		}
		c, err := newCompiler(cmd.Context(), current.cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		if _, err := evaluate(c, s); err != nil {
			return err
		}
		return c.Dump(cmd.OutOrStdout())
	},
}
