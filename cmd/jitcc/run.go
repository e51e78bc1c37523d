package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	nameColor = color.New(color.FgCyan)
)

var runCmd = &cobra.Command{
	Use:   "run [sample...]",
	Short: "Compile and run samples (all when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := selectSamples(args)
		if err != nil {
			return err
		}
		failed := 0
		for _, s := range samples {
			o := runSample(cmd.Context(), current.cfg, s)
			printOutcome(cmd.OutOrStdout(), o)
			if !o.ok() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d samples failed", failed, len(samples))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sample catalog",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		for _, s := range catalog {
			fmt.Fprintf(out, "%-10s %s\n", nameColor.Sprint(s.name), s.about)
		}
	},
}

func selectSamples(names []string) ([]*sample, error) {
	if len(names) == 0 {
		all := make([]*sample, len(catalog))
		for i := range catalog {
			all[i] = &catalog[i]
		}
		return all, nil
	}
	out := make([]*sample, 0, len(names))
	for _, name := range names {
		s, err := findSample(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func printOutcome(out io.Writer, o outcome) {
	switch {
	case o.err != nil:
		fmt.Fprintf(out, "%s %s: %v\n", failColor.Sprint("FAIL"), nameColor.Sprint(o.sample.name), o.err)
	case !o.ok():
		fmt.Fprintf(out, "%s %s = %d, want %d\n", failColor.Sprint("FAIL"), nameColor.Sprint(o.sample.name), o.got, o.sample.want)
	default:
		fmt.Fprintf(out, "%s   %s = %d\n", okColor.Sprint("ok"), nameColor.Sprint(o.sample.name), o.got)
	}
	if current.timings && o.timings != "" {
		fmt.Fprint(out, o.timings)
	}
}
