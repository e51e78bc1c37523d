package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkJobs int

func init() {
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "compilers running at once (0 = GOMAXPROCS)")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the whole catalog on independent compilers in parallel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobs := checkJobs
		if jobs <= 0 {
			jobs = runtime.GOMAXPROCS(0)
		}
		samples, err := selectSamples(nil)
		if err != nil {
			return err
		}

		// every goroutine writes its own slot
		results := make([]outcome, len(samples))
		g, gctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(min(jobs, len(samples)))
		for i, s := range samples {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				results[i] = runSample(gctx, current.cfg, s)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := 0
		for _, o := range results {
			printOutcome(cmd.OutOrStdout(), o)
			if !o.ok() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d samples failed", failed, len(samples))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d samples\n", okColor.Sprint("passed"), len(samples))
		return nil
	},
}
