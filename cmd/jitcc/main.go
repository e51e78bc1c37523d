package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jitcc/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "jitcc",
	Short: "Drive the JIT compiler core over a catalog of sample programs",
	Long: `jitcc compiles built-in sample programs to native code, runs them and
shows the compiler state. It is a development tool for the compiler core.`,
	SilenceUsage:      true,
	PersistentPreRunE: openSession,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to jitcc.toml (default: ./jitcc.toml when present)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval while tracing (0 disables)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	err := rootCmd.Execute()
	current.close(rootCmd.ErrOrStderr())
	if err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
