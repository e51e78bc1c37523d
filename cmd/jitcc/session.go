package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jitcc/internal/config"
	"jitcc/internal/trace"
)

const defaultConfigFile = "jitcc.toml"

// session is the state shared by every command of one invocation.
type session struct {
	cfg       config.Config
	tracer    trace.Tracer
	heartbeat *trace.Heartbeat
	timings   bool
}

var current = &session{cfg: config.Default(), tracer: trace.Nop}

func openSession(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid color mode %q (expected: auto|on|off)", colorFlag)
	}

	cfg, err := loadConfig(flags.Lookup("config").Value.String())
	if err != nil {
		return err
	}
	if out, _ := flags.GetString("trace"); out != "" {
		cfg.Trace.Output = out
		if cfg.Trace.Level == "off" {
			cfg.Trace.Level = "phase"
		}
	}
	if level, _ := flags.GetString("trace-level"); level != "" {
		cfg.Trace.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	tc, err := cfg.TraceConfig()
	if err != nil {
		return err
	}
	if tc.Heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	tracer, err := trace.New(tc)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	if current.timings, err = flags.GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	current.cfg = cfg
	current.tracer = tracer
	current.heartbeat = trace.StartHeartbeat(tracer, tc.Heartbeat)
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return nil
}

// loadConfig reads path, or jitcc.toml in the working directory when path
// is empty, or only the environment when neither exists.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	} else if !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("failed to stat %q: %w", defaultConfigFile, err)
	}
	return config.FromEnv()
}

func (s *session) close(errOut io.Writer) {
	s.heartbeat.Stop()
	if err := s.tracer.Flush(); err != nil {
		fmt.Fprintf(errOut, "trace: flush error: %v\n", err)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(errOut, "trace: close error: %v\n", err)
	}
}
