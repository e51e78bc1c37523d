package main

import (
	"context"
	"fmt"

	"jitcc/internal/config"
	"jitcc/internal/engine"
	"jitcc/internal/jit"
	"jitcc/internal/jit/ops"
	"jitcc/internal/trace"
	"jitcc/internal/types"
)

// newCompiler opens a compiler with the standard operators installed.
func newCompiler(ctx context.Context, cfg config.Config) (*jit.Compiler, error) {
	c, err := jit.New(types.NewEnv(), cfg.Options(trace.FromContext(ctx)))
	if err != nil {
		return nil, err
	}
	if err := ops.Install(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// evaluate sets the sample up on c, reifies its result expression with
// globals inlined and runs it.
func evaluate(c *jit.Compiler, s *sample) (int64, error) {
	result, err := s.setup(c)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.name, err)
	}
	long := c.TypeEnv().Types().Builtins().Long
	entry, err := c.ReifyMachineCodeForFn(long, nil, nil, c.InlineGlobals(result))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.name, err)
	}
	defer c.ReleaseMachineCode(entry)
	return engine.MakeFunc[func() int64](entry)(), nil
}

// outcome is the result of running one sample on its own compiler.
type outcome struct {
	sample  *sample
	got     int64
	err     error
	timings string
}

func (o outcome) ok() bool {
	return o.err == nil && o.got == o.sample.want
}

func runSample(ctx context.Context, cfg config.Config, s *sample) (o outcome) {
	o.sample = s
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "sample", trace.CurrentSpan(ctx)).WithExtra("name", s.name)
	defer func() {
		detail := "ok"
		if !o.ok() {
			detail = "failed"
		}
		span.End(detail)
	}()

	c, err := newCompiler(ctx, cfg)
	if err != nil {
		o.err = err
		return o
	}
	defer func() {
		if err := c.Close(); err != nil && o.err == nil {
			o.err = err
		}
	}()
	o.got, o.err = evaluate(c, s)
	o.timings = c.Timings().Summary()
	return o
}
