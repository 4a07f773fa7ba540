package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes shell snippets through the embedded POSIX interpreter,
// so the same command lines work without a system shell.
type Runner struct {
	Timeout time.Duration
	Dir     string
	Env     []string
}

// StepResult is the outcome of one command line.
type StepResult struct {
	Command  string
	Output   string
	ExitCode int
	Err      error
}

// OK reports whether the command exited zero without runner errors.
func (s StepResult) OK() bool { return s.Err == nil && s.ExitCode == 0 }

// Run parses and executes script, capturing stdout and stderr together.
// A non-zero exit status is reported in ExitCode, not as Err.
func (r Runner) Run(ctx context.Context, script string) StepResult {
	res := StepResult{Command: script}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "command")
	if err != nil {
		res.ExitCode = 1
		res.Err = fmt.Errorf("failed to parse command: %w", err)
		return res
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	}
	if r.Dir != "" {
		opts = append(opts, interp.Dir(r.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		res.ExitCode = 1
		res.Err = fmt.Errorf("failed to create interpreter: %w", err)
		return res
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	err = runner.Run(ctx, prog)
	res.Output = strings.TrimSpace(out.String())
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			res.ExitCode = int(status)
		} else {
			res.ExitCode = 1
			res.Err = err
		}
	}
	return res
}
