// Package editor opens files in the user's text editor and waits for it to exit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Result holds the exit state of an editor session.
type Result struct {
	Program  string
	ExitCode int
	Err      error
}

// Launcher runs an editor attached to the given terminal streams.
type Launcher struct {
	program string
	args    []string
	options *Options
}

// Options configures how the editor process is attached.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env variables appended to the current environment
	Env map[string]string
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions attaches the editor to the process's own terminal.
func DefaultOptions() *Options {
	return &Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Env:    make(map[string]string),
	}
}

// DefaultProgram returns the platform editor used when $EDITOR is unset.
func DefaultProgram() string {
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "nano"
}

// FromEnv creates a Launcher for $VISUAL, then $EDITOR, then the platform
// default. The variable may carry arguments, e.g. "code --wait".
func FromEnv(lookup func(string) string) *Launcher {
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(lookup(name)); len(fields) > 0 {
			return New(fields[0], fields[1:]...)
		}
	}
	return New(DefaultProgram())
}

// New creates a Launcher running program with args before the file path.
func New(program string, args ...string) *Launcher {
	return &Launcher{
		program: program,
		args:    args,
		options: DefaultOptions(),
	}
}

// Program returns the editor command.
func (l *Launcher) Program() string {
	return l.program
}

// Open runs the editor on path and waits for it to exit. A non-zero exit
// status is returned as an error carrying the exit code.
func (l *Launcher) Open(ctx context.Context, path string, opts ...Option) (*Result, error) {
	options := l.mergeOptions(opts...)

	args := append(append([]string{}, l.args...), path)
	cmd := exec.CommandContext(ctx, l.program, args...)
	cmd.Stdin = options.Stdin
	cmd.Stdout = options.Stdout
	cmd.Stderr = options.Stderr
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	err := cmd.Run()
	result := &Result{Program: l.program, Err: err}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}
	return result, fmt.Errorf("editor %s failed: %w", l.program, err)
}

func (l *Launcher) mergeOptions(opts ...Option) *Options {
	merged := *l.options
	for _, opt := range opts {
		opt(&merged)
	}
	return &merged
}

// WithStreams replaces the terminal streams
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.Stdin = stdin
		o.Stdout = stdout
		o.Stderr = stderr
	}
}

// WithEnvVar adds a single environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		env := make(map[string]string, len(o.Env)+1)
		for k, v := range o.Env {
			env[k] = v
		}
		env[key] = value
		o.Env = env
	}
}
