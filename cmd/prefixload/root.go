package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/config"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// errRunFailed signals a completed run with failed files; the summary has
// already been printed.
var errRunFailed = errors.New("one or more files failed")

// clientFactory builds the S3 client for a run or a credential check.
type clientFactory func(cfg *config.Config, opts ...types.Option) (*prefixload.Client, error)

// app carries the dependencies shared by all commands.
type app struct {
	configPath string
	newClient  clientFactory
	lookupEnv  func(string) string

	// hideInput disables echo on a terminal for secret prompts
	hideInput func(in io.Reader) (restore func(), err error)
}

func newApp() *app {
	return &app{
		newClient: defaultClient,
		lookupEnv: os.Getenv,
		hideInput: disableEcho,
	}
}

func defaultClient(cfg *config.Config, opts ...types.Option) (*prefixload.Client, error) {
	base := []types.Option{
		prefixload.WithRegion(cfg.Region),
		prefixload.WithEndpoint(cfg.Endpoint),
		prefixload.WithForcePathStyle(cfg.ForcePathStyle),
		prefixload.WithMaxAttempts(cfg.MaxAttempts),
		prefixload.WithFileConcurrency(cfg.FileConcurrency),
		prefixload.WithPartConcurrency(cfg.PartConcurrency),
		prefixload.WithRequestsPerSecond(cfg.RequestsPerSecond),
	}
	return prefixload.New(append(base, opts...)...)
}

// path returns the --config value or the XDG default.
func (a *app) path() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.DefaultPath()
}

// load reads the configuration, creating it from the template when missing.
func (a *app) load(out io.Writer) (*config.Config, string, error) {
	path, err := a.path()
	if err != nil {
		return nil, "", err
	}
	created, err := config.EnsureExists(path)
	if err != nil {
		return nil, "", err
	}
	if created {
		fmt.Fprintf(out, "Default config.yml written to %s\n", path)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "prefixload",
		Short: "Upload files to S3 by name prefix",
		Long: `prefixload uploads the files of a local directory to an S3 bucket.
Each file whose name starts with a configured prefix is sent to the matching
remote path, unless an identical object is already stored there.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// The default keeps a path preset on a; pflag assigns it when defining the flag.
	root.PersistentFlags().StringVar(&a.configPath, "config", a.configPath, "Path to config.yml (default $XDG_CONFIG_HOME/prefixload/config.yml)")

	root.AddCommand(
		newRunCmd(a),
		newConfigCmd(a),
		newLoginCmd(a),
		newVersionCmd(),
	)
	root.Version = Version
	root.SetVersionTemplate("prefixload {{.Version}}\n")
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp())
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
