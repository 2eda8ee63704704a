package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/config"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

type runOptions struct {
	quiet       bool
	verbose     bool
	dryRun      bool
	metricsFile string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload matching files that differ from the bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Write logs to the run log file instead of stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every decision")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Decide every file without uploading")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *runOptions) error {
	out := cmd.OutOrStdout()

	cfg, _, err := a.load(out)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.metricsFile == "" {
		opts.metricsFile = cfg.MetricsFile
	}

	logOut := out
	if opts.quiet {
		f, err := openRunLog()
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}

	// run_id is attached to every line by the sync manager
	runID := uuid.NewString()
	logger := newLogger(logOut, opts.verbose)

	clientOpts := []types.Option{prefixload.WithLogger(logger)}
	var reg *prometheus.Registry
	if opts.metricsFile != "" {
		reg = prometheus.NewRegistry()
		clientOpts = append(clientOpts, prefixload.WithMetrics(reg))
	}

	client, err := a.newClient(cfg, clientOpts...)
	if err != nil {
		return err
	}

	report, err := client.Sync(cmd.Context(), cfg.ToSyncConfig(),
		prefixload.WithDryRun(opts.dryRun),
		prefixload.WithRunID(runID),
	)
	if report == nil {
		return err
	}

	if reg != nil {
		if err := metrics.WriteTextfile(opts.metricsFile, reg); err != nil {
			logger.Error("writing metrics failed", "path", opts.metricsFile, "error", err)
		}
	}

	if !opts.quiet {
		printSummary(out, report, opts.dryRun)
	}
	// A canceled run still reports what it did.
	if err != nil {
		return err
	}
	if report.Totals().Failed > 0 {
		return errRunFailed
	}
	return nil
}

func openRunLog() (*os.File, error) {
	path, err := config.DataFile("run.log")
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log %s: %w", path, err)
	}
	return f, nil
}

func printSummary(w io.Writer, report *types.Report, dryRun bool) {
	t := report.Totals()
	fmt.Fprintf(w, "Run finished in %.2fs. Matched: %d, Uploaded: %d, Skipped: %d, Failed: %d.\n",
		report.Duration.Seconds(), t.Matched, t.Uploaded, t.Skipped, t.Failed)

	if dryRun {
		fmt.Fprintf(w, "Dry run: %d file(s) would be uploaded.\n", t.Planned)
	}
	if n := report.BytesUploaded(); n > 0 {
		fmt.Fprintf(w, "Transferred %s.\n", humanize.IBytes(uint64(n)))
	}

	for _, s := range report.Rules() {
		fmt.Fprintf(w, "  %-32s matched %d, uploaded %d, skipped %d, failed %d\n",
			s.Rule.String(), s.Matched, s.Uploaded, s.Skipped, s.Failed)
	}
	for _, o := range report.Failures() {
		fmt.Fprintf(w, "  failed %s: %v\n", o.Candidate.FileName, o.Err)
	}
}
