package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/config"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/editor"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the configuration file",
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigPathCmd(a),
		newConfigEditCmd(a),
		newConfigSetCmd(a),
		newConfigDirAddCmd(a),
		newConfigDirRmCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the configuration file in $VISUAL or $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if _, err := config.Backup(path); err != nil {
				return err
			}

			launcher := editor.FromEnv(a.lookupEnv)
			_, err = launcher.Open(cmd.Context(), path,
				editor.WithStreams(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			return nil
		},
	}
}

var setFlags = []string{"endpoint", "bucket", "region", "part-size", "local-directory-path", "force-path-style"}

type setOptions struct {
	endpoint       string
	bucket         string
	region         string
	partSize       string
	localDir       string
	forcePathStyle bool
}

func newConfigSetCmd(a *app) *cobra.Command {
	opts := &setOptions{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !slices.ContainsFunc(setFlags, flags.Changed) {
				return errors.New("no value to set; see --help")
			}
			if flags.Changed("endpoint") {
				cfg.Endpoint = opts.endpoint
			}
			if flags.Changed("bucket") {
				cfg.Bucket = opts.bucket
			}
			if flags.Changed("region") {
				cfg.Region = opts.region
			}
			if flags.Changed("part-size") {
				size, err := config.ParseByteSize(opts.partSize)
				if err != nil {
					return err
				}
				cfg.PartSize = size
			}
			if flags.Changed("local-directory-path") {
				cfg.LocalDirectoryPath = opts.localDir
			}
			if flags.Changed("force-path-style") {
				cfg.ForcePathStyle = opts.forcePathStyle
			}

			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "S3 endpoint URL")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "Destination bucket")
	cmd.Flags().StringVar(&opts.region, "region", "", "Bucket region")
	cmd.Flags().StringVar(&opts.partSize, "part-size", "", "Multipart part size, e.g. 8MiB")
	cmd.Flags().StringVar(&opts.localDir, "local-directory-path", "", "Directory whose files are uploaded")
	cmd.Flags().BoolVar(&opts.forcePathStyle, "force-path-style", false, "Use path-style bucket addressing")
	return cmd
}

func newConfigDirAddCmd(a *app) *cobra.Command {
	var rule types.Rule
	cmd := &cobra.Command{
		Use:   "dir-add",
		Short: "Add a prefix rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := cfg.AddRule(rule); err != nil {
				if errors.Is(err, config.ErrDuplicatePrefix) {
					fmt.Fprintf(cmd.OutOrStdout(), "Prefix %q is already configured.\n", rule.LocalNamePrefix)
					return nil
				}
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", rule)
			return nil
		},
	}
	cmd.Flags().StringVar(&rule.LocalNamePrefix, "prefix", "", "Local file name prefix")
	cmd.Flags().StringVar(&rule.RemotePath, "remote-path", "", "Destination path in the bucket")
	_ = cmd.MarkFlagRequired("prefix")
	_ = cmd.MarkFlagRequired("remote-path")
	return cmd
}

func newConfigDirRmCmd(a *app) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "dir-rm",
		Short: "Remove a prefix rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := a.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := cfg.RemoveRule(prefix); err != nil {
				if errors.Is(err, config.ErrPrefixNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "Prefix %q is not configured.\n", prefix)
					return nil
				}
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed prefix %q\n", prefix)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Local file name prefix")
	_ = cmd.MarkFlagRequired("prefix")
	return cmd
}
