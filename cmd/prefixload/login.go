package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/moby/term"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	awscreds "github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/credentials"
)

type loginOptions struct {
	accessKey       string
	secretKey       string
	profile         string
	credentialsFile string
}

func newLoginCmd(a *app) *cobra.Command {
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check an access key against the bucket and store it",
		Long: `login verifies that the given access key can reach the configured bucket
and stores it in the shared AWS credentials file used by later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.login(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.accessKey, "access-key", "", "AWS access key ID")
	cmd.Flags().StringVar(&opts.secretKey, "secret-key", "", "AWS secret access key")
	cmd.Flags().StringVar(&opts.profile, "profile", awscreds.DefaultProfile, "Credentials profile to write")
	cmd.Flags().StringVar(&opts.credentialsFile, "credentials-file", "", "Credentials file (default ~/.aws/credentials)")
	return cmd
}

func (a *app) login(cmd *cobra.Command, opts *loginOptions) error {
	out := cmd.OutOrStdout()
	cfg, _, err := a.load(out)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	if opts.accessKey == "" {
		if opts.accessKey, err = prompt(in, out, "Access key: "); err != nil {
			return err
		}
	}
	if opts.secretKey == "" {
		if opts.secretKey, err = a.promptSecret(cmd.InOrStdin(), in, out, "Secret key: "); err != nil {
			return err
		}
	}
	if opts.accessKey == "" || opts.secretKey == "" {
		return errors.NewValidationError("login", "access key and secret key are required")
	}

	provider := credentials.NewStaticCredentialsProvider(opts.accessKey, opts.secretKey, "")
	client, err := a.newClient(cfg, prefixload.WithCredentials(provider))
	if err != nil {
		return err
	}

	ok, err := client.CheckBucketAccess(cmd.Context(), cfg.Bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("access key has no access to bucket %q", cfg.Bucket)
	}

	path := opts.credentialsFile
	if path == "" {
		if path, err = awscreds.DefaultPath(); err != nil {
			return err
		}
	}
	if err := awscreds.Store(path, opts.profile, opts.accessKey, opts.secretKey); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credentials for bucket %q saved to %s [%s]\n", cfg.Bucket, path, opts.profile)
	return nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line like prompt, with terminal echo off while typing.
func (a *app) promptSecret(stdin io.Reader, in *bufio.Reader, out io.Writer, label string) (string, error) {
	restore, err := a.hideInput(stdin)
	if err != nil {
		return "", err
	}
	if restore == nil {
		return prompt(in, out, label)
	}

	secret, err := prompt(in, out, label)
	restore()
	// The newline typed by the user was not echoed.
	fmt.Fprintln(out)
	return secret, err
}

// disableEcho turns off echo when in is a terminal. The returned function
// restores the previous state; it is nil when in is not a terminal.
func disableEcho(in io.Reader) (func(), error) {
	fd, isTerminal := term.GetFdInfo(in)
	if !isTerminal {
		return nil, nil
	}
	state, err := term.SaveState(fd)
	if err != nil {
		return nil, fmt.Errorf("saving terminal state: %w", err)
	}
	if err := term.DisableEcho(fd, state); err != nil {
		return nil, fmt.Errorf("disabling echo: %w", err)
	}
	return func() { _ = term.RestoreTerminal(fd, state) }, nil
}
