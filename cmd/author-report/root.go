package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sudosantos27/go-author-report/internal/checker"
	"github.com/sudosantos27/go-author-report/internal/config"
)

// NewRootCmd creates the author-report command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "author-report",
		Short: "Collect listing authors from a list of URLs into a CSV report",
		Long: `author-report reads newline-delimited URLs, keeps the unique https ones,
fetches <url>/about.json from each and writes "author,url" lines to a
timestamped CSV file.

With no arguments it reads input/urls.txt and writes to output/.
Settings can also come from author-report.yaml or AUTHOR_REPORT_* variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRootCmd,
	}

	d := config.Default()
	cmd.Flags().StringP("config", "c", "", "Configuration file (default: ./author-report.yaml if present)")
	cmd.Flags().StringP("input", "i", d.Input, "File containing one URL per line")
	cmd.Flags().StringP("output-dir", "o", d.OutputDir, "Directory for the CSV report")
	cmd.Flags().String("suffix", d.Suffix, "Path appended to every URL")
	cmd.Flags().Int("concurrency", d.Concurrency, "Number of concurrent requests (1 = sequential)")
	cmd.Flags().DurationP("timeout", "t", d.Timeout, "Global timeout for the whole run (0 = none)")
	cmd.Flags().Duration("request-timeout", d.RequestTimeout, "Timeout for each request")
	cmd.Flags().Float64("rate-limit", d.RateLimit, "Maximum requests per second (0 = unlimited)")
	cmd.Flags().String("user-agent", d.UserAgent, "User-Agent header sent with each request")
	cmd.Flags().Bool("fail-on-status", d.FailOnStatus, "Treat non-2xx responses as failed requests")
	cmd.Flags().StringP("format", "f", d.Format, "Summary format (text, json)")
	cmd.Flags().String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	return cmd
}

func runRootCmd(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	slog.SetDefault(setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, verbose))
	if cfg.ConfigFile != "" {
		slog.Debug("Loaded config file", "path", cfg.ConfigFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	_, err = checker.Run(ctx, cfg, checker.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	return err
}

// setupLogger creates a text logger on w at the configured level.
func setupLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", "author-report")
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
