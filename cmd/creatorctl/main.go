// Command creatorctl is the operator CLI for creatorlink: bootstrapping
// administrators, provisioning links by hand and draining the dead-letter stream.
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

	"github.com/creatorlink/creatorlink/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "creatorctl",
	Short:         "Operator tooling for the creatorlink API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "creatorctl %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service events to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(bootstrapAdminCmd)
	rootCmd.AddCommand(generateLinksCmd)
	rootCmd.AddCommand(deadLettersCmd)
	rootCmd.AddCommand(issueTokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the same environment as the API server.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// cliLogger discards service logs unless --verbose is set.
func cliLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
