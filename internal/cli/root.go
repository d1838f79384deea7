package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/baulhq/baul/internal/logging"
	"github.com/baulhq/baul/internal/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "baul",
	Short:         "Browse and transfer objects on S3-compatible storage",
	Long:          "baul manages connections to S3-compatible endpoints (AWS, MinIO, Cloudflare R2) and provides cached listing, uploads, downloads, and object operations against them.",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the command tree and exits non-zero on error. Interrupt
// signals cancel the command context so in-flight transfers stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(bucketsCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(presignCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(duCmd)
}
