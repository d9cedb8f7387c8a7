// Command kinpoint is the device-side client for the KinPoint family
// location service: it signs in, keeps a local SQLite mirror of the
// user's families in sync, and runs the background location tracker.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kinpoint/kinpoint/internal/app"
	"github.com/kinpoint/kinpoint/internal/config"
	"github.com/kinpoint/kinpoint/internal/tracker"
)

var (
	a *app.App

	flagLat float64
	flagLon float64
)

var rootCmd = &cobra.Command{
	Use:   "kinpoint",
	Short: "Family location sharing client",
	Long: `kinpoint keeps a local mirror of your families and their locations.

All reads are served from a local SQLite database; 'kinpoint sync'
pulls remote changes down. The 'track' daemon pushes this device's
position in the background.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var out io.Writer = os.Stderr
		if path := cfg.LogPath(); path != "" {
			out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			})
		}
		logger := log.New(out, "[kinpoint] ", log.LstdFlags)

		a, err = app.New(cfg, tracker.NewSimProvider(flagLat, flagLon), logger)
		if err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a != nil {
			a.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&flagLat, "lat", 0, "Reported device latitude")
	rootCmd.PersistentFlags().Float64Var(&flagLon, "lon", 0, "Reported device longitude")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
