package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the background location tracker (foreground)",
	Long: `Start the location tracker and keep pushing this device's position.

The tracker:
  1. Requests location permission (both levels must be granted)
  2. Pushes the newest position on each capture interval
  3. Stops on its own when you sign out from another terminal

Press Ctrl+C to stop. Use --lat/--lon to set the reported position.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !a.Remote.IsSignedIn() {
			fmt.Fprintln(os.Stderr, "Error: not signed in. Run 'kinpoint login' first.")
			os.Exit(1)
		}

		// Initial pass on startup so the daemon begins from fresh
		// state. Failure is not fatal; tracking pushes still work.
		if err := a.Engine.Sync(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: startup sync failed: %v\n", err)
		}

		if err := a.Tracker.StartBackground(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting tracker: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Tracking started (every %s)\n", a.Config.TrackInterval)
		fmt.Println("Press Ctrl+C to stop")

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-cmd.Context().Done():
				fmt.Println("\nStopping tracker")
				if err := a.Tracker.StopBackground(); err != nil {
					fmt.Fprintf(os.Stderr, "Error stopping tracker: %v\n", err)
					os.Exit(1)
				}
				return

			case <-ticker.C:
				// The tracker stops itself on sign-out.
				if !a.Tracker.Active() {
					fmt.Println("Tracker stopped (signed out)")
					return
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
