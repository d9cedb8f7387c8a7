package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all local data and sign out",
	Long: `Remove everything this device knows: stop tracking, empty the local
cache, forget the sync watermark and end the session.

Nothing is deleted on the server; signing in and syncing again restores
the same data.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !purgeYes {
			fmt.Print("Delete all local data and sign out? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Println("Aborted")
				return
			}
		}

		if err := a.Purge(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error purging: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Local data removed, signed out")
	},
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(purgeCmd)
}
