package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "Manage pending family invitations",
	Long: `Invitations are served straight from the server; they are never
cached locally. Accepting one adds you to the family, which the next
sync pass then mirrors into the local cache.`,
}

var invitationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending invitations",
	Run: func(cmd *cobra.Command, args []string) {
		invitations, err := a.Remote.Invitations(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing invitations: %v\n", err)
			os.Exit(1)
		}
		if len(invitations) == 0 {
			fmt.Println("No pending invitations")
			return
		}

		for _, inv := range invitations {
			fmt.Printf("%s  %s  invited %s\n",
				inv.ID, inv.FamilyName, inv.CreatedAt.Format("2006-01-02"))
		}
	},
}

var invitationsAcceptCmd = &cobra.Command{
	Use:   "accept <invitation-id>",
	Short: "Accept an invitation and join the family",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		familyID, err := a.Remote.AcceptInvitation(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error accepting invitation: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Joined family %s\n", familyID)

		// Pull the new family down right away so reads see it.
		if err := a.Engine.Sync(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: sync after join failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Run 'kinpoint sync' to pull the new family down")
		}
	},
}

var invitationsDeclineCmd = &cobra.Command{
	Use:   "decline <invitation-id>",
	Short: "Decline an invitation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := a.Remote.DeclineInvitation(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error declining invitation: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Invitation declined")
	},
}

func init() {
	invitationsCmd.AddCommand(invitationsListCmd)
	invitationsCmd.AddCommand(invitationsAcceptCmd)
	invitationsCmd.AddCommand(invitationsDeclineCmd)
	rootCmd.AddCommand(invitationsCmd)
}
