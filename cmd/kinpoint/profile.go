package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinpoint/kinpoint/internal/remote"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile from the local cache",
	Run: func(cmd *cobra.Command, args []string) {
		id, err := a.Remote.UserID()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: not signed in. Run 'kinpoint login' first.")
			os.Exit(1)
		}

		user, err := a.Store.GetUser(cmd.Context(), id)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: profile not cached yet. Run 'kinpoint sync'.")
			os.Exit(1)
		}

		fmt.Printf("%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
		if user.Avatar != "" {
			if url, err := a.Remote.AvatarURL(user.Avatar); err == nil {
				fmt.Printf("Avatar: %s\n", url)
			}
		}
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your name or avatar",
	Run: func(cmd *cobra.Command, args []string) {
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		avatar, _ := cmd.Flags().GetString("avatar")

		if firstName == "" && lastName == "" && avatar == "" {
			fmt.Fprintln(os.Stderr, "Error: nothing to update")
			os.Exit(1)
		}

		updated, err := a.Remote.UpdateMe(cmd.Context(), remote.UpdateProfile{
			FirstName: firstName,
			LastName:  lastName,
			Avatar:    avatar,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating profile: %v\n", err)
			os.Exit(1)
		}

		// Mirror into the cache so reads see it before the next pass.
		err = a.Store.UpdateUser(cmd.Context(), updated.ID,
			updated.FirstName, updated.LastName, updated.Avatar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not mirror profile locally: %v\n", err)
		}

		fmt.Printf("Profile updated: %s %s\n", updated.FirstName, updated.LastName)
	},
}

func init() {
	profileUpdateCmd.Flags().String("first-name", "", "New first name")
	profileUpdateCmd.Flags().String("last-name", "", "New last name")
	profileUpdateCmd.Flags().String("avatar", "", "New avatar filename")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}
