package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinpoint/kinpoint/internal/remote"
	"github.com/kinpoint/kinpoint/internal/secrets"
)

var loginAPIURL string

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Sign in and store the session",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if loginAPIURL != "" {
			if err := a.Remote.SetBaseURL(loginAPIURL); err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid API URL: %v\n", err)
				os.Exit(1)
			}
		}

		user, err := a.Remote.SignIn(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error signing in: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Signed in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
		fmt.Println("Run 'kinpoint sync' to pull your families down")
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("email")
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		password, _ := cmd.Flags().GetString("password")
		confirm, _ := cmd.Flags().GetString("password-confirm")

		user, err := a.Remote.Register(cmd.Context(), remote.NewUser{
			Email:           email,
			FirstName:       firstName,
			LastName:        lastName,
			Password:        password,
			PasswordConfirm: confirm,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error registering: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Account created for %s\n", user.Email)
		fmt.Println("Run 'kinpoint login' to sign in")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out on this device",
	Run: func(cmd *cobra.Command, args []string) {
		if err := a.Remote.SignOut(); err != nil {
			fmt.Fprintf(os.Stderr, "Error signing out: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Signed out. Local data is kept; run 'kinpoint purge' to remove it.")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, cache and tracking status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		fmt.Println()
		if a.Remote.IsSignedIn() {
			id, _ := a.Remote.UserID()
			fmt.Printf("Session: signed in (user %s)\n", id)
		} else {
			fmt.Println("Session: signed out")
		}
		fmt.Printf("API: %s\n", orNone(a.Remote.BaseURL()))

		last := a.Engine.LastSyncedAt()
		if last.Unix() == 0 {
			fmt.Println("Last sync: never")
		} else {
			fmt.Printf("Last sync: %s\n", last.Format("2006-01-02 15:04:05"))
		}

		users, _ := a.Store.CountUsers(ctx)
		members, _ := a.Store.CountFamilyMembers(ctx)
		locations, _ := a.Store.CountLocations(ctx)
		fmt.Printf("Cache: %d users, %d memberships, %d locations\n", users, members, locations)

		if size, err := a.Store.Size(); err == nil {
			fmt.Printf("Disk usage: %s\n", formatSize(size))
		}

		if _, ok := a.Secrets.Get(secrets.KeyTrackingActive); ok {
			fmt.Println("Tracking: active")
		} else {
			fmt.Println("Tracking: off")
		}
		fmt.Println()
	},
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func formatSize(size int64) string {
	if size > 1024*1024 {
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
	if size > 1024 {
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%d bytes", size)
}

func init() {
	loginCmd.Flags().StringVar(&loginAPIURL, "api-url", "", "API base URL to use from now on")

	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().String("first-name", "", "First name")
	registerCmd.Flags().String("last-name", "", "Last name")
	registerCmd.Flags().String("password", "", "Password")
	registerCmd.Flags().String("password-confirm", "", "Password confirmation")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("password-confirm")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}
