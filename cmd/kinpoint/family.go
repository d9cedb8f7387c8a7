package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinpoint/kinpoint/internal/livequery"
	"github.com/kinpoint/kinpoint/internal/schema"
	"github.com/kinpoint/kinpoint/internal/secrets"
)

var familyCmd = &cobra.Command{
	Use:   "family",
	Short: "Manage families and see where members are",
}

var familyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new family",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := a.CreateFamily(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating family: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Created family %q (%s)\n", res.Family.Name, res.Family.ID)
		if err := a.Secrets.Set(secrets.KeySelectedFamily, res.Family.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not select new family: %v\n", err)
		}
	},
}

var familyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List families from the local cache",
	Run: func(cmd *cobra.Command, args []string) {
		families, err := a.Store.Families(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing families: %v\n", err)
			os.Exit(1)
		}
		if len(families) == 0 {
			fmt.Println("No families yet. Run 'kinpoint sync' or 'kinpoint family create'.")
			return
		}

		selected, _ := a.Secrets.Get(secrets.KeySelectedFamily)
		for _, f := range families {
			marker := " "
			if f.ID == selected {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, f.ID, f.Name)
		}
	},
}

var familySelectCmd = &cobra.Command{
	Use:   "select <family-id>",
	Short: "Choose the family other commands default to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := a.Store.GetFamily(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: unknown family %s (try 'kinpoint sync' first)\n", args[0])
			os.Exit(1)
		}
		if err := a.Secrets.Set(secrets.KeySelectedFamily, f.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error selecting family: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Selected %q\n", f.Name)
	},
}

var membersRemote bool

var familyMembersCmd = &cobra.Command{
	Use:   "members [family-id]",
	Short: "List members of a family",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		familyID := selectedFamily(args)

		if membersRemote {
			members, err := a.Remote.FamilyMembers(cmd.Context(), familyID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing members: %v\n", err)
				os.Exit(1)
			}
			if len(members) == 0 {
				fmt.Println("No members")
				return
			}
			for _, m := range members {
				fmt.Printf("%s %s <%s>  joined %s\n",
					m.FirstName, m.LastName, m.Email,
					m.JoinedAt.Format("2006-01-02"))
			}
			return
		}

		members, err := a.Store.FamilyMembers(cmd.Context(), familyID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing members: %v\n", err)
			os.Exit(1)
		}
		if len(members) == 0 {
			fmt.Println("No members in the local cache. Run 'kinpoint sync'.")
			return
		}

		for _, m := range members {
			fmt.Printf("%s %s <%s>  joined %s\n",
				m.FirstName, m.LastName, m.Email,
				m.JoinedAt.Format("2006-01-02"))
		}
	},
}

var (
	locationsWatch  bool
	locationsRemote bool
)

var familyLocationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Show the latest known position of everyone in the cache",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		// Remote mode asks the server directly instead of the cache,
		// for positions newer than the last sync pass.
		if locationsRemote {
			locations, err := a.Remote.MemberLocations(ctx, selectedFamily(nil))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading locations: %v\n", err)
				os.Exit(1)
			}
			printLocations(locations)
			return
		}

		if !locationsWatch {
			locations, err := a.Store.UserLocations(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading locations: %v\n", err)
				os.Exit(1)
			}
			printLocations(locations)
			return
		}

		// Watch mode: re-print whenever the cache changes, e.g. when a
		// sync pass in another terminal lands new locations.
		query := livequery.New(a.Store, a.Store.UserLocations)
		fmt.Println("Watching for location changes (Ctrl+C to stop)")
		for res := range query.Run(ctx) {
			switch {
			case res.Loading:
				continue
			case res.Err != nil:
				fmt.Fprintf(os.Stderr, "Error reading locations: %v\n", res.Err)
			default:
				fmt.Println()
				printLocations(res.Value)
			}
		}
	},
}

func printLocations(locations []schema.MemberLocation) {
	if len(locations) == 0 {
		fmt.Println("No locations in the local cache. Run 'kinpoint sync'.")
		return
	}
	for _, l := range locations {
		fmt.Printf("%s %s  (%.5f, %.5f)  at %s\n",
			l.FirstName, l.LastName,
			l.Coordinates.Lat, l.Coordinates.Lon,
			l.RecordedAt.Format("2006-01-02 15:04"))
	}
}

// selectedFamily resolves the family id from args or the stored
// selection, exiting with guidance when neither exists.
func selectedFamily(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if id, ok := a.Secrets.Get(secrets.KeySelectedFamily); ok {
		return id
	}
	fmt.Fprintln(os.Stderr, "Error: no family selected. Pass an id or run 'kinpoint family select'.")
	os.Exit(1)
	return ""
}

func init() {
	familyCmd.AddCommand(familyCreateCmd)
	familyCmd.AddCommand(familyListCmd)
	familyCmd.AddCommand(familySelectCmd)
	familyCmd.AddCommand(familyMembersCmd)
	familyMembersCmd.Flags().BoolVar(&membersRemote, "remote", false, "Ask the server instead of the local cache")
	familyLocationsCmd.Flags().BoolVar(&locationsWatch, "watch", false, "Keep printing as the cache changes")
	familyLocationsCmd.Flags().BoolVar(&locationsRemote, "remote", false, "Ask the server instead of the local cache")
	familyCmd.AddCommand(familyLocationsCmd)
	rootCmd.AddCommand(familyCmd)
}
