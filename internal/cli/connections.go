package cli

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/baulhq/baul/internal/config"
	"github.com/baulhq/baul/internal/models"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Manage connection profiles",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connection profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		conns := a.store.Connections()
		if len(conns) == 0 {
			fmt.Println("No connections configured. Add one with: baul connections add")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tENDPOINT\tREGION")
		for _, c := range conns {
			endpoint := c.Endpoint
			if endpoint == "" {
				endpoint = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Provider, endpoint, c.Region)
		}
		return w.Flush()
	},
}

var connAddFlags struct {
	name         string
	provider     string
	endpoint     string
	region       string
	accessKey    string
	usePathStyle bool
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or update a connection profile",
	Long: `Add or update a connection profile. The secret key is prompted for
interactively and is NOT stored: export it as BAUL_SECRET_<ID> (id
uppercased, dashes as underscores) so later commands can authenticate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		id := args[0]
		conn := models.Connection{
			ID:           id,
			Name:         connAddFlags.name,
			Provider:     models.Provider(connAddFlags.provider),
			Endpoint:     connAddFlags.endpoint,
			Region:       connAddFlags.region,
			AccessKey:    connAddFlags.accessKey,
			UsePathStyle: connAddFlags.usePathStyle,
		}
		if conn.Name == "" {
			conn.Name = id
		}

		if conn.AccessKey == "" {
			fmt.Print("Access key: ")
			if _, err := fmt.Scanln(&conn.AccessKey); err != nil {
				return fmt.Errorf("read access key: %w", err)
			}
		}

		// Prompt for the secret so the profile can be verified now, even
		// though only the environment variable persists it.
		fmt.Print("Secret key (not stored; export BAUL_SECRET_" + config.EnvSuffix(id) + "): ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read secret key: %w", err)
		}
		conn.SecretKey = string(secret)

		if err := a.store.Add(conn); err != nil {
			return err
		}
		a.registry.Register(conn)

		if conn.SecretKey != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			gw, err := a.registry.Open(id)
			if err == nil {
				_, err = gw.ListBuckets(ctx)
			}
			if err != nil {
				fmt.Printf("Saved %s, but verification failed: %v\n", id, err)
				return nil
			}
			fmt.Printf("Saved and verified connection %s\n", id)
			return nil
		}

		fmt.Printf("Saved connection %s\n", id)
		return nil
	},
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a connection profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Remove(args[0]); err != nil {
			return err
		}
		a.registry.Unregister(args[0])
		fmt.Printf("Removed connection %s\n", args[0])
		return nil
	},
}

func init() {
	connectionsAddCmd.Flags().StringVar(&connAddFlags.name, "name", "", "display name (defaults to the id)")
	connectionsAddCmd.Flags().StringVar(&connAddFlags.provider, "provider", "aws", "provider flavour: aws, minio, r2, other")
	connectionsAddCmd.Flags().StringVar(&connAddFlags.endpoint, "endpoint", "", "endpoint URL (empty for AWS)")
	connectionsAddCmd.Flags().StringVar(&connAddFlags.region, "region", "us-east-1", "region")
	connectionsAddCmd.Flags().StringVar(&connAddFlags.accessKey, "access-key", "", "access key id (prompted if omitted)")
	connectionsAddCmd.Flags().BoolVar(&connAddFlags.usePathStyle, "path-style", false, "use path-style bucket addressing")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsAddCmd)
	connectionsCmd.AddCommand(connectionsRemoveCmd)
}
