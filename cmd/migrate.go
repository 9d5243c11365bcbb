package cmd

import (
	"fmt"
	"strings"

	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the database schema of the region store.

The schema is maintained with GORM auto-migration: columns and indexes are
added to match the models, nothing is dropped.

Available subcommands:
  up      - Create or update the region tables
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update the region tables",
	Long: `Create or update the region tables.

This command auto-migrates every model, bringing the schema up to date.
It is also run by serve on startup.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

This command lists the tables the region store needs and whether they
exist in the configured database.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().String("db", "", "database path (overrides config)")
	migrateUpCmd.Flags().Bool("dry-run", false, "show what would be done without making changes")
}

// openDatabase opens the database from the --db flag or the config
func openDatabase(cmd *cobra.Command) (*database.DB, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = config.GetString("database.path")
	}
	return database.Open(path, config.GetBool("database.verbose"))
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, name := range pendingTables(db) {
			fmt.Fprintf(out, "  would create %s\n", name)
		}
		return nil
	}

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	fmt.Fprintln(out, "Database schema is up to date")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	for _, table := range db.Tables() {
		state := "missing"
		if table.Present {
			state = "present"
		}
		fmt.Fprintf(out, "  %-30s %s\n", table.Name, state)
	}
	return nil
}

func pendingTables(db *database.DB) []string {
	var names []string
	for _, table := range db.Tables() {
		if !table.Present {
			names = append(names, table.Name)
		}
	}
	return names
}
