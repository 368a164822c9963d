package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
	"github.com/growwiz/growwiz-core/internal/infrastructure/database"
	"github.com/growwiz/growwiz-core/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect or roll back database migrations",
	Long: `Migrations are applied automatically when the service starts.
These commands inspect the schema state or undo the latest migration.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	RunE:  runMigrateStatus,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recently applied migration",
	RunE:  runMigrateDown,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd, migrateDownCmd)
}

// openDatabase loads the config and opens the configured database.
func openDatabase(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, pending, err := db.MigrationStatus(cmd.Context(), migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS")
	for _, m := range applied {
		fmt.Fprintf(w, "%s\tapplied %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "%s\tpending (%s)\n", m.Version, m.Name)
	}
	return w.Flush()
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.MigrateDown(cmd.Context(), migrations.FS)
	if err != nil {
		return fmt.Errorf("rolling back: %w", err)
	}
	if m == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s_%s\n", m.Version, m.Name)
	return nil
}
