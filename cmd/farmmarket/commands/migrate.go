package commands

import (
	"context"
	"fmt"

	"github.com/safar/farmmarket/internal/config"
	"github.com/safar/farmmarket/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert database migrations",
	Long:      `Run the embedded migration scripts for the configured DATABASE_DRIVER.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context(), database.Direction(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context, direction database.Direction) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("the memory driver has nothing to migrate")
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	dialect, err := database.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}

	ran, err := database.Migrate(ctx, db, dialect, direction)
	if err != nil {
		return err
	}

	for _, name := range ran {
		fmt.Printf("Ran %s\n", name)
	}
	fmt.Printf("Migrations %s completed successfully\n", direction)
	return nil
}
