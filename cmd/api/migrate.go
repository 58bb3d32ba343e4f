package main

import (
	"invoicegen/internal/database"
	"invoicegen/internal/logger"
	"invoicegen/internal/repository"
	"invoicegen/internal/service"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log := logger.WithComponent("migrate")
		log.Info().Int("tables", len(database.Models())).Msg("schema up to date")
		return nil
	},
}

var seedPlansCmd = &cobra.Command{
	Use:   "seed-plans",
	Short: "Insert the default billing plans that are missing",
	Long: `Inserts the free, starter, pro and enterprise plans from the built-in
plan table. Plans that already exist are left untouched, so the command can be re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		billing := service.NewBillingService(
			repository.NewBillingRepository(db),
			repository.NewUserRepository(db),
			repository.NewInvoiceRepository(db),
			repository.NewBusinessRepository(db),
			cfg.Plans,
			nil,
		)
		created, err := billing.SeedPlans(cmd.Context())
		if err != nil {
			return err
		}
		log := logger.WithComponent("billing")
		log.Info().Int("created", created).Msg("plans seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedPlansCmd)
}
