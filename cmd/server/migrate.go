package main

import (
	"github.com/actuallystonmai/nutrigrade/internal/repository"
	"github.com/actuallystonmai/nutrigrade/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or drop the model artifact tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), cfg, func(pool *pgxpool.Pool, _ *repository.Repository) error {
				if err := migrations.Up(cmd.Context(), pool); err != nil {
					return err
				}
				log.Info().Msg("migrations applied successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Drop migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), cfg, func(pool *pgxpool.Pool, _ *repository.Repository) error {
				if err := migrations.Down(cmd.Context(), pool); err != nil {
					return err
				}
				log.Info().Msg("migrations dropped successfully")
				return nil
			})
		},
	})

	return cmd
}
