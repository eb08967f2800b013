package main

import (
	"fmt"
	"os"

	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/repository"
	"github.com/actuallystonmai/nutrigrade/seeds"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage model artifacts",
	}

	cmd.AddCommand(newModelPushCommand())
	cmd.AddCommand(newModelSeedCommand())
	cmd.AddCommand(newModelListCommand())

	return cmd
}

func newModelPushCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Validate an artifact and store it in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.ModelName
			}

			// refuse artifacts the server could not load
			if _, err := model.NewHandle(model.FileSource{Path: args[0]}).Load(cmd.Context()); err != nil {
				return err
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read artifact: %w", err)
			}

			return withRepository(cmd.Context(), cfg, func(_ *pgxpool.Pool, repo *repository.Repository) error {
				a, err := repo.PutArtifact(cmd.Context(), name, payload)
				if err != nil {
					return err
				}
				log.Info().Str("id", a.ID).Str("name", a.Name).Str("checksum", a.Checksum).Msg("artifact stored")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Artifact name (default: MODEL_NAME)")

	return cmd
}

func newModelSeedCommand() *cobra.Command {
	var (
		out      string
		compress bool
		push     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the baseline forest artifact",
		Long: `Write the hand-set baseline forest, for local runs without a trained model.

With --push the baseline is stored in Postgres under MODEL_NAME instead, unless
an artifact with that name already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if push {
				return withRepository(cmd.Context(), cfg, func(_ *pgxpool.Pool, repo *repository.Repository) error {
					return seeds.Setup(cmd.Context(), repo, cfg.ModelName)
				})
			}

			if out == "" {
				out = cfg.ModelPath
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := seeds.Encode(f, compress); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info().Str("path", out).Msg("baseline artifact written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: MODEL_PATH)")
	cmd.Flags().BoolVar(&compress, "gzip", false, "Gzip the artifact")
	cmd.Flags().BoolVar(&push, "push", false, "Store in Postgres instead of writing a file")

	return cmd
}

func newModelListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored artifact versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), cfg, func(_ *pgxpool.Pool, repo *repository.Repository) error {
				items, err := repo.ListArtifacts(cmd.Context(), cfg.ModelName, limit)
				if err != nil {
					return err
				}
				for _, a := range items {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\n", a.ID, a.CreatedAt.Format("2006-01-02 15:04:05"), a.Checksum, a.SizeBytes)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of versions")

	return cmd
}
