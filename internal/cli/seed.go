package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-live-service/internal/config"
	"quiz-live-service/internal/infra/memory"
	"quiz-live-service/internal/infra/postgres"
)

// NewSeedCmd loads a YAML quiz catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quizzes from a YAML catalog file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Quiz.File
			}
			if file == "" {
				return fmt.Errorf("no quiz file given (use --file or quiz.file)")
			}
			logger := cfg.NewLogger()

			if err := runMigrationsWithConfig(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			quizzes, err := memory.ReadQuizFile(file)
			if err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()

			n, err := postgres.NewQuizSeeder(db).Upsert(cmd.Context(), quizzes)
			if err != nil {
				return err
			}
			logger.Info("quizzes seeded", "count", n, "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML quiz catalog (defaults to quiz.file)")
	return cmd
}
