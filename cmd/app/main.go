package main

import (
	"log/slog"
	"os"
	_ "time/tzdata"

	"billing/cmd"
	"billing/internal/adapters/out/postgres"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "billing",
		Short: "Randomized invoice billing-plan scheduler",
		Long: `billing draws monthly invoice plans, persists one job per invoice and
emits each invoice through the invoicing gateway when its occurrence comes.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCommand(&envFile),
		newReconcileCommand(&envFile),
		newPreviewCommand(&envFile),
	)
	return root
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	return logger
}

// openDatabase connects to the job store and creates the tables it owns.
func openDatabase(cfg cmd.Config) (*gorm.DB, error) {
	db, err := gorm.Open(gorm_postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(db, cfg.DBMigrateUsers); err != nil {
		return nil, err
	}
	return db, nil
}
