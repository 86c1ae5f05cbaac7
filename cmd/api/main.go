package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"to-dogether/configs"
	"to-dogether/internal/api"
	"to-dogether/internal/config"
	"to-dogether/internal/repository"
	"to-dogether/pkg/database"
	"to-dogether/pkg/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "to-dogether",
		Short:         "Shared todo lists for couples",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newLoggers(cfg configs.Config) (*logger.Loggers, error) {
	if cfg.LogMode == configs.LogModeConsole {
		return logger.NewConsole(), nil
	}
	return logger.New(cfg.LogDir)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configs.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log, err := newLoggers(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()
			log.System.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, cleanup, err := config.Open(ctx, cfg, log)
			if err != nil {
				log.Error.Error("Startup failed", zap.Error(err))
				return err
			}
			defer cleanup()

			app := api.NewApp(deps)
			go func() {
				<-ctx.Done()
				log.System.Info("Shutting down")
				_ = app.ShutdownWithTimeout(10 * time.Second)
			}()

			addr := fmt.Sprintf(":%d", cfg.AppPort)
			log.System.Info("Application ready", zap.String("addr", addr))
			if err := app.Listen(addr); err != nil {
				log.Error.Error("Application failed to start", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configs.LoadConfig()
			log, err := newLoggers(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := database.ConnectDB(ctx, cfg, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			if drop {
				if err := repository.DeleteAllTable(ctx, db); err != nil {
					return err
				}
				log.System.Warn("Dropped all tables", zap.String("db", cfg.DBName))
			}
			if err := repository.CreateTableIfNotExists(ctx, db); err != nil {
				return err
			}
			log.System.Info("Schema is up to date", zap.String("db", cfg.DBName))
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "drop every table before creating the schema")
	return cmd
}
