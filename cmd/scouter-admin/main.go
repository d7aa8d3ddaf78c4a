package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/aikalab/scouter/config"
	"github.com/aikalab/scouter/internal/bootstrap"
	"github.com/aikalab/scouter/internal/data"
	"github.com/aikalab/scouter/internal/service"
	"github.com/aikalab/scouter/internal/storage"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrationsCommand,
		},
		"job-stats": {
			name:        "job-stats",
			description: "Print job counts per status as JSON",
			run:         runJobStats,
		},
		"cleanup": {
			name:        "cleanup",
			description: "Run one storage cleanup pass (use -dry-run to only report)",
			run:         runCleanup,
		},
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: scouter-admin <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, cmds[name].description)
	}
}

func connectDB(ctx *commandContext) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: ctx.Config.Postgres,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func runMigrationsCommand(ctx *commandContext, _ []string) error {
	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx.Logger, db)

	migrateCtx, cancel := context.WithTimeout(ctx.Ctx, defaultMigrationTimeout)
	defer cancel()

	return bootstrap.RunMigrations(migrateCtx, db, ctx.Logger)
}

func runJobStats(ctx *commandContext, _ []string) error {
	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx.Logger, db)

	repo := data.NewJobRepo(db, data.JobRepoConfig{Logger: ctx.Logger})
	stats, err := repo.Stats(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("load job stats: %w", err)
	}

	return printJSON(stats)
}

func runCleanup(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be deleted without deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := ctx.Config
	store, err := storage.New(storage.Config{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		TempDir:         cfg.Storage.TempDir,
	})
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}

	cleaner := service.NewCleaner(service.CleanupOptions{
		Store: store,
		Config: service.CleanupConfig{
			Bucket:        cfg.Storage.Bucket,
			Prefix:        cfg.Cleanup.Prefix,
			MaxAge:        cfg.Cleanup.MaxAge,
			MaxTotalBytes: cfg.Cleanup.MaxTotalBytes,
			BatchSize:     cfg.Cleanup.BatchSize,
			DryRun:        cfg.Cleanup.DryRun || *dryRun,
		},
		Logger: ctx.Logger,
	})

	report, err := cleaner.Run(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("cleanup pass: %w", err)
	}

	return printJSON(report)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func closeQuietly(logger *slog.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Error("close database failed", "error", err)
	}
}
