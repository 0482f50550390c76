// Package main applies the catalog schema migrations.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/qudex/internal/config"
	"github.com/cory-johannsen/qudex/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	start := time.Now()

	flags := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to configuration file")
	source := flags.String("migrations", "migrations", "directory holding the migration files")
	direction := flags.String("direction", "up", "migration direction: up or down")
	steps := flags.Int("steps", 0, "number of steps (0 = all)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *direction != "up" && *direction != "down" {
		return fmt.Errorf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	m, err := migrate.New("file://"+*source, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case *direction == "up" && *steps > 0:
		err = m.Steps(*steps)
	case *direction == "up":
		err = m.Up()
	case *steps > 0:
		err = m.Steps(-*steps)
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	fields := []zap.Field{
		zap.String("direction", *direction),
		zap.Bool("changed", err == nil),
		zap.Duration("elapsed", time.Since(start)),
	}
	logger.Info("catalog schema migrated", append(fields, versionFields(m.Version())...)...)
	return nil
}

// versionFields describes the schema version reported after a migration.
// A fully rolled back schema has no version.
func versionFields(version uint, dirty bool, err error) []zap.Field {
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return []zap.Field{zap.String("version", "none")}
	case err != nil:
		return []zap.Field{zap.NamedError("version_error", err)}
	}
	return []zap.Field{zap.Uint("version", version), zap.Bool("dirty", dirty)}
}
