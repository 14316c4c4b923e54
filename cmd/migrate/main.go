package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"scoreparse/internal/config"
	"scoreparse/internal/logging"
	"scoreparse/internal/repository/sqlstore"
)

const usage = "Usage: migrate [up|down|steps N|version]"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	db, err := sqlstore.NewDB(&cfg.DB)
	if err != nil {
		fatal("failed to connect to session store", err)
	}
	m, err := sqlstore.NewMigrator(db)
	if err != nil {
		fatal("failed to create migrate instance", err)
	}
	defer m.Close()

	cmd := os.Args[1]
	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("migration up failed", err)
		}
		slog.Info("migrations applied successfully", "driver", db.DriverName())

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("migration down failed", err)
		}
		slog.Info("migrations reverted successfully", "driver", db.DriverName())

	case "steps":
		if len(os.Args) < 3 {
			fatal("steps requires a number argument", nil)
		}
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fatal("invalid steps argument", err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("migration steps failed", err)
		}
		slog.Info("applied migration steps", "steps", n)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fatal("failed to get version", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)

	default:
		fmt.Printf("unknown command: %s\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
