package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"coupon_engine/internal/pkg/config"
	"coupon_engine/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of migrations to apply, 0 means all")
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m, err := migrate.New(*source, cfg.Database.URL())
	if err != nil {
		log.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	if err := apply(m, *direction, *steps); err != nil {
		var dirty migrate.ErrDirty
		if !errors.As(err, &dirty) {
			log.Fatal("migration failed", zap.Error(err))
		}
		// 上次迁移中断，回退到前一个版本后重试
		log.Warn("database is dirty, forcing previous version", zap.Int("version", dirty.Version))
		if err := m.Force(dirty.Version - 1); err != nil {
			log.Fatal("force version failed", zap.Error(err))
		}
		if err := apply(m, *direction, *steps); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}

	version, dirty, _ := m.Version()
	log.Info("migration successful", zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func apply(m *migrate.Migrate, direction string, steps int) error {
	var err error
	switch {
	case steps != 0 && direction == "down":
		err = m.Steps(-steps)
	case steps != 0:
		err = m.Steps(steps)
	case direction == "down":
		err = m.Down()
	default:
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
