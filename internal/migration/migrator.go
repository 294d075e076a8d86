package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/database"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var migrations embed.FS

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// Migrator applies schema changes. Postgres runs the embedded goose
// migrations; mysql and sqlite create tables from the entity models.
type Migrator struct {
	db     *bun.DB
	driver string
	logger *zap.Logger
}

// New constructs a migrator for the configured driver.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	m := &Migrator{
		db:     conns.Writer,
		driver: cfg.Database.Driver,
		logger: logger,
	}
	if !m.useGoose() {
		return m, nil
	}

	dialect, err := gooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Migrator) useGoose() bool {
	return m.driver == "postgres" || m.driver == "pg"
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if !m.useGoose() {
		if err := database.CreateSchema(ctx, m.db); err != nil {
			return err
		}
		m.logger.Info("schema created from models", zap.String("driver", m.driver))

		return nil
	}

	if err := goose.UpContext(ctx, m.db.DB, migrationsDir); err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info("no migrations to apply")

			return nil
		}
		return err
	}

	m.logger.Info("migrations applied")

	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls everything back.
// Model-managed schemas can only be dropped as a whole.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if !m.useGoose() {
		if !all {
			return fmt.Errorf("driver %s supports only a full rollback (--all)", m.driver)
		}
		if err := database.DropSchema(ctx, m.db); err != nil {
			return err
		}
		m.logger.Info("schema dropped", zap.String("driver", m.driver))

		return nil
	}

	if all {
		if err := goose.DownToContext(ctx, m.db.DB, migrationsDir, 0); err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))

		return nil
	}

	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, m.db.DB, migrationsDir); err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
	}

	m.logger.Info("migrations rolled back", zap.Int("steps", steps))

	return nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres", "pg":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "no migrations")
}
