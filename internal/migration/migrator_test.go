package migration

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/database/dbtest"
	"github.com/Additional-Code/edisync/internal/entity"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "sql/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestSQLiteUpAndDown(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	cfg := config.Config{Database: config.Database{Driver: "sqlite"}}
	mig, err := New(cfg, dbtest.Connections(db), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, mig.Up(ctx))
	_, err = db.NewInsert().Model(&entity.Product{SKU: "A1", Name: "Widget"}).Exec(ctx)
	require.NoError(t, err)

	assert.Error(t, mig.Down(ctx, 1, false))
	require.NoError(t, mig.Down(ctx, 0, true))

	_, err = db.NewSelect().Model((*entity.Product)(nil)).Count(ctx)
	assert.Error(t, err)
}

func TestGooseDialect(t *testing.T) {
	d, err := gooseDialect("pg")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	_, err = gooseDialect("sqlite")
	assert.Error(t, err)
}
