package accounts

import (
	"context"
	"database/sql"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations. The dialect must
// match what goose expects ("postgres" or "sqlite3"). Migrations are
// additive; older rows stay valid after every revision.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	dir, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open embedded migrations")
	}

	goose.SetBaseFS(dir)
	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unsupported migration dialect").
			WithMetadata(map[string]any{"dialect": dialect})
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}
