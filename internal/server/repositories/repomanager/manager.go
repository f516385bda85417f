package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voicepay/internal/dbx"
	"github.com/dmitrijs2005/voicepay/internal/server/repositories/enrollments"
	"github.com/pressly/goose/v3"
)

// RepositoryManager vends repositories bound to a DBTX and migrates the
// schema of its dialect.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Enrollments(db dbx.DBTX) enrollments.Repository
	// Driver is the database/sql driver name of the dialect.
	Driver() string
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// New returns the manager for a database/sql driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	case dbx.DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, &UnsupportedDriverError{Driver: driver}
	}
}

type UnsupportedDriverError struct {
	Driver string
}

func (e *UnsupportedDriverError) Error() string {
	return "unsupported sql driver: " + e.Driver
}
