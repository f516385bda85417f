package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voicepay/internal/dbx"
	"github.com/dmitrijs2005/voicepay/internal/server/migrations"
	"github.com/dmitrijs2005/voicepay/internal/server/repositories/enrollments"
	"github.com/pressly/goose/v3"
)

// SQLiteRepositoryManager vends SQLite-backed repositories. It is the default
// for single node deployments.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Enrollments(db dbx.DBTX) enrollments.Repository {
	return enrollments.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Driver() string { return dbx.DriverSQLite }

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}
