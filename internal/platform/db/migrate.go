package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"library-backend/internal/platform/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m    *migrate.Migrate
	conn *sql.DB
}

func NewMigrator(c config.DatabaseConfig, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	// migration files hold several statements each
	conn, err := sql.Open(driverName, DSN(c, true))
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	drv, err := migratemysql.WithInstance(conn, &migratemysql.Config{DatabaseName: c.DBName})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, c.DBName, drv)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration init: %w", err)
	}
	m.Log = migrateLogger{log: log.Sugar()}
	return &Migrator{m: m, conn: conn}, nil
}

func (mg *Migrator) Up() error   { return ignoreNoChange(mg.m.Up()) }
func (mg *Migrator) Down() error { return ignoreNoChange(mg.m.Down()) }

// Steps moves n migrations forward (n > 0) or back (n < 0).
func (mg *Migrator) Steps(n int) error { return ignoreNoChange(mg.m.Steps(n)) }

// Version reports the applied version. ok is false on an empty database.
func (mg *Migrator) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr, mg.conn.Close())
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

type migrateLogger struct{ log *zap.SugaredLogger }

func (l migrateLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
func (l migrateLogger) Verbose() bool                  { return false }
