package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/ericfisherdev/credaudit/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateLogger routes golang-migrate's progress output to zerolog at debug level.
type migrateLogger struct {
	log *logger.Logger
}

func (m migrateLogger) Printf(format string, v ...any) {
	m.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m migrateLogger) Verbose() bool {
	return m.log.GetLevel() <= zerolog.TraceLevel
}

// RunMigrations brings the credential schema up to date and returns the
// resulting schema version. Already-applied migrations are skipped, so it runs
// on every start. A dirty schema is reported as an error rather than forced.
func RunMigrations(db *sql.DB, log *logger.Logger) (uint, error) {
	if log == nil {
		log = logger.Nop()
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{log: log}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply credential schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("credential schema version %d is dirty", version)
	}

	log.Debug().Uint("schema_version", version).Msg("credential schema up to date")
	return version, nil
}
