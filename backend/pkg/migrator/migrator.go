package migrator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"

	"smart-led-controller/backend/pkg/dialect"
	"smart-led-controller/backend/pkg/utils"
)

// Migrator applies the embedded schema migrations for one database.
type Migrator struct {
	db      *dbmate.DB
	dialect dialect.Dialect
	l       *slog.Logger
}

// New creates a migrator reading migrations from dir inside fsys.
// In-memory SQLite databases are rejected because dbmate opens its own connection.
func New(l *slog.Logger, d dialect.Dialect, connStr string, fsys fs.FS, dir string) (*Migrator, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if connStr == "" {
		return nil, errors.New("connection string is required")
	}
	if d == dialect.SQLite && strings.Contains(connStr, ":memory:") {
		return nil, errors.New("in-memory databases are not supported")
	}
	if _, err := fs.ReadDir(fsys, dir); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	u, err := url.Parse(d.MigrationURL(connStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	db := dbmate.New(u)
	db.Strict = true
	db.FS = fsys
	db.MigrationsDir = []string{dir}
	db.AutoDumpSchema = false

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", d.String()))
	db.Log = utils.NewSlogWriter(l)

	return &Migrator{db: db, dialect: d, l: l}, nil
}

func (m *Migrator) Migrate() error {
	m.l.Info("Migrating database")

	if err := m.db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
