package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

type Dialect string

const (
	SQLite     Dialect = "sqlite"
	PostgreSQL Dialect = "postgres"
)

func (d Dialect) Validate() error {
	switch d {
	case SQLite, PostgreSQL:
		return nil
	default:
		return fmt.Errorf("unsupported dialect: %s", d)
	}
}

func (d Dialect) String() string {
	return string(d)
}

// Driver returns the database/sql driver name registered for the dialect.
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case PostgreSQL:
		return "pgx"
	default:
		return ""
	}
}

// MigrationURL returns the dbmate URL for a connection string.
func (d Dialect) MigrationURL(connStr string) string {
	if d == SQLite && !strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite:" + connStr
	}
	return connStr
}

// Rebind rewrites '?' placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if d != PostgreSQL {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
