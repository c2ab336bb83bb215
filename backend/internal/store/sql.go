package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/dialect"
	"smart-led-controller/backend/pkg/migrator"
	"smart-led-controller/backend/pkg/utils"
)

//go:embed migrations
var migrationsFS embed.FS

const readingColumns = "id, ts_ms, occupancy_count, ambient_lux, led_output_pwm, energy_consumed_watts, mode, simulation_mode"

// SQLStore keeps readings in SQLite or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect.Dialect
	l       *slog.Logger
}

// OpenSQL connects, applies migrations and returns a ready store. Connection
// failures are wrapped in ErrStoreUnavailable.
func OpenSQL(ctx context.Context, l *slog.Logger, d dialect.Dialect, connStr string) (*SQLStore, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	l = l.With(slog.String("component", "store"), slog.String("dialect", d.String()))

	m, err := migrator.New(l, d, connStr, migrationsFS, "migrations/"+d.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Migrate(); err != nil {
		return nil, unavailable(err)
	}

	db, err := sql.Open(d.Driver(), connStr)
	if err != nil {
		return nil, unavailable(err)
	}

	if d == dialect.SQLite {
		// One writer at a time; WAL lets readers proceed alongside it.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				utils.LogOnError(l, db.Close, "failed to close database")
				return nil, unavailable(fmt.Errorf("%s: %w", pragma, err))
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		utils.LogOnError(l, db.Close, "failed to close database")
		return nil, unavailable(err)
	}

	l.Info("store ready")
	return &SQLStore{db: db, dialect: d, l: l}, nil
}

func (s *SQLStore) Append(ctx context.Context, r reading.Reading) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO readings
		(ts_ms, occupancy_count, ambient_lux, led_output_pwm, energy_consumed_watts, mode, simulation_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.Timestamp.UnixMilli(), r.OccupancyCount, r.AmbientLux, r.LEDOutputPWM,
		r.EnergyConsumedWatts, string(r.Mode), r.SimulationMode,
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func where(q Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.From.IsZero() {
		conds = append(conds, "ts_ms >= ?")
		args = append(args, q.From.UnixMilli())
	}
	if !q.To.IsZero() {
		conds = append(conds, "ts_ms < ?")
		args = append(args, q.To.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLStore) Query(ctx context.Context, q Query) ([]reading.Reading, error) {
	clause, args := where(q)
	query := "SELECT " + readingColumns + " FROM readings" + clause
	if q.Order == OldestFirst {
		query += " ORDER BY ts_ms ASC, id ASC"
	} else {
		query += " ORDER BY ts_ms DESC, id DESC"
	}
	switch {
	case q.Limit > 0:
		query += " LIMIT ?"
		args = append(args, q.Limit)
	case q.Offset > 0 && s.dialect == dialect.SQLite:
		// SQLite only accepts OFFSET after a LIMIT.
		query += " LIMIT -1"
	}
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, &QueryError{Op: "readings", Err: err}
	}
	defer utils.LogOnError(s.l, rows.Close, "failed to close rows")

	var out []reading.Reading
	for rows.Next() {
		var (
			r    reading.Reading
			tsMs int64
			mode string
		)
		if err := rows.Scan(&r.ID, &tsMs, &r.OccupancyCount, &r.AmbientLux, &r.LEDOutputPWM,
			&r.EnergyConsumedWatts, &mode, &r.SimulationMode); err != nil {
			return nil, &QueryError{Op: "readings", Err: err}
		}
		r.Timestamp = time.UnixMilli(tsMs)
		r.Mode = reading.Mode(mode)
		out = append(out, r.Normalize())
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "readings", Err: err}
	}
	return out, nil
}

func (s *SQLStore) Summarize(ctx context.Context, q Query) (Summary, error) {
	clause, args := where(q)
	var sum Summary
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT COUNT(*), COALESCE(SUM(energy_consumed_watts), 0), COALESCE(SUM(led_output_pwm), 0) FROM readings"+clause),
		args...,
	).Scan(&sum.Count, &sum.EnergyWatts, &sum.PWMSum)
	if err != nil {
		return Summary{}, &QueryError{Op: "summary", Err: err}
	}
	return sum, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
