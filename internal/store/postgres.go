package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/i474232898/metar-service/internal/weather"
)

//go:embed sql/recent-summaries.sql
var recentSummariesSQL string

//go:embed sql/raw-reports.sql
var rawReportsSQL string

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	// sqlDriverName is the database/sql name registered by pgx/v5/stdlib.
	sqlDriverName = "pgx"
)

// Config holds the observation store connection and pool settings.
type Config struct {
	Driver string

	// DSN, when set, is used verbatim and the discrete fields are ignored.
	DSN      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Migrate applies the embedded schema on startup.
	Migrate bool
}

// ConnString renders the PostgreSQL connection URL for cfg.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Open creates the connection pool described by cfg. Connections are
// established lazily; use PostgresStore.Ping to verify connectivity.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open(sqlDriverName, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// PostgresStore reads observations from the metar_reports table.
// Every query borrows one pooled connection and returns it before the call ends.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks that a pooled connection can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) RecentSummaries(ctx context.Context, station string, limit int) ([]weather.HistoricalSummary, error) {
	out := make([]weather.HistoricalSummary, 0)
	err := s.withConn(ctx, weather.QuerySummaries, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, recentSummariesSQL, station, limit)
		if err != nil {
			return err
		}
		defer closeRows(rows, weather.QuerySummaries)

		for rows.Next() {
			var (
				rec weather.HistoricalSummary
				ts  time.Time
			)
			if err := rows.Scan(
				&ts,
				&rec.TemperatureC,
				&rec.DewpointC,
				&rec.WindDirDegrees,
				&rec.WindSpeedKt,
				&rec.VisibilityStatuteMi,
				&rec.Elevation,
				&rec.CloudCover,
				&rec.CloudBase,
			); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			rec.ObservationTime = weather.Timestamp{Time: ts.UTC()}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) RawReports(ctx context.Context, station string, dates weather.DateRange, limit int) ([]weather.RawHistoricalRecord, error) {
	out := make([]weather.RawHistoricalRecord, 0)
	err := s.withConn(ctx, weather.QueryRaw, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, rawReportsSQL, station, nullableDate(dates.Start), nullableDate(dates.End), limit)
		if err != nil {
			return err
		}
		defer closeRows(rows, weather.QueryRaw)

		for rows.Next() {
			var (
				rec weather.RawHistoricalRecord
				ts  time.Time
				raw sql.NullString
			)
			if err := rows.Scan(&ts, &raw); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			rec.ObservationTime = weather.Timestamp{Time: ts.UTC()}
			rec.RawText = raw.String
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withConn runs fn on a dedicated pooled connection, releasing it on every path.
func (s *PostgresStore) withConn(ctx context.Context, op string, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &weather.StoreError{Op: op, Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("release store connection", "op", op, "error", err)
		}
	}()

	if err := fn(conn); err != nil {
		return &weather.StoreError{Op: op, Err: err}
	}
	return nil
}

func closeRows(rows *sql.Rows, op string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "op", op, "error", err)
	}
}

// nullableDate binds an empty bound as SQL NULL, which makes BETWEEN match nothing.
func nullableDate(s string) any {
	if s == "" {
		return nil
	}
	return s
}
