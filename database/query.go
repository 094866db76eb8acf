package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"perfumery_server/structs"
	"strconv"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DB wraps the bun database handle with additional functionality
type DB struct {
	*bun.DB
	driver string
}

// Connect opens a pooled connection using the configured driver and pings it
func Connect(ctx context.Context, dbCfg *structs.DatabaseConfig, logger *gecho.Logger) (*DB, error) {
	sqldb, err := openSQLDB(dbCfg)
	if err != nil {
		return nil, err
	}

	// Apply pool settings from configuration
	sqldb.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(dbCfg.MaxLifetime)
	sqldb.SetConnMaxIdleTime(dbCfg.MaxIdleTime)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(&queryHealthHook{logger: logger, slowThreshold: dbCfg.SlowQueryThreshold})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := WithRetry(pingCtx, func() error { return db.PingContext(pingCtx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully",
		gecho.Field("driver", dbCfg.Driver),
		gecho.Field("host", dbCfg.Host),
		gecho.Field("database", dbCfg.Name),
	)

	return &DB{DB: db, driver: dbCfg.Driver}, nil
}

func openSQLDB(dbCfg *structs.DatabaseConfig) (*sql.DB, error) {
	switch dbCfg.Driver {
	case "", "pgdriver":
		connector := pgdriver.NewConnector(
			pgdriver.WithAddr(net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port))),
			pgdriver.WithUser(dbCfg.User),
			pgdriver.WithPassword(dbCfg.Password),
			pgdriver.WithDatabase(dbCfg.Name),
			pgdriver.WithInsecure(dbCfg.SSLMode == "disable"),
			pgdriver.WithReadTimeout(dbCfg.ReadTimeout),
			pgdriver.WithWriteTimeout(dbCfg.WriteTimeout),
			pgdriver.WithApplicationName("perfumery_server"),
		)
		return sql.OpenDB(connector), nil
	case "pgx":
		connCfg, err := pgx.ParseConfig(DSN(dbCfg))
		if err != nil {
			return nil, fmt.Errorf("invalid pgx configuration: %w", err)
		}
		return stdlib.OpenDB(*connCfg), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}
}

// DSN renders the configuration as a postgres:// URL
func DSN(dbCfg *structs.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(dbCfg.User, dbCfg.Password),
		Host:   net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port)),
		Path:   "/" + dbCfg.Name,
	}
	q := u.Query()
	if dbCfg.SSLMode != "" {
		q.Set("sslmode", dbCfg.SSLMode)
	}
	q.Set("application_name", "perfumery_server")
	u.RawQuery = q.Encode()
	return u.String()
}

func (db *DB) Driver() string {
	return db.driver
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

// GetStats returns connection pool statistics for monitoring
func (db *DB) GetStats() sql.DBStats {
	return db.DB.DB.Stats()
}

// queryHealthHook logs slow queries and dropped connections
type queryHealthHook struct {
	logger        *gecho.Logger
	slowThreshold time.Duration
}

func (h *queryHealthHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryHealthHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	if h.slowThreshold > 0 && duration > h.slowThreshold {
		h.logger.Warn("Slow database query detected",
			gecho.Field("query", event.Query),
			gecho.Field("duration", duration),
		)
	}

	if event.Err != nil && (errors.Is(event.Err, io.EOF) || errors.Is(event.Err, io.ErrUnexpectedEOF)) {
		h.logger.Error("Database connection EOF error - connection may have been closed by server",
			gecho.Field("error", event.Err),
			gecho.Field("query", event.Query),
		)
	}
}
