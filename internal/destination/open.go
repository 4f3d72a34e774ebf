package destination

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
)

// PoolOptions sizes the connection pool. Zero values keep the driver
// defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to a destination database and returns its catalog and a
// function that releases the connection.
//
// Drivers: "pgx" (native Postgres), "postgres", "mysql", "sqlserver",
// "oracle" (database/sql) and "memory" (in-process, dsn ignored).
func Open(ctx context.Context, driver, dsn string, opts PoolOptions) (Catalog, func() error, error) {
	driver = strings.ToLower(driver)
	switch driver {
	case "memory":
		return NewMemory(), func() error { return nil }, nil
	case "pgx":
		pool, err := openPool(ctx, dsn, opts)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresCatalog(pool), func() error { pool.Close(); return nil }, nil
	}

	d, err := dialect.Get(driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(sqlDriverName(driver), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		db.SetMaxIdleConns(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(opts.MaxConnLifetime)
	}
	if opts.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxConnIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	logging.FromContext(ctx).Info("destination connected", "driver", driver, "dialect", d.Name())
	return NewSQLCatalog(db, d), db.Close, nil
}

func openPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logging.FromContext(ctx).Info("destination connected", "driver", "pgx", "max_conns", cfg.MaxConns)
	return pool, nil
}

// sqlDriverName maps a driver alias to the name its package registers.
func sqlDriverName(driver string) string {
	switch driver {
	case "postgresql":
		return "postgres"
	case "mariadb":
		return "mysql"
	case "mssql":
		return "sqlserver"
	}
	return driver
}
