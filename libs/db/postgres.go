package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	maxOpenConns = 25
	maxIdleConns = 5
	connLifetime = time.Hour
	connIdleTime = 30 * time.Minute

	pingAttempts = 3
	pingTimeout  = 5 * time.Second
	pingBackoff  = time.Second
)

// NewPostgresDB opens a pgx/stdlib backed *sql.DB pool and verifies the
// connection, retrying a few times so a service starting alongside the
// database does not fail spuriously.
func NewPostgresDB(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connLifetime)
	pool.SetConnMaxIdleTime(connIdleTime)

	if err := ping(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}

func ping(pool *sql.DB) error {
	var err error
	for attempt := 0; attempt < pingAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(pingBackoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = pool.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}
