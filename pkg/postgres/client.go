// Package postgres opens the lib/pq connection pool shared by the index
// source and the analytics snapshot store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/patrickoleary/vtkapi-mcp/pkg/config"
)

const connectTimeout = 5 * time.Second

// Client is a pooled connection plus the configured index table name.
type Client struct {
	DB    *sql.DB
	Table string
}

// New opens the pool and waits up to connectTimeout for a first ping.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db, Table: cfg.Table}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.DB.PingContext(ctx) }

func (c *Client) Close() error { return c.DB.Close() }

// PoolSummary describes pool usage for health output.
func (c *Client) PoolSummary() string {
	s := c.DB.Stats()
	return fmt.Sprintf("open=%d in_use=%d idle=%d waits=%d", s.OpenConnections, s.InUse, s.Idle, s.WaitCount)
}

// InTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn fails or panics.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
