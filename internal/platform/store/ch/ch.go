// Package ch provides a clickhouse client
package ch

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	perr "hostbridge/internal/platform/errors"
)

// Config configures clickhouse client
type Config struct {
	URL        string
	ClientName string
	ClientTag  string
}

// Rows is the minimal result set iteration for ch.
// driver.Rows satisfies it directly
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH wraps a native clickhouse connection. The zero value is a
// disconnected client: queries return empty rows and inserts fail
type CH struct {
	conn driver.Conn
}

// Open parses the DSN and builds the connection pool. No network traffic
// happens here; the handshake runs on the first query or ping
func Open(_ context.Context, cfg Config) (*CH, error) {
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "ch: parse dsn")
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "ch: open")
	}
	return &CH{conn: conn}, nil
}

// Insert appends rows ([][]any) to table via a native batch
func (c *CH) Insert(ctx context.Context, table string, data any) error {
	if c.conn == nil {
		return perr.Unavailablef("ch: not connected")
	}
	rows, ok := data.([][]any)
	if !ok {
		return perr.InvalidArgf("ch: unsupported insert shape (want [][]any)")
	}
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "ch: prepare batch for %s", table)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "ch: append to %s", table)
		}
	}
	return perr.WrapIf(batch.Send(), perr.ErrorCodeDB, "ch: send batch")
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c.conn == nil {
		return &emptyRows{}, nil
	}
	r, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "ch: query")
	}
	return r, nil
}

// Ping verifies the server handshake
func (c *CH) Ping(ctx context.Context) error {
	if c.conn == nil {
		return perr.Unavailablef("ch: not connected")
	}
	return perr.WrapIf(c.conn.Ping(ctx), perr.ErrorCodeDB, "ch: ping")
}

// Close closes resources
func (c *CH) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// emptyRows backs the disconnected client
type emptyRows struct{}

func (*emptyRows) Next() bool             { return false }
func (*emptyRows) Scan(dest ...any) error { return nil }
func (*emptyRows) Err() error             { return nil }
func (*emptyRows) Close() error           { return nil }
func (*emptyRows) Columns() []string      { return nil }
