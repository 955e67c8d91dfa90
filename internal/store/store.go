// Package store persists counter samples in a local SQLite database.
// The sample log is append-only: rows are never updated or deleted by
// this tool (retention is an external concern).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/netusage-app/netusage/internal/netmodel"
)

// ErrUnavailable means the database could not be opened or initialized.
var ErrUnavailable = errors.New("sample store unavailable")

// Store abstracts sample persistence so tests can substitute an
// in-memory implementation.
type Store interface {
	// Append durably records one sample as a single atomic insert.
	Append(ctx context.Context, s netmodel.Sample) error

	// Range returns all samples for iface with start <= ts <= end,
	// ascending by timestamp. Both endpoints are inclusive so the
	// boundary reading of an adjacent window participates in this
	// window's delta chain.
	Range(ctx context.Context, iface string, start, end int64) ([]netmodel.Sample, error)

	// Close releases the underlying database handle.
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	ts INTEGER NOT NULL,
	iface TEXT NOT NULL,
	rx_bytes INTEGER NOT NULL,
	tx_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_ts_iface ON samples(ts, iface);
`

// DB is the SQLite-backed Store. One process writes at a time in
// practice; WAL mode plus a busy timeout lets report readers proceed
// while the watcher holds its short per-insert write lock.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// Open opens (creating if needed) the SQLite database at path and
// ensures the samples schema exists. Parent directories are created.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrUnavailable, dir, err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing schema: %v", ErrUnavailable, err)
	}

	return &DB{db: db, logger: logger}, nil
}

// Append records one sample. The insert is a single statement, so a
// cancelled watch loop can never leave a partial row behind.
func (d *DB) Append(ctx context.Context, s netmodel.Sample) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO samples (ts, iface, rx_bytes, tx_bytes) VALUES (?, ?, ?, ?)`,
		s.Timestamp, s.Iface, int64(s.RxBytes), int64(s.TxBytes))
	if err != nil {
		return fmt.Errorf("appending sample: %w", err)
	}

	d.logger.Debug("Appended sample",
		zap.String("iface", s.Iface),
		zap.Int64("ts", s.Timestamp),
		zap.Uint64("rx", s.RxBytes),
		zap.Uint64("tx", s.TxBytes))
	return nil
}

// Range returns iface's samples with timestamps in [start, end],
// ascending. Ties share storage-return order.
func (d *DB) Range(ctx context.Context, iface string, start, end int64) ([]netmodel.Sample, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ts, rx_bytes, tx_bytes FROM samples
		 WHERE iface = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts ASC`,
		iface, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []netmodel.Sample
	for rows.Next() {
		var ts, rx, tx int64
		if err := rows.Scan(&ts, &rx, &tx); err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		samples = append(samples, netmodel.Sample{
			Timestamp: ts,
			Iface:     iface,
			RxBytes:   uint64(rx),
			TxBytes:   uint64(tx),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sample rows: %w", err)
	}
	return samples, nil
}

// Close closes the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
