// Package sqlite implements the agent's local metric buffer. Samples that
// could not be delivered to the central are parked here and flushed after
// the next successful heartbeat.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"homefleet/app/metrics"
)

const bufferSchema = `
CREATE TABLE IF NOT EXISTS pending_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cpu_percent REAL NOT NULL DEFAULT 0,
	memory_percent REAL NOT NULL DEFAULT 0,
	memory_used_mb REAL NOT NULL DEFAULT 0,
	disk_percent REAL NOT NULL DEFAULT 0,
	disk_used_gb REAL NOT NULL DEFAULT 0,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_metrics_recorded ON pending_metrics (recorded_at);
`

// maxBuffered caps the table so a long central outage cannot grow the
// buffer without bound; oldest rows are dropped first.
const maxBuffered = 10000

// BufferedSample is one parked sample with its local row id.
type BufferedSample struct {
	ID         int64
	Resource   metrics.Resource
	RecordedAt time.Time
}

// BufferStore is a sqlite-backed queue of undelivered metric samples.
type BufferStore struct {
	db *sql.DB
}

// NewBufferStore opens (creating if needed) the buffer database at dbPath.
func NewBufferStore(dbPath string) (*BufferStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create buffer directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open buffer database: %w", err)
	}

	if _, err := db.Exec(bufferSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init buffer schema: %w", err)
	}

	return &BufferStore{db: db}, nil
}

// Close closes the underlying database.
func (b *BufferStore) Close() error {
	return b.db.Close()
}

// Add parks one sample. When the buffer is full the oldest rows are
// evicted to make room.
func (b *BufferStore) Add(ctx context.Context, res metrics.Resource, at time.Time) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO pending_metrics (cpu_percent, memory_percent, memory_used_mb, disk_percent, disk_used_gb, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		res.CPUPercent, res.MemoryPercent, res.MemoryUsedMB, res.DiskPercent, res.DiskUsedGB, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to buffer sample: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		DELETE FROM pending_metrics
		WHERE id IN (
			SELECT id FROM pending_metrics ORDER BY recorded_at ASC
			LIMIT MAX(0, (SELECT COUNT(*) FROM pending_metrics) - ?)
		)`, maxBuffered)
	if err != nil {
		return fmt.Errorf("failed to trim buffer: %w", err)
	}
	return nil
}

// Pending returns up to limit parked samples, oldest first.
func (b *BufferStore) Pending(ctx context.Context, limit int) ([]BufferedSample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, cpu_percent, memory_percent, memory_used_mb, disk_percent, disk_used_gb, recorded_at
		FROM pending_metrics ORDER BY recorded_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []BufferedSample
	for rows.Next() {
		var s BufferedSample
		if err := rows.Scan(&s.ID, &s.Resource.CPUPercent, &s.Resource.MemoryPercent,
			&s.Resource.MemoryUsedMB, &s.Resource.DiskPercent, &s.Resource.DiskUsedGB, &s.RecordedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Delete removes delivered samples by row id.
func (b *BufferStore) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM pending_metrics WHERE id IN (%s)`, strings.Join(placeholders, ","))
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

// Count returns the number of parked samples.
func (b *BufferStore) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_metrics`).Scan(&n)
	return n, err
}
