// Package postgres implements the registry storage on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homefleet/app/domains"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store represents the Postgres storage implementation
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Postgres store and runs pending schema migrations.
// The database must already exist - creation is handled at the
// infrastructure/deployment level.
func NewStore(connString string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(connString); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

const nodeColumns = `id, node_id, hostname, node_type, ip_address, port, platform, version, capabilities, status, registered_at, last_heartbeat, is_active`

func scanNode(row pgx.Row) (*domains.Node, error) {
	var node domains.Node
	var capsJSON []byte
	err := row.Scan(
		&node.ID, &node.NodeID, &node.Hostname, &node.NodeType, &node.IPAddress,
		&node.Port, &node.Platform, &node.Version, &capsJSON, &node.Status,
		&node.RegisteredAt, &node.LastHeartbeat, &node.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if len(capsJSON) > 0 {
		if err := json.Unmarshal(capsJSON, &node.Capabilities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal capabilities: %w", err)
		}
	}
	return &node, nil
}

// RegisterNode upserts a node keyed by its agent-generated node_id.
// A re-registration refreshes the descriptive fields, flips the node back
// online and restamps registered_at, which restarts the never-heartbeated
// grace window for the liveness sweep; last_heartbeat is preserved. Returns
// true when the row was newly created.
func (s *Store) RegisterNode(ctx context.Context, node *domains.Node) (bool, error) {
	capsJSON, err := json.Marshal(node.Capabilities)
	if err != nil {
		return false, fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	query := `
		INSERT INTO nodes (node_id, hostname, node_type, ip_address, port, platform, version, capabilities, status, registered_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, 'online', $9, TRUE)
		ON CONFLICT (node_id)
		DO UPDATE SET
			hostname = EXCLUDED.hostname,
			node_type = EXCLUDED.node_type,
			ip_address = EXCLUDED.ip_address,
			port = EXCLUDED.port,
			platform = EXCLUDED.platform,
			version = EXCLUDED.version,
			capabilities = EXCLUDED.capabilities,
			status = 'online',
			registered_at = EXCLUDED.registered_at,
			is_active = TRUE
		RETURNING (xmax = 0)
	`
	var created bool
	err = s.pool.QueryRow(ctx, query,
		node.NodeID, node.Hostname, node.NodeType, node.IPAddress, node.Port,
		node.Platform, node.Version, string(capsJSON), time.Now(),
	).Scan(&created)
	if err != nil {
		return false, err
	}
	return created, nil
}

// GetNode retrieves a node by its node_id. Returns (nil, nil) when unknown.
func (s *Store) GetNode(ctx context.Context, nodeID string) (*domains.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE node_id = $1`
	node, err := scanNode(s.pool.QueryRow(ctx, query, nodeID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ListNodes retrieves all registered nodes, most recently seen first.
func (s *Store) ListNodes(ctx context.Context) ([]domains.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes ORDER BY last_heartbeat DESC NULLS LAST, registered_at DESC`
	return s.queryNodes(ctx, query)
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...interface{}) ([]domains.Node, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domains.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// UpdateNodeHeartbeat stamps last_heartbeat and flips the node online.
func (s *Store) UpdateNodeHeartbeat(ctx context.Context, nodeID string, at time.Time) error {
	query := `UPDATE nodes SET last_heartbeat = $1, status = 'online' WHERE node_id = $2`
	_, err := s.pool.Exec(ctx, query, at, nodeID)
	return err
}

// InsertMetric appends one resource sample.
func (s *Store) InsertMetric(ctx context.Context, metric *domains.NodeMetric) error {
	query := `
		INSERT INTO node_metrics (node_id, cpu_percent, memory_percent, memory_used_mb, disk_percent, disk_used_gb, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		metric.NodeID, metric.CPUPercent, metric.MemoryPercent, metric.MemoryUsedMB,
		metric.DiskPercent, metric.DiskUsedGB, metric.RecordedAt,
	)
	return err
}

// InsertMetrics appends a batch of backfilled samples in one transaction.
func (s *Store) InsertMetrics(ctx context.Context, metrics []domains.NodeMetric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO node_metrics (node_id, cpu_percent, memory_percent, memory_used_mb, disk_percent, disk_used_gb, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, m := range metrics {
		if _, err := tx.Exec(ctx, query,
			m.NodeID, m.CPUPercent, m.MemoryPercent, m.MemoryUsedMB,
			m.DiskPercent, m.DiskUsedGB, m.RecordedAt,
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(metrics), nil
}

// AppendEvent appends a lifecycle event.
func (s *Store) AppendEvent(ctx context.Context, event *domains.NodeEvent) error {
	extraJSON, err := json.Marshal(event.Extra)
	if err != nil {
		return fmt.Errorf("failed to marshal extra: %w", err)
	}

	query := `
		INSERT INTO node_events (node_id, event_type, message, extra, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`
	_, err = s.pool.Exec(ctx, query, event.NodeID, event.EventType, event.Message, string(extraJSON), time.Now())
	return err
}

// ListRecentEvents retrieves the newest events for a node.
func (s *Store) ListRecentEvents(ctx context.Context, nodeID string, limit int) ([]domains.NodeEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, node_id, event_type, message, created_at
		FROM node_events
		WHERE node_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, nodeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domains.NodeEvent
	for rows.Next() {
		var ev domains.NodeEvent
		if err := rows.Scan(&ev.ID, &ev.NodeID, &ev.EventType, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListStaleNodes retrieves online nodes whose last heartbeat is older than
// the cutoff.
func (s *Store) ListStaleNodes(ctx context.Context, cutoff time.Time) ([]domains.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE status = 'online' AND last_heartbeat IS NOT NULL AND last_heartbeat < $1
	`
	return s.queryNodes(ctx, query, cutoff)
}

// ListSilentNodes retrieves online nodes that registered before the cutoff
// and have never sent a heartbeat.
func (s *Store) ListSilentNodes(ctx context.Context, cutoff time.Time) ([]domains.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE status = 'online' AND last_heartbeat IS NULL AND registered_at < $1
	`
	return s.queryNodes(ctx, query, cutoff)
}

// MarkNodeOffline flips an online node offline and appends the offline
// event in one transaction. The status guard makes the sweep idempotent:
// a node already offline produces neither an update nor a second event.
func (s *Store) MarkNodeOffline(ctx context.Context, nodeID string, message string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE nodes SET status = 'offline' WHERE node_id = $1 AND status = 'online'`, nodeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO node_events (node_id, event_type, message, extra, created_at) VALUES ($1, $2, $3, '{}'::jsonb, $4)`,
		nodeID, domains.EventOffline, message, time.Now())
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteMetricsBefore removes metric samples older than the cutoff and
// returns the number of rows removed.
func (s *Store) DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM node_metrics WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteEventsBefore removes lifecycle events older than the cutoff and
// returns the number of rows removed.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM node_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
