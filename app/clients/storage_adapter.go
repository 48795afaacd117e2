package clients

import (
	"context"
	"time"

	"homefleet/app/domains"
)

// StorageAdapter defines the interface for registry storage operations.
// GetNode returns (nil, nil) when the node is unknown; callers translate
// that into a 404.
type StorageAdapter interface {
	// RegisterNode upserts by node id. Both branches set status=online and
	// registered_at=now, so a re-registration restarts the silent-node
	// window; last_heartbeat is never touched.
	RegisterNode(ctx context.Context, node *domains.Node) (created bool, err error)
	GetNode(ctx context.Context, nodeID string) (*domains.Node, error)
	ListNodes(ctx context.Context) ([]domains.Node, error)
	UpdateNodeHeartbeat(ctx context.Context, nodeID string, at time.Time) error
	InsertMetric(ctx context.Context, metric *domains.NodeMetric) error
	InsertMetrics(ctx context.Context, metrics []domains.NodeMetric) (int, error)
	AppendEvent(ctx context.Context, event *domains.NodeEvent) error
	ListRecentEvents(ctx context.Context, nodeID string, limit int) ([]domains.NodeEvent, error)

	// Liveness sweep support. Stale nodes are online with a heartbeat older
	// than the cutoff; silent nodes are online, have never heartbeated and
	// registered before the cutoff. MarkNodeOffline flips status and appends
	// the offline event in one transaction so a crashed sweep can never
	// produce a flipped node without its event.
	ListStaleNodes(ctx context.Context, cutoff time.Time) ([]domains.Node, error)
	ListSilentNodes(ctx context.Context, cutoff time.Time) ([]domains.Node, error)
	MarkNodeOffline(ctx context.Context, nodeID string, message string) error

	DeleteMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close()
}
