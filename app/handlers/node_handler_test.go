package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefleet/app/domains"
	"homefleet/app/dto"
	"homefleet/app/services"
)

// fakeStore is an in-memory StorageAdapter for handler tests.
type fakeStore struct {
	nodes   map[string]*domains.Node
	events  []domains.NodeEvent
	metrics []domains.NodeMetric
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: map[string]*domains.Node{}}
}

func (f *fakeStore) RegisterNode(_ context.Context, node *domains.Node) (bool, error) {
	prev, exists := f.nodes[node.NodeID]
	if exists {
		node.LastHeartbeat = prev.LastHeartbeat
	}
	// Both branches restamp registered_at, matching the store contract.
	node.RegisteredAt = time.Now()
	node.Status = domains.StatusOnline
	node.IsActive = true
	f.nodes[node.NodeID] = node
	return !exists, nil
}

func (f *fakeStore) GetNode(_ context.Context, nodeID string) (*domains.Node, error) {
	n, ok := f.nodes[nodeID]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (f *fakeStore) ListNodes(_ context.Context) ([]domains.Node, error) {
	var out []domains.Node
	for _, n := range f.nodes {
		out = append(out, *n)
	}
	return out, nil
}

func (f *fakeStore) UpdateNodeHeartbeat(_ context.Context, nodeID string, at time.Time) error {
	n, ok := f.nodes[nodeID]
	if !ok {
		return fmt.Errorf("unknown node %s", nodeID)
	}
	n.LastHeartbeat = &at
	n.Status = domains.StatusOnline
	return nil
}

func (f *fakeStore) InsertMetric(_ context.Context, metric *domains.NodeMetric) error {
	f.metrics = append(f.metrics, *metric)
	return nil
}

func (f *fakeStore) InsertMetrics(_ context.Context, metrics []domains.NodeMetric) (int, error) {
	f.metrics = append(f.metrics, metrics...)
	return len(metrics), nil
}

func (f *fakeStore) AppendEvent(_ context.Context, event *domains.NodeEvent) error {
	ev := *event
	ev.CreatedAt = time.Now()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) ListRecentEvents(_ context.Context, nodeID string, _ int) ([]domains.NodeEvent, error) {
	var out []domains.NodeEvent
	for _, ev := range f.events {
		if ev.NodeID == nodeID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeStore) ListStaleNodes(context.Context, time.Time) ([]domains.Node, error)  { return nil, nil }
func (f *fakeStore) ListSilentNodes(context.Context, time.Time) ([]domains.Node, error) { return nil, nil }
func (f *fakeStore) MarkNodeOffline(context.Context, string, string) error              { return nil }
func (f *fakeStore) DeleteMetricsBefore(context.Context, time.Time) (int64, error)      { return 0, nil }
func (f *fakeStore) DeleteEventsBefore(context.Context, time.Time) (int64, error)       { return 0, nil }
func (f *fakeStore) Close()                                                             {}

func newTestRouter(store *fakeStore, tokenService *services.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	nodes := services.NewNodeService(store, 15, zerolog.Nop())
	handler := NewNodeHandler(nodes, tokenService)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/nodes/register/", handler.Register)
	api.POST("/nodes/:id/heartbeat/", handler.Heartbeat)
	api.POST("/nodes/:id/metrics/", handler.PushMetrics)
	api.GET("/nodes/", handler.ListNodes)
	api.GET("/nodes/:id/", handler.GetNode)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const testNodeID = "6ba7b810-9dad-41d1-80b4-00c04fd430c8"

func registerBody() dto.RegisterRequest {
	return dto.RegisterRequest{
		ID:       testNodeID,
		Hostname: "pi-kitchen",
		NodeType: "edge",
		Platform: "linux",
		Port:     8100,
		Version:  "0.3.0",
	}
}

func TestRegisterCreatesNode(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testNodeID, resp.NodeID)
	assert.Empty(t, resp.Token)

	require.Contains(t, store.nodes, testNodeID)
	assert.Equal(t, domains.StatusOnline, store.nodes[testNodeID].Status)
	require.Len(t, store.events, 1)
	assert.Equal(t, domains.EventRegistered, store.events[0].EventType)
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)

	first := doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)
	second := doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, store.nodes, 1)
	// Only the first registration produces an event.
	assert.Len(t, store.events, 1)
}

func TestRegisterRejectsBadBody(t *testing.T) {
	r := newTestRouter(newFakeStore(), nil)

	body := registerBody()
	body.NodeType = "mainframe"
	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = registerBody()
	body.ID = "not-a-uuid"
	w = doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterIssuesTokenWhenAuthEnabled(t *testing.T) {
	store := newFakeStore()
	tokens := services.NewTokenService("test-secret", 3600)
	r := newTestRouter(store, tokens)

	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	nodeID, err := tokens.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, testNodeID, nodeID)
}

func TestHeartbeatUpdatesNode(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	hb := dto.HeartbeatRequest{CPUPercent: 12.5, MemoryPercent: 40, MemoryUsedMB: 812, DiskPercent: 33, DiskUsedGB: 10.2}
	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/"+testNodeID+"/heartbeat/", hb, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.nodes[testNodeID].LastHeartbeat)
	require.Len(t, store.metrics, 1)
	assert.Equal(t, 12.5, store.metrics[0].CPUPercent)
}

func TestHeartbeatUnknownNodeReturns404(t *testing.T) {
	r := newTestRouter(newFakeStore(), nil)

	hb := dto.HeartbeatRequest{CPUPercent: 1}
	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/"+testNodeID+"/heartbeat/", hb, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeatFromOfflineNodeAppendsRecoveryEvent(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)
	store.nodes[testNodeID].Status = domains.StatusOffline

	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/"+testNodeID+"/heartbeat/", dto.HeartbeatRequest{}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domains.StatusOnline, store.nodes[testNodeID].Status)

	var recoveries int
	for _, ev := range store.events {
		if ev.EventType == domains.EventOnline {
			recoveries++
		}
	}
	assert.Equal(t, 1, recoveries)
}

func TestHeartbeatAuth(t *testing.T) {
	store := newFakeStore()
	tokens := services.NewTokenService("test-secret", 3600)
	r := newTestRouter(store, tokens)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	path := "/api/v1/nodes/" + testNodeID + "/heartbeat/"

	// No token.
	w := doJSON(t, r, http.MethodPost, path, dto.HeartbeatRequest{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token for a different node.
	otherToken, err := tokens.GenerateToken("11111111-2222-4333-8444-555555555555")
	require.NoError(t, err)
	w = doJSON(t, r, http.MethodPost, path, dto.HeartbeatRequest{}, map[string]string{"Authorization": "Bearer " + otherToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Matching token.
	token, err := tokens.GenerateToken(testNodeID)
	require.NoError(t, err)
	w = doJSON(t, r, http.MethodPost, path, dto.HeartbeatRequest{}, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPushMetricsBackfills(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)
	before := store.nodes[testNodeID].LastHeartbeat

	body := dto.PushMetricsRequest{Samples: []dto.MetricSample{
		{CPUPercent: 50, RecordedAt: time.Now().Add(-10 * time.Minute).Format(time.RFC3339)},
		{CPUPercent: 60, RecordedAt: time.Now().Add(-9 * time.Minute).Format(time.RFC3339)},
	}}
	w := doJSON(t, r, http.MethodPost, "/api/v1/nodes/"+testNodeID+"/metrics/", body, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.PushMetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Accepted)
	assert.Len(t, store.metrics, 2)
	// Backfill must not advance liveness.
	assert.Equal(t, before, store.nodes[testNodeID].LastHeartbeat)
}

func TestListNodesReportsStaleness(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	old := time.Now().Add(-20 * time.Minute)
	store.nodes[testNodeID].LastHeartbeat = &old

	w := doJSON(t, r, http.MethodGet, "/api/v1/nodes/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListNodesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.True(t, resp.Nodes[0].IsStale)
}

func TestGetNodeDetail(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, nil)
	doJSON(t, r, http.MethodPost, "/api/v1/nodes/register/", registerBody(), nil)

	w := doJSON(t, r, http.MethodGet, "/api/v1/nodes/"+testNodeID+"/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.NodeDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pi-kitchen", resp.Node.Hostname)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, domains.EventRegistered, resp.Events[0].EventType)

	w = doJSON(t, r, http.MethodGet, "/api/v1/nodes/00000000-0000-4000-8000-000000000000/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
