package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefleet/app/clients"
	"homefleet/app/dto"
	"homefleet/app/identity"
	"homefleet/app/metrics"
	"homefleet/app/platform"
	"homefleet/storage/sqlite"
)

type fakeDetector struct{}

func (fakeDetector) Detect() platform.Snapshot {
	return platform.Snapshot{
		OSFamily:     "linux",
		Arch:         "arm64",
		Hostname:     "test-node",
		LogicalCores: 4,
		RAMTotalGB:   4,
		DiskFreeGB:   32,
		DiskTotalGB:  64,
	}
}

// fakeCentral is a scriptable registry endpoint.
type fakeCentral struct {
	srv *httptest.Server

	heartbeatStatus int
	registerCalls   int
	heartbeats      int
	backfilled      []dto.MetricSample
	lastAuth        string
}

func newFakeCentral(t *testing.T) *fakeCentral {
	t.Helper()
	f := &fakeCentral{heartbeatStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/nodes/register/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.registerCalls++
		f.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(dto.RegisterResponse{NodeID: "x", Status: "registered", Token: "tok123", ExpiresIn: 3600})
	})
	mux.HandleFunc("POST /api/v1/nodes/{id}/heartbeat/", func(w http.ResponseWriter, r *http.Request) {
		f.heartbeats++
		f.lastAuth = r.Header.Get("Authorization")
		if f.heartbeatStatus != http.StatusOK {
			w.WriteHeader(f.heartbeatStatus)
			return
		}
		json.NewEncoder(w).Encode(dto.HeartbeatResponse{OK: true, Status: "online"})
	})
	mux.HandleFunc("POST /api/v1/nodes/{id}/metrics/", func(w http.ResponseWriter, r *http.Request) {
		var req dto.PushMetricsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.backfilled = append(f.backfilled, req.Samples...)
		json.NewEncoder(w).Encode(dto.PushMetricsResponse{Accepted: len(req.Samples)})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCentral) client() *CentralClient {
	return NewCentralClient(clients.NewHTTPClient(f.srv.URL, "", 5*time.Second))
}

func newTestIdentityManager(t *testing.T) *identity.Manager {
	t.Helper()
	mgr := identity.NewManager(t.TempDir(), fakeDetector{}, "rocksteady", zerolog.Nop())
	_, err := mgr.LoadOrCreate()
	require.NoError(t, err)
	return mgr
}

func newTestBuffer(t *testing.T) *sqlite.BufferStore {
	t.Helper()
	buffer, err := sqlite.NewBufferStore(filepath.Join(t.TempDir(), "buffer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestRegisterOncePersistsToken(t *testing.T) {
	central := newFakeCentral(t)
	client := central.client()
	identityMgr := newTestIdentityManager(t)

	reg := NewRegistrationService(client, central.srv.URL, identityMgr, nil, "10.0.0.5", 8470, "0.3.0", 15, zerolog.Nop())
	require.NoError(t, reg.RegisterOnce(context.Background()))

	assert.Equal(t, 1, central.registerCalls)

	ident := identityMgr.Current()
	assert.Equal(t, central.srv.URL, ident.RegisteredTo)
	assert.Equal(t, "tok123", ident.RegistrationToken)

	// The issued token must be used on the next call.
	require.NoError(t, client.Heartbeat(context.Background(), ident.UUID, metrics.Resource{}))
	assert.Equal(t, "Bearer tok123", central.lastAuth)
}

func TestRegistrationDisabledWithoutCentral(t *testing.T) {
	reg := NewRegistrationService(nil, "", newTestIdentityManager(t), nil, "", 0, "0.3.0", 15, zerolog.Nop())
	assert.False(t, reg.Enabled())
	assert.NoError(t, reg.RegisterOnce(context.Background()))
}

func TestHeartbeatFailureParksSample(t *testing.T) {
	central := newFakeCentral(t)
	central.heartbeatStatus = http.StatusServiceUnavailable
	buffer := newTestBuffer(t)

	hb := NewHeartbeatService(central.client(), "node-1", metrics.NewCollector("/"), buffer, nil, 60, zerolog.Nop())
	hb.beat(context.Background())

	count, err := buffer.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, central.backfilled)
}

func TestHeartbeat404KicksRegistration(t *testing.T) {
	central := newFakeCentral(t)
	central.heartbeatStatus = http.StatusNotFound

	reg := NewRegistrationService(central.client(), central.srv.URL, newTestIdentityManager(t), nil, "", 8470, "0.3.0", 15, zerolog.Nop())
	hb := NewHeartbeatService(central.client(), "node-1", metrics.NewCollector("/"), newTestBuffer(t), reg, 60, zerolog.Nop())
	hb.beat(context.Background())

	select {
	case <-reg.kick:
	default:
		t.Fatal("expected a re-registration request after 404")
	}
	// The heartbeat path itself must not have re-registered.
	assert.Equal(t, 0, central.registerCalls)
}

func TestHeartbeatSuccessFlushesBuffer(t *testing.T) {
	central := newFakeCentral(t)
	buffer := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, buffer.Add(ctx, metrics.Resource{CPUPercent: 42}, time.Now().Add(-time.Minute)))

	hb := NewHeartbeatService(central.client(), "node-1", metrics.NewCollector("/"), buffer, nil, 60, zerolog.Nop())
	hb.beat(ctx)

	assert.Equal(t, 1, central.heartbeats)
	require.Len(t, central.backfilled, 1)
	assert.Equal(t, 42.0, central.backfilled[0].CPUPercent)

	count, err := buffer.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
