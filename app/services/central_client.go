// Package services holds the agent's background loops and the central's
// domain services.
package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"homefleet/app/clients"
	"homefleet/app/dto"
	"homefleet/app/metrics"
)

// CentralClient provides high-level API methods for the central registry.
type CentralClient struct {
	httpClient *clients.HTTPClient
}

// NewCentralClient creates a new central client.
func NewCentralClient(httpClient *clients.HTTPClient) *CentralClient {
	return &CentralClient{httpClient: httpClient}
}

// GetHTTPClient returns the underlying HTTP client (for token updates).
func (c *CentralClient) GetHTTPClient() *clients.HTTPClient {
	return c.httpClient
}

// Register registers the node and returns the issued token (empty when the
// central runs without auth) and whether the node was newly created.
func (c *CentralClient) Register(ctx context.Context, req *dto.RegisterRequest) (token string, created bool, err error) {
	var resp dto.RegisterResponse
	status, err := c.httpClient.PostJSON(ctx, "/api/v1/nodes/register/", req, &resp)
	if err != nil {
		return "", false, fmt.Errorf("failed to register: %w", err)
	}
	return resp.Token, status == http.StatusCreated, nil
}

// Heartbeat sends one resource sample as the node's liveness signal.
func (c *CentralClient) Heartbeat(ctx context.Context, nodeID string, res metrics.Resource) error {
	req := dto.HeartbeatRequest{
		CPUPercent:    res.CPUPercent,
		MemoryPercent: res.MemoryPercent,
		MemoryUsedMB:  res.MemoryUsedMB,
		DiskPercent:   res.DiskPercent,
		DiskUsedGB:    res.DiskUsedGB,
	}
	_, err := c.httpClient.PostJSON(ctx, fmt.Sprintf("/api/v1/nodes/%s/heartbeat/", nodeID), req, nil)
	return err
}

// PushMetrics backfills samples that were buffered while the central was
// unreachable. Returns the number of samples the central accepted.
func (c *CentralClient) PushMetrics(ctx context.Context, nodeID string, samples []dto.MetricSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var resp dto.PushMetricsResponse
	_, err := c.httpClient.PostJSON(ctx, fmt.Sprintf("/api/v1/nodes/%s/metrics/", nodeID),
		dto.PushMetricsRequest{Samples: samples}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Accepted, nil
}

// ListNodes fetches the fleet view, used by the CLI.
func (c *CentralClient) ListNodes(ctx context.Context) (*dto.ListNodesResponse, error) {
	var resp dto.ListNodesResponse
	if _, err := c.httpClient.GetJSON(ctx, "/api/v1/nodes/", &resp); err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return &resp, nil
}

// GetNode fetches one node's detail, used by the CLI.
func (c *CentralClient) GetNode(ctx context.Context, nodeID string) (*dto.NodeDetailResponse, error) {
	var resp dto.NodeDetailResponse
	if _, err := c.httpClient.GetJSON(ctx, fmt.Sprintf("/api/v1/nodes/%s/", nodeID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return &resp, nil
}

// sampleFromResource converts a buffered resource reading to its wire form.
func sampleFromResource(res metrics.Resource, at time.Time) dto.MetricSample {
	return dto.MetricSample{
		CPUPercent:    res.CPUPercent,
		MemoryPercent: res.MemoryPercent,
		MemoryUsedMB:  res.MemoryUsedMB,
		DiskPercent:   res.DiskPercent,
		DiskUsedGB:    res.DiskUsedGB,
		RecordedAt:    at.UTC().Format(time.RFC3339),
	}
}
