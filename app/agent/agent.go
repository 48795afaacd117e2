// Package agent assembles the node-side runtime: identity, module
// discovery and the registration and heartbeat loops.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/clients"
	"homefleet/app/config"
	"homefleet/app/identity"
	"homefleet/app/metrics"
	"homefleet/app/modules"
	"homefleet/app/platform"
	"homefleet/app/services"
	"homefleet/app/utils"
	"homefleet/storage/sqlite"
)

// Version is the agent version advertised during registration.
const Version = "0.3.0"

// Agent is the assembled node runtime.
type Agent struct {
	cfg          *config.AgentConfig
	identityMgr  *identity.Manager
	registry     *modules.Registry
	buffer       *sqlite.BufferStore
	registration *services.RegistrationService
	heartbeat    *services.HeartbeatService
	log          zerolog.Logger
}

// Bootstrap detects the platform, loads or creates the node identity,
// discovers feature modules and wires the central client when a central
// URL is configured.
func Bootstrap(cfg *config.AgentConfig, log zerolog.Logger) (*Agent, error) {
	detector := platform.NewDetector()

	identityMgr := identity.NewManager(cfg.DataDir, detector, cfg.CentralHostname, log)
	ident, err := identityMgr.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	log.Info().Str("node_id", ident.UUID).Str("node_type", string(ident.NodeType)).Msg("node identity ready")

	registry := modules.NewRegistry(cfg.ModulesDir, log)
	for _, derr := range registry.Discover() {
		log.Warn().Str("dir", derr.Dir).Err(derr.Err).Msg("skipping broken module")
	}

	a := &Agent{
		cfg:         cfg,
		identityMgr: identityMgr,
		registry:    registry,
		log:         log,
	}

	if cfg.CentralURL == "" {
		return a, nil
	}

	// The offline buffer is best-effort. Without it the agent still
	// heartbeats; it just cannot park samples across central outages.
	buffer, err := sqlite.NewBufferStore(filepath.Join(cfg.DataDir, "buffer.db"))
	if err != nil {
		log.Warn().Err(err).Msg("could not open offline buffer, running without one")
		buffer = nil
	}
	a.buffer = buffer

	httpClient := clients.NewHTTPClient(cfg.CentralURL, ident.RegistrationToken,
		time.Duration(cfg.RequestTimeoutSec)*time.Second)
	client := services.NewCentralClient(httpClient)

	ip, err := utils.GetPrimaryIP()
	if err != nil {
		log.Warn().Err(err).Msg("could not determine primary IP")
	}

	a.registration = services.NewRegistrationService(client, cfg.CentralURL, identityMgr,
		registry, ip, cfg.Port, Version, cfg.RegistrationIntervalMin, log)
	a.heartbeat = services.NewHeartbeatService(client, ident.UUID,
		metrics.NewCollector("/"), buffer, a.registration, cfg.HeartbeatIntervalSec, log)

	return a, nil
}

// Identity returns the node's durable identity.
func (a *Agent) Identity() *identity.Identity {
	return a.identityMgr.Current()
}

// Modules returns the module registry.
func (a *Agent) Modules() *modules.Registry {
	return a.registry
}

// Run starts the background loops and blocks until the context is
// cancelled. In standalone mode there is nothing to run and it returns
// once the context ends.
func (a *Agent) Run(ctx context.Context) error {
	if a.buffer != nil {
		defer a.buffer.Close()
	}

	var wg sync.WaitGroup
	if a.registration != nil {
		wg.Add(1)
		go func() { defer wg.Done(); a.registration.Start(ctx) }()
	}
	if a.heartbeat != nil {
		wg.Add(1)
		go func() { defer wg.Done(); a.heartbeat.Start(ctx) }()
	}

	<-ctx.Done()
	wg.Wait()
	a.log.Info().Msg("agent stopped")
	return nil
}
