package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/dto"
	"homefleet/app/identity"
	"homefleet/app/modules"
)

// RegistrationService announces the node to the central registry and keeps
// the registration fresh. A nil central client disables it entirely: a node
// without a configured central runs standalone and never errors about it.
type RegistrationService struct {
	client      *CentralClient
	centralURL  string
	identityMgr *identity.Manager
	registry    *modules.Registry
	ipAddress   string
	port        int
	version     string
	interval    time.Duration
	log         zerolog.Logger

	kick chan struct{}
}

// NewRegistrationService creates a registration service. client may be nil
// when no central URL is configured.
func NewRegistrationService(client *CentralClient, centralURL string, identityMgr *identity.Manager,
	registry *modules.Registry, ipAddress string, port int, version string,
	intervalMin int, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		client:      client,
		centralURL:  centralURL,
		identityMgr: identityMgr,
		registry:    registry,
		ipAddress:   ipAddress,
		port:        port,
		version:     version,
		interval:    time.Duration(intervalMin) * time.Minute,
		log:         log,
		kick:        make(chan struct{}, 1),
	}
}

// Enabled reports whether a central is configured.
func (r *RegistrationService) Enabled() bool {
	return r.client != nil
}

// Kick schedules a re-registration on the next loop wakeup. Heartbeat uses
// it after a 404; the loop, not the heartbeat path, does the actual call.
func (r *RegistrationService) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Start runs registration once immediately, then re-registers on the slow
// interval and on every Kick. Failures are logged and retried next round.
func (r *RegistrationService) Start(ctx context.Context) {
	if !r.Enabled() {
		r.log.Info().Msg("no central configured, running standalone")
		return
	}

	if err := r.RegisterOnce(ctx); err != nil {
		r.log.Warn().Err(err).Msg("initial registration failed, will retry")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.kick:
		}
		if err := r.RegisterOnce(ctx); err != nil {
			r.log.Warn().Err(err).Msg("registration failed, will retry")
		}
	}
}

// RegisterOnce performs one registration round trip and persists the
// issued token into the identity file.
func (r *RegistrationService) RegisterOnce(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	ident := r.identityMgr.Current()
	if ident == nil {
		return fmt.Errorf("identity not loaded")
	}

	// Refresh the module list so the central sees what this node can host.
	if r.registry != nil {
		mods := r.registry.EnabledIDs()
		if err := r.identityMgr.UpdateCapabilities(identity.CapabilitiesPatch{AvailableModules: mods}); err != nil {
			r.log.Warn().Err(err).Msg("failed to refresh module capabilities")
		}
		ident = r.identityMgr.Current()
	}

	req := &dto.RegisterRequest{
		ID:           ident.UUID,
		Hostname:     ident.Hostname,
		NodeType:     string(ident.NodeType),
		Platform:     ident.Platform,
		IPAddress:    r.ipAddress,
		Port:         r.port,
		Version:      r.version,
		Capabilities: capabilitiesMap(ident.Capabilities),
	}

	token, created, err := r.client.Register(ctx, req)
	if err != nil {
		return err
	}

	if token != "" {
		r.client.GetHTTPClient().SetToken(token)
	}
	if err := r.identityMgr.RegisterWithCentral(r.centralURL, token); err != nil {
		return fmt.Errorf("failed to persist registration: %w", err)
	}

	if created {
		r.log.Info().Str("node_id", ident.UUID).Msg("registered with central")
	} else {
		r.log.Debug().Str("node_id", ident.UUID).Msg("registration refreshed")
	}
	return nil
}

func capabilitiesMap(caps identity.Capabilities) map[string]interface{} {
	data, err := json.Marshal(caps)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
