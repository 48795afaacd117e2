package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homefleet/app/platform"
)

const identityFileName = "identity.json"

// Detector yields a platform snapshot. Satisfied by *platform.Detector.
type Detector interface {
	Detect() platform.Snapshot
}

// Manager handles identity creation and file persistence. One Manager owns
// the identity file; it is constructed once at process start and passed to
// dependents.
type Manager struct {
	path            string
	detector        Detector
	centralHostname string
	log             zerolog.Logger

	current *Identity
}

// NewManager creates a new identity manager storing its record under dataDir.
func NewManager(dataDir string, detector Detector, centralHostname string, log zerolog.Logger) *Manager {
	return &Manager{
		path:            filepath.Join(dataDir, identityFileName),
		detector:        detector,
		centralHostname: centralHostname,
		log:             log,
	}
}

// Current returns the identity loaded or created by this manager.
func (m *Manager) Current() *Identity {
	return m.current
}

// LoadOrCreate returns the persisted identity, refreshing last_seen, or
// creates a fresh one when no usable record exists. A corrupt record is
// logged and replaced rather than surfaced as a fatal error.
func (m *Manager) LoadOrCreate() (*Identity, error) {
	ident, err := m.load()
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).
			Msg("identity record unreadable, generating a new identity")
		ident = nil
	}

	if ident == nil {
		return m.Create()
	}

	if now := time.Now().UTC(); now.After(ident.LastSeen) {
		ident.LastSeen = now
	}
	if err := m.save(ident); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	m.current = ident
	return ident, nil
}

// Create detects the platform, classifies the node and persists a brand new
// identity with a fresh UUID.
func (m *Manager) Create() (*Identity, error) {
	snap := m.detector.Detect()
	now := time.Now().UTC()

	ident := &Identity{
		Version:      schemaVersion,
		UUID:         uuid.NewString(),
		NodeType:     classifyNodeType(snap, m.centralHostname),
		Hostname:     snap.Hostname,
		Platform:     snap.OSFamily,
		Capabilities: capabilitiesFromSnapshot(snap),
		CreatedAt:    now,
		LastSeen:     now,
	}

	if err := m.save(ident); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	m.log.Info().Str("uuid", ident.UUID).Str("node_type", string(ident.NodeType)).
		Msg("created node identity")

	m.current = ident
	return ident, nil
}

// UpdateCapabilities merges the supplied fields, bumps last_seen and
// persists.
func (m *Manager) UpdateCapabilities(patch CapabilitiesPatch) error {
	if m.current == nil {
		return fmt.Errorf("identity not loaded")
	}

	m.current.Capabilities.apply(patch)
	if now := time.Now().UTC(); now.After(m.current.LastSeen) {
		m.current.LastSeen = now
	}
	return m.save(m.current)
}

// RegisterWithCentral records the coordinator URL and token locally. The
// network call itself is the agent's responsibility.
func (m *Manager) RegisterWithCentral(url, token string) error {
	if m.current == nil {
		return fmt.Errorf("identity not loaded")
	}

	m.current.RegisteredTo = url
	m.current.RegistrationToken = token
	return m.save(m.current)
}

func (m *Manager) load() (*Identity, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	var ident Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	if ident.UUID == "" {
		return nil, fmt.Errorf("identity record has no uuid")
	}

	return &ident, nil
}

// save replaces the identity file wholesale.
func (m *Manager) save(ident *Identity) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(ident, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}

	return nil
}

// classifyNodeType applies the classification heuristic, first match wins.
func classifyNodeType(snap platform.Snapshot, centralHostname string) NodeType {
	switch {
	case snap.Hostname == centralHostname:
		return NodeCentral
	case snap.IsRaspberryPi:
		return NodeEdge
	case snap.OSFamily == "darwin" || snap.OSFamily == "windows":
		return NodeDesktop
	case snap.OSFamily == "linux" && snap.DeviceClass == platform.DeviceServer:
		return NodeLocal
	default:
		return NodeUnknown
	}
}

func capabilitiesFromSnapshot(snap platform.Snapshot) Capabilities {
	return Capabilities{
		HasGPU:                 snap.HasGPU,
		HasCamera:              snap.HasCamera,
		HasGPIO:                snap.HasGPIO,
		HasLoRa:                snap.HasLoRa,
		CanRunWebServer:        snap.SuitableForServer(),
		CanRunBackgroundWorker: snap.SuitableForEdge(),
		CanRunRealtimeChannel:  snap.SuitableForServer(),
		AvailableModules:       []string{},
		StorageGB:              snap.DiskTotalGB,
		RAMGB:                  snap.RAMTotalGB,
	}
}
