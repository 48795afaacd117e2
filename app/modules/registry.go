package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// DiscoveryError records one module directory that could not be loaded.
// Discovery continues past it.
type DiscoveryError struct {
	Dir string
	Err error
}

// Stats summarizes the registry contents.
type Stats struct {
	Total     int `json:"total"`
	Enabled   int `json:"enabled"`
	Available int `json:"available"`

	Backend  int `json:"backend"`
	Web      int `json:"web"`
	Mobile   int `json:"mobile"`
	CLI      int `json:"cli"`
	Realtime int `json:"realtime"`
}

// Registry tracks discovered modules and their enabled state. State is owned
// by the local node process; concurrent external marker mutation resolves
// last-write-wins.
type Registry struct {
	modulesDir string
	log        zerolog.Logger
	modules    map[string]*Module
}

// NewRegistry creates a registry over modulesDir. Call Discover before use.
func NewRegistry(modulesDir string, log zerolog.Logger) *Registry {
	return &Registry{
		modulesDir: modulesDir,
		log:        log,
		modules:    make(map[string]*Module),
	}
}

// Discover scans immediate subdirectories for manifests. Broken directories
// are logged, collected and skipped; the rest of the scan continues.
func (r *Registry) Discover() []DiscoveryError {
	r.modules = make(map[string]*Module)

	entries, err := os.ReadDir(r.modulesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []DiscoveryError{{Dir: r.modulesDir, Err: err}}
	}

	var errs []DiscoveryError
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(r.modulesDir, entry.Name())
		manifest, err := parseManifest(filepath.Join(dir, ManifestFileName))
		if err != nil {
			r.log.Warn().Err(err).Str("dir", dir).Msg("skipping module directory")
			errs = append(errs, DiscoveryError{Dir: dir, Err: err})
			continue
		}

		if manifest.ID == "" {
			manifest.ID = entry.Name()
		}
		if manifest.Name == "" {
			manifest.Name = manifest.ID
		}

		mod := &Module{
			Manifest: *manifest,
			Dir:      dir,
			Enabled:  markerPresent(dir),
		}
		r.modules[mod.ID] = mod
	}

	return errs
}

// Get returns a module by id.
func (r *Registry) Get(id string) (*Module, bool) {
	mod, ok := r.modules[id]
	return mod, ok
}

// ListAll returns every discovered module, ordered by id.
func (r *Registry) ListAll() []*Module {
	out := make([]*Module, 0, len(r.modules))
	for _, mod := range r.modules {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListEnabled returns modules with the enabled marker present.
func (r *Registry) ListEnabled() []*Module {
	return r.filter(func(m *Module) bool { return m.Enabled })
}

// ListAvailable returns discovered modules that are not enabled.
func (r *Registry) ListAvailable() []*Module {
	return r.filter(func(m *Module) bool { return !m.Enabled })
}

// Enable creates the enabled marker. Enabling an already-enabled module is a
// no-op success. Returns false only for an unknown id; a marker write
// failure is reported through the error.
func (r *Registry) Enable(id string) (bool, error) {
	mod, ok := r.modules[id]
	if !ok {
		return false, nil
	}

	path := filepath.Join(mod.Dir, EnabledMarkerName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return true, fmt.Errorf("failed to write enabled marker: %w", err)
	}
	f.Close()

	mod.Enabled = true
	return true, nil
}

// Disable removes the enabled marker. Disabling a never-enabled module is a
// no-op success. Returns false only for an unknown id; a marker removal
// failure is reported through the error.
func (r *Registry) Disable(id string) (bool, error) {
	mod, ok := r.modules[id]
	if !ok {
		return false, nil
	}

	if err := os.Remove(filepath.Join(mod.Dir, EnabledMarkerName)); err != nil && !os.IsNotExist(err) {
		return true, fmt.Errorf("failed to remove enabled marker: %w", err)
	}

	mod.Enabled = false
	return true, nil
}

// CheckDependencies reports satisfaction per declared dependency. Module
// dependencies are satisfied iff the module exists and is enabled;
// core_modules and python_packages are reported satisfied unconditionally
// (see Dependencies).
func (r *Registry) CheckDependencies(id string) (map[string]bool, bool) {
	mod, ok := r.modules[id]
	if !ok {
		return nil, false
	}

	result := make(map[string]bool)
	for _, dep := range mod.Dependencies.CoreModules {
		result[dep] = true
	}
	for _, dep := range mod.Dependencies.PythonPackages {
		result[dep] = true
	}
	for _, dep := range mod.Dependencies.Modules {
		other, exists := r.modules[dep]
		result[dep] = exists && other.Enabled
	}

	return result, true
}

// CheckPlatformCompatibility reports whether a module may run on the given
// platform. An empty platforms list means unrestricted.
func (r *Registry) CheckPlatformCompatibility(id, platform string) bool {
	mod, ok := r.modules[id]
	if !ok {
		return false
	}

	if len(mod.Platforms) == 0 {
		return true
	}
	for _, p := range mod.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// BackendIntegrations returns integration identifiers for enabled modules
// that ship a backend surface.
func (r *Registry) BackendIntegrations() []string {
	var out []string
	for _, mod := range r.ListEnabled() {
		if mod.Capabilities.Backend {
			out = append(out, strings.ReplaceAll(mod.ID, "-", "_"))
		}
	}
	return out
}

// EnabledIDs returns the ids of enabled modules, ordered.
func (r *Registry) EnabledIDs() []string {
	enabled := r.ListEnabled()
	ids := make([]string, len(enabled))
	for i, mod := range enabled {
		ids[i] = mod.ID
	}
	return ids
}

// Stats returns totals and per-capability counts.
func (r *Registry) Stats() Stats {
	stats := Stats{}
	for _, mod := range r.modules {
		stats.Total++
		if mod.Enabled {
			stats.Enabled++
		} else {
			stats.Available++
		}
		if mod.Capabilities.Backend {
			stats.Backend++
		}
		if mod.Capabilities.Web {
			stats.Web++
		}
		if mod.Capabilities.Mobile {
			stats.Mobile++
		}
		if mod.Capabilities.CLI {
			stats.CLI++
		}
		if mod.Capabilities.Realtime {
			stats.Realtime++
		}
	}
	return stats
}

func (r *Registry) filter(keep func(*Module) bool) []*Module {
	var out []*Module
	for _, mod := range r.ListAll() {
		if keep(mod) {
			out = append(out, mod)
		}
	}
	return out
}

func markerPresent(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, EnabledMarkerName))
	return err == nil
}
