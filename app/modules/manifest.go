// Package modules discovers and manages optional feature modules.
package modules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the descriptor file expected in each module directory.
const ManifestFileName = "manifest.yaml"

// EnabledMarkerName is the zero-byte sidecar marking a module enabled.
const EnabledMarkerName = ".enabled"

// Capabilities declares which surfaces a module ships.
type Capabilities struct {
	Backend  bool `yaml:"backend" json:"backend"`
	Web      bool `yaml:"web" json:"web"`
	Mobile   bool `yaml:"mobile" json:"mobile"`
	CLI      bool `yaml:"cli" json:"cli"`
	Realtime bool `yaml:"realtime" json:"realtime"`
}

// Dependencies declares what a module needs before it can run.
//
// CoreModules and PythonPackages are carried through discovery but reported
// as satisfied unconditionally by CheckDependencies: verifying them needs a
// package-manager contract the platform does not define yet. Only Modules
// entries are actually checked.
type Dependencies struct {
	CoreModules    []string `yaml:"core_modules" json:"core_modules"`
	Modules        []string `yaml:"modules" json:"modules"`
	PythonPackages []string `yaml:"python_packages" json:"python_packages"`
}

// Manifest is a module's descriptor file.
type Manifest struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Version      string       `yaml:"version" json:"version"`
	Description  string       `yaml:"description" json:"description,omitempty"`
	Author       string       `yaml:"author" json:"author,omitempty"`
	Icon         string       `yaml:"icon" json:"icon,omitempty"`
	Capabilities Capabilities `yaml:"capabilities" json:"capabilities"`
	Dependencies Dependencies `yaml:"dependencies" json:"dependencies"`

	// Platforms restricts where the module may run; empty = unrestricted.
	Platforms []string `yaml:"platforms" json:"platforms"`
}

// Module is a discovered module: its manifest plus filesystem state.
type Module struct {
	Manifest
	Dir     string `json:"dir"`
	Enabled bool   `json:"enabled"`
}

func parseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}
