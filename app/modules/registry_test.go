package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, root, dir, manifest string, enabled bool) {
	t.Helper()
	moduleDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(moduleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, ManifestFileName), []byte(manifest), 0o644))
	if enabled {
		require.NoError(t, os.WriteFile(filepath.Join(moduleDir, EnabledMarkerName), nil, 0o644))
	}
}

func discoveredRegistry(t *testing.T, root string) *Registry {
	t.Helper()
	r := NewRegistry(root, zerolog.Nop())
	errs := r.Discover()
	require.Empty(t, errs)
	return r
}

const documentsManifest = `
id: documents
name: Documents
version: "1.2.0"
capabilities:
  backend: true
  web: true
dependencies:
  core_modules: [core]
  modules: [storage]
  python_packages: [pillow]
platforms: []
`

const storageManifest = `
id: storage
name: Storage
version: "0.9.0"
capabilities:
  backend: true
platforms: [linux]
`

func TestDiscoverSkipsBrokenDirectories(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, false)
	writeModule(t, root, "broken", "id: [unclosed", false)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	r := NewRegistry(root, zerolog.Nop())
	errs := r.Discover()

	assert.Len(t, errs, 2, "broken manifest and missing manifest both reported")
	_, ok := r.Get("documents")
	assert.True(t, ok, "healthy module survives broken siblings")
	assert.Equal(t, 1, r.Stats().Total)
}

func TestDiscoverFallsBackToDirectoryName(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "recipes", "version: \"1.0\"\n", false)

	r := discoveredRegistry(t, root)

	mod, ok := r.Get("recipes")
	require.True(t, ok)
	assert.Equal(t, "recipes", mod.ID)
	assert.Equal(t, "recipes", mod.Name)
}

func TestEnableDisableIdempotent(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, false)
	r := discoveredRegistry(t, root)

	found, err := r.Enable("documents")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = r.Enable("documents")
	require.NoError(t, err)
	assert.True(t, found, "enabling twice is a no-op success")
	assert.Len(t, r.ListEnabled(), 1)

	found, err = r.Disable("documents")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = r.Disable("documents")
	require.NoError(t, err)
	assert.True(t, found, "disabling when already disabled is a no-op success")
	assert.Empty(t, r.ListEnabled())

	found, err = r.Enable("nope")
	require.NoError(t, err, "unknown id is not an error")
	assert.False(t, found)
	found, err = r.Disable("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEnableMarkerWriteFailureIsReportedAsError(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, false)
	r := discoveredRegistry(t, root)

	// Pull the module directory out from under the registry so the marker
	// create fails.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "documents")))

	found, err := r.Enable("documents")
	assert.True(t, found, "the id was known even though the marker write failed")
	require.Error(t, err)
}

func TestEnabledStateComesFromMarker(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, true)
	writeModule(t, root, "storage", storageManifest, false)

	r := discoveredRegistry(t, root)

	assert.Equal(t, []string{"documents"}, r.EnabledIDs())
	available := r.ListAvailable()
	require.Len(t, available, 1)
	assert.Equal(t, "storage", available[0].ID)
}

func TestCheckDependencies(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, true)
	writeModule(t, root, "storage", storageManifest, false)
	r := discoveredRegistry(t, root)

	deps, ok := r.CheckDependencies("documents")
	require.True(t, ok)

	assert.True(t, deps["core"], "core modules are reported satisfied unconditionally")
	assert.True(t, deps["pillow"], "external packages are reported satisfied unconditionally")
	assert.False(t, deps["storage"], "module deps require enabled state")

	r.Enable("storage")
	deps, _ = r.CheckDependencies("documents")
	assert.True(t, deps["storage"])

	_, ok = r.CheckDependencies("nope")
	assert.False(t, ok)
}

func TestCheckPlatformCompatibility(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, false)
	writeModule(t, root, "storage", storageManifest, false)
	r := discoveredRegistry(t, root)

	assert.True(t, r.CheckPlatformCompatibility("documents", "windows"), "empty list is unrestricted")
	assert.True(t, r.CheckPlatformCompatibility("storage", "linux"))
	assert.False(t, r.CheckPlatformCompatibility("storage", "windows"))
	assert.False(t, r.CheckPlatformCompatibility("nope", "linux"))
}

func TestBackendIntegrations(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "media-server", `
id: media-server
capabilities:
  backend: true
`, true)
	writeModule(t, root, "documents", documentsManifest, false)
	r := discoveredRegistry(t, root)

	assert.Equal(t, []string{"media_server"}, r.BackendIntegrations(),
		"disabled backend modules excluded, ids normalized")
}

func TestStats(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "documents", documentsManifest, true)
	writeModule(t, root, "storage", storageManifest, false)
	r := discoveredRegistry(t, root)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Enabled)
	assert.Equal(t, 1, stats.Available)
	assert.Equal(t, 2, stats.Backend)
	assert.Equal(t, 1, stats.Web)
	assert.Equal(t, 0, stats.Realtime)
}
