package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

func TestPackagesConfigAdapter_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packages.config")
	content := `<?xml version="1.0" encoding="utf-8"?>
<packages>
  <package id="7zip" version="19.0" forceX86="true" />
  <package id="git" installArguments="/NoShellIntegration" packageParameters="/GitOnlyOnPath" executionTimeout="600" pinPackage="True" />
  <package id="legacy" disabled="true" />
</packages>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	adapter := NewPackagesConfigAdapter()
	entries, err := adapter.Parse(path)
	require.NoError(t, err)

	want := []types.PackagesConfigEntry{
		{ID: "7zip", Version: "19.0", ForceX86: true},
		{ID: "git", InstallArguments: "/NoShellIntegration", PackageParameters: "/GitOnlyOnPath", Timeout: 600, PinPackage: true},
		{ID: "legacy", Disabled: true},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	cached, err := adapter.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, entries, cached)
}

func TestPackagesConfigAdapter_Errors(t *testing.T) {
	adapter := NewPackagesConfigAdapter()
	_, err := adapter.Parse(filepath.Join(t.TempDir(), "missing.config"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "in the location specified")

	path := filepath.Join(t.TempDir(), "bad.config")
	require.NoError(t, os.WriteFile(path, []byte(`<packages><package version="1.0" /></packages>`), 0o644))
	_, err = adapter.Parse(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
