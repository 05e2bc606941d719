// Package testutil provides shared test helpers used across integration
// and unit test packages.
package testutil

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// TestPackage describes a package archive written by WritePackage.
type TestPackage struct {
	ID           string
	Version      string
	Dependencies map[string]string
	Files        map[string]string
}

// WritePackage writes "<id>.<version>.nupkg" into feedDir and returns its path.
func WritePackage(t *testing.T, feedDir string, pkg TestPackage) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(feedDir, 0o755))
	archivePath := filepath.Join(feedDir, pkg.ID+"."+pkg.Version+".nupkg")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	defer out.Close()

	writer := zip.NewWriter(out)
	entry, err := writer.Create(pkg.ID + ".nuspec")
	require.NoError(t, err)
	_, err = entry.Write([]byte(Nuspec(pkg)))
	require.NoError(t, err)

	names := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(pkg.Files[name]))
		require.NoError(t, err)
	}
	entry, err = writer.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte("<Types/>"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return archivePath
}

// Nuspec renders the manifest document for pkg.
func Nuspec(pkg TestPackage) string {
	var deps strings.Builder
	ids := make([]string, 0, len(pkg.Dependencies))
	for id := range pkg.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if version := pkg.Dependencies[id]; version != "" {
			fmt.Fprintf(&deps, "      <dependency id=%q version=%q />\n", id, version)
		} else {
			fmt.Fprintf(&deps, "      <dependency id=%q />\n", id)
		}
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2015/06/nuspec.xsd">
  <metadata>
    <id>%s</id>
    <version>%s</version>
    <authors>test</authors>
    <description>%s test package</description>
    <dependencies>
%s    </dependencies>
  </metadata>
</package>
`, pkg.ID, pkg.Version, pkg.ID, deps.String())
}
