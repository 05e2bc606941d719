package adapters

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/tests/testutil"
)

func TestParseNuspec_Dependencies(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<package xmlns="http://schemas.microsoft.com/packaging/2015/06/nuspec.xsd">
  <metadata>
    <id>app</id>
    <version>1.2.3</version>
    <dependencies>
      <group targetFramework="net48">
        <dependency id="lib" version="[1.0.0, 2.0.0)" />
        <dependency id="LIB" version="3.0" />
      </group>
      <group>
        <dependency id="other" />
      </group>
    </dependencies>
  </metadata>
</package>`)
	manifest, err := ParseNuspec(data)
	require.NoError(t, err)
	assert.Equal(t, "app", manifest.ID)
	assert.Equal(t, "1.2.3", manifest.Version)
	want := []PackageDependency{{ID: "lib", MinVersion: "1.0.0"}, {ID: "other"}}
	if diff := cmp.Diff(want, manifest.Dependencies); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNuspec_RequiresIDAndVersion(t *testing.T) {
	_, err := ParseNuspec([]byte(`<package><metadata><id>x</id></metadata></package>`))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestWriteArchiveAndExtract(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "demo.nuspec"), []byte(testutil.Nuspec(testutil.TestPackage{ID: "demo", Version: "2.0.0"})), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "tools", "chocolateyInstall.sh"), []byte("echo hi\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "stale.1.0.0.nupkg"), []byte("old"), 0o644))

	archive, err := WriteArchive(filepath.Join(src, "demo.nuspec"), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src, "demo.2.0.0.nupkg"), archive)

	manifest, err := ReadArchiveManifest(archive)
	require.NoError(t, err)
	assert.Equal(t, "demo", manifest.ID)

	dest := t.TempDir()
	require.NoError(t, ExtractArchive(archive, dest))
	assert.FileExists(t, filepath.Join(dest, "demo.nuspec"))
	assert.FileExists(t, filepath.Join(dest, "tools", "chocolateyInstall.sh"))
	assert.NoFileExists(t, filepath.Join(dest, "stale.1.0.0.nupkg"))
}

func TestExtractArchive_SkipsMetadataAndRejectsEscapes(t *testing.T) {
	archive := testutil.WritePackage(t, t.TempDir(), testutil.TestPackage{ID: "pkg", Version: "1.0.0", Files: map[string]string{
		"_rels/.rels": "rels",
		"package/services/metadata/core-properties/x.psmdcp": "meta",
		"tools/run.txt": "run",
	}})
	dest := t.TempDir()
	require.NoError(t, ExtractArchive(archive, dest))
	assert.FileExists(t, filepath.Join(dest, "tools", "run.txt"))
	assert.NoDirExists(t, filepath.Join(dest, "_rels"))
	assert.NoDirExists(t, filepath.Join(dest, "package"))
	assert.NoFileExists(t, filepath.Join(dest, "[Content_Types].xml"))

	evil := filepath.Join(t.TempDir(), "evil.nupkg")
	out, err := os.Create(evil)
	require.NoError(t, err)
	writer := zip.NewWriter(out)
	entry, err := writer.Create("../../escape.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, out.Close())

	escapeDest := t.TempDir()
	err = ExtractArchive(evil, escapeDest)
	if err != nil {
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	}
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(escapeDest)), "escape.txt"))
}

func TestReadArchiveManifest_MissingNuspec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.nupkg")
	out, err := os.Create(path)
	require.NoError(t, err)
	writer := zip.NewWriter(out)
	_, err = writer.Create("tools/readme.txt")
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, out.Close())

	_, err = ReadArchiveManifest(path)
	require.Error(t, err)
}
