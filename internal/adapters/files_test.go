package adapters

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

func memFile(t *testing.T, fsys afero.Fs, path, content string, perm uint32) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	require.NoError(t, fsys.Chmod(path, fileMode(perm)))
}

// -----------------------------------------------------------------------------
// Package files
// -----------------------------------------------------------------------------

func TestFilesAdapter_EnsureCompatibleFileAttributes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/choco/lib/tool"
	memFile(t, fsys, filepath.Join(dir, "tools", "install.sh"), "echo", 0o400)
	memFile(t, fsys, filepath.Join(dir, "tools", "data.txt"), "x", 0o444)

	adapter := NewFilesAdapter(fsys)
	require.NoError(t, adapter.EnsureCompatibleFileAttributes(context.Background(), types.NewPackageResult("tool", "1.0", dir)))

	info, err := fsys.Stat(filepath.Join(dir, "tools", "install.sh"))
	require.NoError(t, err)
	assert.Equal(t, fileMode(0o711), info.Mode().Perm())
	info, err = fsys.Stat(filepath.Join(dir, "tools", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, fileMode(0o644), info.Mode().Perm())
}

func TestFilesAdapter_WriteArchitectureIgnoreFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/choco/lib/tool"
	memFile(t, fsys, filepath.Join(dir, "tools", "x86", "tool.exe"), "32", 0o644)
	memFile(t, fsys, filepath.Join(dir, "tools", "x64", "tool.exe"), "64", 0o644)

	adapter := NewFilesAdapter(fsys)
	written, err := adapter.WriteArchitectureIgnoreFiles(context.Background(), types.NewPackageResult("tool", "1.0", dir), false)
	require.NoError(t, err)
	marker := filepath.Join(dir, "tools", "x86", "tool.exe.ignore")
	assert.Equal(t, []string{marker}, written)
	exists, err := afero.Exists(fsys, marker)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilesAdapter_WriteArchitectureIgnoreFilesSingleArchitecture(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/choco/lib/tool"
	memFile(t, fsys, filepath.Join(dir, "tools", "x86", "tool.exe"), "32", 0o644)

	adapter := NewFilesAdapter(fsys)
	written, err := adapter.WriteArchitectureIgnoreFiles(context.Background(), types.NewPackageResult("tool", "1.0", dir), false)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestFilesAdapter_CaptureSnapshot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/choco/lib/tool"
	memFile(t, fsys, filepath.Join(dir, "b.txt"), "bravo", 0o644)
	memFile(t, fsys, filepath.Join(dir, "a.txt"), "alpha", 0o644)
	memFile(t, fsys, filepath.Join(dir, types.PendingFileName), "tool", 0o644)

	adapter := NewFilesAdapter(fsys)
	snapshot, err := adapter.CaptureSnapshot(context.Background(), types.NewPackageResult("tool", "1.0", dir))
	require.NoError(t, err)
	require.Len(t, snapshot.Files, 2)
	assert.Equal(t, filepath.Join(dir, "a.txt"), snapshot.Files[0].Path)
	assert.Len(t, snapshot.Files[0].Checksum, 16)
	assert.NotEqual(t, snapshot.Files[0].Checksum, snapshot.Files[1].Checksum)

	again, err := adapter.CaptureSnapshot(context.Background(), types.NewPackageResult("tool", "1.0", dir))
	require.NoError(t, err)
	assert.Equal(t, snapshot, again)
}

func TestFilesAdapter_MissingLocationIsNoop(t *testing.T) {
	adapter := NewFilesAdapter(afero.NewMemMapFs())
	result := types.NewPackageResult("tool", "1.0", "")
	require.NoError(t, adapter.EnsureCompatibleFileAttributes(context.Background(), result))
	snapshot, err := adapter.CaptureSnapshot(context.Background(), result)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Files)
}

// -----------------------------------------------------------------------------
// Shims
// -----------------------------------------------------------------------------

func TestShimAdapter_InstallAndUninstall(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/choco/lib/tool"
	memFile(t, fsys, filepath.Join(dir, "tools", "tool.exe"), "bin", 0o644)
	memFile(t, fsys, filepath.Join(dir, "tools", "helper"), "bin", 0o755)
	memFile(t, fsys, filepath.Join(dir, "tools", "hidden.exe"), "bin", 0o644)
	memFile(t, fsys, filepath.Join(dir, "tools", "hidden.exe.ignore"), "", 0o644)
	memFile(t, fsys, filepath.Join(dir, "tools", "chocolateyInstall.sh"), "echo", 0o755)
	memFile(t, fsys, "/choco/bin/other", "#!/bin/sh\n# shim generated for package other\n", 0o755)

	adapter := NewShimAdapter(fsys, "/choco/bin")
	result := types.NewPackageResult("tool", "1.0", dir)
	created, err := adapter.Install(context.Background(), result)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/choco/bin/tool", "/choco/bin/helper"}, created)

	data, err := afero.ReadFile(fsys, "/choco/bin/tool")
	require.NoError(t, err)
	assert.Contains(t, string(data), `exec "`+filepath.Join(dir, "tools", "tool.exe")+`" "$@"`)

	require.NoError(t, adapter.Uninstall(context.Background(), result))
	for _, shim := range created {
		exists, _ := afero.Exists(fsys, shim)
		assert.False(t, exists, shim)
	}
	exists, _ := afero.Exists(fsys, "/choco/bin/other")
	assert.True(t, exists)
}

// -----------------------------------------------------------------------------
// File system
// -----------------------------------------------------------------------------

func TestFileSystemAdapter_CopyMoveDelete(t *testing.T) {
	root := t.TempDir()
	adapter := NewFileSystemAdapter(nil)
	src := filepath.Join(root, "src")
	require.NoError(t, adapter.WriteFile(filepath.Join(src, "a", "one.txt"), []byte("1")))
	require.NoError(t, adapter.WriteFile(filepath.Join(src, "two.txt"), []byte("2")))

	copied := filepath.Join(root, "copy")
	require.NoError(t, adapter.CopyDirectory(src, copied, true))
	data, err := adapter.ReadFile(filepath.Join(copied, "a", "one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.NoError(t, adapter.WriteFile(filepath.Join(src, "two.txt"), []byte("changed")))
	require.NoError(t, adapter.CopyDirectory(src, copied, false))
	data, err = adapter.ReadFile(filepath.Join(copied, "two.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))

	moved := filepath.Join(root, "moved")
	require.NoError(t, adapter.MoveDirectory(copied, moved))
	assert.False(t, adapter.DirectoryExists(copied))
	assert.True(t, adapter.FileExists(filepath.Join(moved, "two.txt")))

	files, err := adapter.ListFiles(moved)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(moved, "a", "one.txt"), filepath.Join(moved, "two.txt")}, files)

	require.NoError(t, adapter.DeleteFile(filepath.Join(moved, "missing.txt")))
	require.NoError(t, adapter.DeleteDirectory(moved))
	assert.False(t, adapter.DirectoryExists(moved))
}

func TestFileSystemAdapter_WriteCreatesParents(t *testing.T) {
	adapter := NewFileSystemAdapter(afero.NewMemMapFs())
	require.NoError(t, adapter.WriteFile("/deep/nested/file.txt", []byte("x")))
	assert.True(t, adapter.FileExists("/deep/nested/file.txt"))
	assert.False(t, adapter.FileExists("/deep/nested"))
	assert.True(t, adapter.DirectoryExists("/deep/nested"))
}

func fileMode(perm uint32) fs.FileMode {
	return fs.FileMode(perm)
}
