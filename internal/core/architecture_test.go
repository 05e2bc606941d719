package core

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte("bin"), 0o644))
}

func TestPlanIgnoreFilesBothArchitectures(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/lib/tool"
	writeFile(t, fsys, filepath.Join(dir, "tools", "x86", "tool.exe"))
	writeFile(t, fsys, filepath.Join(dir, "tools", "x64", "tool.exe"))
	writeFile(t, fsys, filepath.Join(dir, "tools", "x64", "readme.txt"))

	plan, err := PlanIgnoreFiles(fsys, dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "tools", "x64", "tool.exe.ignore")}, plan)

	plan, err = PlanIgnoreFiles(fsys, dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "tools", "x86", "tool.exe.ignore")}, plan)
}

func TestPlanIgnoreFilesSingleArchitecture(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/lib/tool"
	writeFile(t, fsys, filepath.Join(dir, "tools", "x64", "tool.exe"))
	writeFile(t, fsys, filepath.Join(dir, "tools", "arm64", "tool.exe"))

	plan, err := PlanIgnoreFiles(fsys, dir, true)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanIgnoreFilesSkipsExistingMarkers(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/lib/tool"
	writeFile(t, fsys, filepath.Join(dir, "tools", "x86", "tool.exe"))
	writeFile(t, fsys, filepath.Join(dir, "tools", "x64", "tool.exe"))
	writeFile(t, fsys, filepath.Join(dir, "tools", "x64", "tool.exe.ignore"))

	plan, err := PlanIgnoreFiles(fsys, dir, true)
	require.NoError(t, err)
	assert.Empty(t, plan)
}
