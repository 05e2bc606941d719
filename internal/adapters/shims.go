package adapters

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const shimMarker = "# shim generated for package "

// ShimAdapter exposes package executables through wrapper scripts in the
// shims directory. Executables with a ".ignore" sibling are skipped.
type ShimAdapter struct {
	fs       afero.Fs
	shimsDir string
}

func NewShimAdapter(fsys afero.Fs, shimsDir string) ShimAdapter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return ShimAdapter{fs: fsys, shimsDir: shimsDir}
}

func (a ShimAdapter) Install(ctx context.Context, result *types.PackageResult) ([]string, error) {
	targets, err := a.executables(result)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	if err := a.fs.MkdirAll(a.shimsDir, 0o755); err != nil {
		return nil, shimError("failed to create shims directory", err)
	}
	var created []string
	for _, target := range targets {
		shim := filepath.Join(a.shimsDir, shimName(target))
		script := fmt.Sprintf("#!/bin/sh\n%s%s\nexec \"%s\" \"$@\"\n", shimMarker, result.Name, target)
		if err := afero.WriteFile(a.fs, shim, []byte(script), 0o755); err != nil {
			return created, shimError("failed to write shim "+shim, err)
		}
		log.Ctx(ctx).Info().Str("shim", shim).Str("target", target).Msg("added shim")
		created = append(created, shim)
	}
	return created, nil
}

// Uninstall removes every shim that was generated for the package.
func (a ShimAdapter) Uninstall(ctx context.Context, result *types.PackageResult) error {
	entries, err := afero.ReadDir(a.fs, a.shimsDir)
	if err != nil {
		return nil
	}
	marker := shimMarker + result.Name + "\n"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(a.shimsDir, entry.Name())
		data, err := afero.ReadFile(a.fs, path)
		if err != nil || !strings.Contains(string(data), marker) {
			continue
		}
		if err := a.fs.Remove(path); err != nil {
			return shimError("failed to remove shim "+path, err)
		}
		log.Ctx(ctx).Info().Str("shim", path).Msg("removed shim")
	}
	return nil
}

func (a ShimAdapter) executables(result *types.PackageResult) ([]string, error) {
	if strings.TrimSpace(result.InstallLocation) == "" {
		return nil, nil
	}
	if ok, _ := afero.DirExists(a.fs, result.InstallLocation); !ok {
		return nil, nil
	}
	var out []string
	err := afero.Walk(a.fs, result.InstallLocation, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !core.IsExecutable(path, info.Mode()) {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sh") {
			return nil
		}
		if ignored, _ := afero.Exists(a.fs, path+types.IgnoreFileSuffix); ignored {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, shimError("failed to scan package for executables", err)
	}
	return out, nil
}

func shimName(target string) string {
	base := filepath.Base(target)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func shimError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ShimPort = ShimAdapter{}
