package adapters

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// FilesAdapter inspects and normalizes the files of an installed package.
type FilesAdapter struct {
	fs afero.Fs
}

func NewFilesAdapter(fsys afero.Fs) FilesAdapter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return FilesAdapter{fs: fsys}
}

// EnsureCompatibleFileAttributes makes package files owner-writable and
// shell scripts executable.
func (a FilesAdapter) EnsureCompatibleFileAttributes(ctx context.Context, result *types.PackageResult) error {
	if !a.hasLocation(result) {
		return nil
	}
	return a.walk(result.InstallLocation, func(path string, info fs.FileInfo) error {
		mode := info.Mode().Perm() | 0o600
		if strings.EqualFold(filepath.Ext(path), ".sh") {
			mode |= 0o111
		}
		if mode == info.Mode().Perm() {
			return nil
		}
		log.Ctx(ctx).Debug().Str("file", path).Str("mode", mode.String()).Msg("normalizing file attributes")
		return a.fs.Chmod(path, mode)
	})
}

func (a FilesAdapter) WriteArchitectureIgnoreFiles(ctx context.Context, result *types.PackageResult, prefer32Bit bool) ([]string, error) {
	if !a.hasLocation(result) {
		return nil, nil
	}
	plan, err := core.PlanIgnoreFiles(a.fs, result.InstallLocation, prefer32Bit)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to plan architecture ignore files").
			WithCause(err)
	}
	for _, marker := range plan {
		if err := afero.WriteFile(a.fs, marker, nil, 0o644); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write " + marker).
				WithCause(err)
		}
		log.Ctx(ctx).Debug().Str("file", marker).Msg("hiding non-preferred architecture")
	}
	return plan, nil
}

// CaptureSnapshot records an xxhash checksum for every package file.
func (a FilesAdapter) CaptureSnapshot(ctx context.Context, result *types.PackageResult) (types.FilesSnapshot, error) {
	snapshot := types.FilesSnapshot{}
	if !a.hasLocation(result) {
		return snapshot, nil
	}
	err := a.walk(result.InstallLocation, func(path string, info fs.FileInfo) error {
		if filepath.Base(path) == types.PendingFileName {
			return nil
		}
		sum, err := a.checksum(path)
		if err != nil {
			return err
		}
		snapshot.Files = append(snapshot.Files, types.PackageFile{Path: path, Checksum: sum})
		return nil
	})
	if err != nil {
		return types.FilesSnapshot{}, err
	}
	sort.Slice(snapshot.Files, func(i, j int) bool { return snapshot.Files[i].Path < snapshot.Files[j].Path })
	log.Ctx(ctx).Debug().Str("pkg", result.Name).Int("files", len(snapshot.Files)).Msg("captured files snapshot")
	return snapshot, nil
}

func (a FilesAdapter) checksum(path string) (string, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func (a FilesAdapter) hasLocation(result *types.PackageResult) bool {
	if strings.TrimSpace(result.InstallLocation) == "" {
		return false
	}
	ok, err := afero.DirExists(a.fs, result.InstallLocation)
	return err == nil && ok
}

func (a FilesAdapter) walk(root string, visit func(path string, info fs.FileInfo) error) error {
	err := afero.Walk(a.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return visit(path, info)
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to walk " + root).
			WithCause(err)
	}
	return nil
}

var _ ports.FilesPort = FilesAdapter{}
