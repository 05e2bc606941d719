package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// PendingAdapter writes the ".chocolateyPending" marker into a package
// directory and optionally holds an exclusive lock on it until the package
// is unmarked.
type PendingAdapter struct {
	mu    sync.Mutex
	locks map[string]*os.File
}

func NewPendingAdapter() *PendingAdapter {
	return &PendingAdapter{locks: map[string]*os.File{}}
}

func (a *PendingAdapter) MarkPending(result *types.PackageResult, lock bool) error {
	if strings.TrimSpace(result.InstallLocation) == "" {
		return nil
	}
	marker := filepath.Join(result.InstallLocation, types.PendingFileName)
	if err := os.WriteFile(marker, []byte(result.Name), 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write pending marker for " + result.Name).
			WithCause(err)
	}
	if !lock {
		return nil
	}
	f, err := os.OpenFile(marker, os.O_RDWR, 0o644)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open pending marker for " + result.Name).
			WithCause(err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("pending marker for " + result.Name + " is locked by another process").
			WithCause(err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locks[strings.ToLower(result.Name)] = f
	return nil
}

func (a *PendingAdapter) UnmarkPending(result *types.PackageResult) error {
	a.mu.Lock()
	key := strings.ToLower(result.Name)
	if f, ok := a.locks[key]; ok {
		_ = unlockFile(f)
		_ = f.Close()
		delete(a.locks, key)
	}
	a.mu.Unlock()

	if strings.TrimSpace(result.InstallLocation) == "" {
		return nil
	}
	marker := filepath.Join(result.InstallLocation, types.PendingFileName)
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove pending marker for " + result.Name).
			WithCause(err)
	}
	return nil
}

// StalePending lists package directories whose marker is not locked by a
// running install. Those are left over from an interrupted run.
func (a *PendingAdapter) StalePending(packagesDir string) ([]string, error) {
	entries, err := os.ReadDir(packagesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read " + packagesDir).
			WithCause(err)
	}
	var stale []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(packagesDir, entry.Name())
		marker := filepath.Join(dir, types.PendingFileName)
		if _, err := os.Stat(marker); err != nil {
			continue
		}
		if a.isHeld(entry.Name()) || markerLocked(marker) {
			continue
		}
		stale = append(stale, dir)
	}
	return stale, nil
}

func (a *PendingAdapter) isHeld(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.locks[strings.ToLower(name)]
	return ok
}

func markerLocked(marker string) bool {
	f, err := os.OpenFile(marker, os.O_RDWR, 0o644)
	if err != nil {
		return true
	}
	defer f.Close()
	if err := lockFile(f); err != nil {
		return true
	}
	_ = unlockFile(f)
	return false
}

var _ ports.PendingPort = (*PendingAdapter)(nil)
