package core

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"choco-cli/internal/types"
)

var executableExtensions = map[string]struct{}{
	".exe": {},
	".com": {},
	".bat": {},
	".cmd": {},
}

// PlanIgnoreFiles lists the ".ignore" markers that hide the non-preferred
// architecture from shim generation. Only tools/x86 and tools/x64 are
// considered, and nothing is planned unless both contain executables.
func PlanIgnoreFiles(fsys afero.Fs, installDir string, prefer32Bit bool) ([]string, error) {
	toolsDir := filepath.Join(installDir, "tools")
	x86, err := executablesIn(fsys, filepath.Join(toolsDir, "x86"))
	if err != nil {
		return nil, err
	}
	x64, err := executablesIn(fsys, filepath.Join(toolsDir, "x64"))
	if err != nil {
		return nil, err
	}
	if len(x86) == 0 || len(x64) == 0 {
		return nil, nil
	}

	hidden := x86
	if prefer32Bit {
		hidden = x64
	}
	var plan []string
	for _, exe := range hidden {
		marker := exe + types.IgnoreFileSuffix
		if exists, _ := afero.Exists(fsys, marker); exists {
			continue
		}
		plan = append(plan, marker)
	}
	sort.Strings(plan)
	return plan, nil
}

func executablesIn(fsys afero.Fs, dir string) ([]string, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil || !exists {
		return nil, err
	}
	var out []string
	err = afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if IsExecutable(path, info.Mode()) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// IsExecutable accepts Windows executable extensions and files carrying any
// execute bit.
func IsExecutable(path string, mode fs.FileMode) bool {
	if _, ok := executableExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return true
	}
	return mode.IsRegular() && mode.Perm()&0o111 != 0
}
