package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/types"
)

var archiveNamePattern = regexp.MustCompile(`^(?P<id>.+?)\.(?P<version>\d+(?:\.\d+)+(?:[-+].*)?)$`)

// ValidatePackageNames rejects names that point at files or directories
// instead of package ids. It runs before any source runner is consulted.
func ValidatePackageNames(cfg *types.OperationConfiguration, fileExists func(string) bool) error {
	names := cfg.PackageNameList()
	if len(names) == 0 {
		return invalidName(fmt.Sprintf("Package name is required. Please pass at least one package name to %s.", commandVerb(cfg)))
	}
	for _, name := range names {
		if IsPackagesConfig(name) {
			if cfg.CommandName != types.CommandInstall && cfg.CommandName != "" {
				return invalidName(fmt.Sprintf("Package name cannot be a packages.config file ('%s'). packages.config files are only supported with install.", name))
			}
			continue
		}
		lower := strings.ToLower(name)
		isArchive := strings.HasSuffix(lower, types.ArchiveExtension) || strings.HasSuffix(lower, types.ManifestExtension)
		if isArchive && fileExists(name) {
			return invalidName(fmt.Sprintf(
				"Package name cannot be a path to a file on a remote, or local file system.\n\nTo %s a local, or remote file, you may use:\n  %s",
				commandVerb(cfg), ExampleCommand(cfg, name)))
		}
		if strings.ContainsAny(name, `/\`) {
			return invalidName("Package name cannot point directly to a local, or remote file. Please use the --source argument and point it to a local file directory or a package feed instead.")
		}
	}
	return nil
}

// ExampleCommand suggests the equivalent id/version/source invocation for a
// local archive path.
func ExampleCommand(cfg *types.OperationConfiguration, archivePath string) string {
	dir := filepath.Dir(archivePath)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	base := filepath.Base(archivePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	id, version, ok := ParseArchiveName(stem)
	if !ok {
		return fmt.Sprintf("choco %s %s --source=\"%s\"", commandVerb(cfg), stem, dir)
	}
	return fmt.Sprintf("choco %s %s --version=\"%s\" --source=\"%s\"", commandVerb(cfg), id, version, dir)
}

// ParseArchiveName splits "<id>.<version>" as used by archive file names.
func ParseArchiveName(stem string) (string, string, bool) {
	match := archiveNamePattern.FindStringSubmatch(stem)
	if match == nil {
		return "", "", false
	}
	return match[archiveNamePattern.SubexpIndex("id")], match[archiveNamePattern.SubexpIndex("version")], true
}

func IsPackagesConfig(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), types.PackagesConfigSuffix)
}

func commandVerb(cfg *types.OperationConfiguration) string {
	if cfg.CommandName == "" {
		return string(types.CommandInstall)
	}
	return string(cfg.CommandName)
}

func invalidName(msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg)
}
