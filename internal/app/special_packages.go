package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/types"
)

const (
	lockedLibrarySuffix = ".dll.old"
	templateSuffix      = ".nuspec.template"
)

// specialPackage describes a package id suffix whose contents are mirrored
// into a shared folder under the install root.
type specialPackage struct {
	kind     string
	suffixes []string
	subdir   string
	root     func(types.InstallPaths) string
}

var specialPackages = []specialPackage{
	{kind: "extension", suffixes: []string{".extensions", ".extension"}, subdir: "extensions", root: func(p types.InstallPaths) string { return p.Extensions }},
	{kind: "template", suffixes: []string{".templates", ".template"}, subdir: "templates", root: func(p types.InstallPaths) string { return p.Templates }},
	{kind: "hook", suffixes: []string{".hooks", ".hook"}, subdir: "hook", root: func(p types.InstallPaths) string { return p.Hooks }},
}

// matchSpecialPackage returns the kind of special package name belongs to
// and the folder name it is mirrored to.
func matchSpecialPackage(name string) (specialPackage, string, bool) {
	lower := strings.ToLower(name)
	for _, special := range specialPackages {
		for _, suffix := range special.suffixes {
			if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
				return special, lower[:len(lower)-len(suffix)], true
			}
		}
	}
	return specialPackage{}, "", false
}

func (s Service) installSpecialPackage(ctx context.Context, result *types.PackageResult) {
	special, folder, ok := matchSpecialPackage(result.Name)
	if !ok || result.InstallLocation == "" {
		return
	}
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Str("kind", special.kind).Logger()
	target := filepath.Join(special.root(s.Paths), folder)

	if special.kind == "extension" {
		s.retireLockedLibraries(ctx, target)
	}
	if err := s.FileSystem.DeleteDirectory(target); err != nil {
		logger.Warn().Err(err).Str("path", target).Msg("unable to remove previous copy")
	}

	source := filepath.Join(result.InstallLocation, special.subdir)
	if !s.FileSystem.DirectoryExists(source) {
		source = result.InstallLocation
	}
	if err := s.FileSystem.CopyDirectory(source, target, true); err != nil {
		logger.Warn().Err(err).Str("path", target).Msg("unable to install package contents")
		return
	}
	if special.kind == "template" {
		s.renameTemplates(ctx, target)
	}
	logger.Info().Str("path", target).Msgf("Installed/updated %s %s.", folder, special.kind)
}

func (s Service) removeSpecialPackage(ctx context.Context, result *types.PackageResult) {
	special, folder, ok := matchSpecialPackage(result.Name)
	if !ok {
		return
	}
	target := filepath.Join(special.root(s.Paths), folder)
	if !s.FileSystem.DirectoryExists(target) {
		return
	}
	if special.kind == "extension" {
		s.retireLockedLibraries(ctx, target)
	}
	if err := s.FileSystem.DeleteDirectory(target); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", target).Msg("unable to remove package contents")
		return
	}
	log.Ctx(ctx).Info().Str("pkg", result.Name).Msgf("Uninstalled %s %s.", folder, special.kind)
}

// retireLockedLibraries clears stale ".dll.old" files and renames loaded
// libraries out of the way so the folder can be replaced while in use.
func (s Service) retireLockedLibraries(ctx context.Context, dir string) {
	if !s.FileSystem.DirectoryExists(dir) {
		return
	}
	files, err := s.FileSystem.ListFiles(dir)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", dir).Msg("unable to list extension files")
		return
	}
	for _, file := range files {
		lower := strings.ToLower(file)
		switch {
		case strings.HasSuffix(lower, lockedLibrarySuffix):
			_ = s.FileSystem.DeleteFile(file)
		case strings.HasSuffix(lower, ".dll"):
			if err := s.FileSystem.MoveFile(file, file+".old"); err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("path", file).Msg("unable to rename library")
			}
		}
	}
}

func (s Service) renameTemplates(ctx context.Context, dir string) {
	files, err := s.FileSystem.ListFiles(dir)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", dir).Msg("unable to list template files")
		return
	}
	for _, file := range files {
		if !strings.HasSuffix(strings.ToLower(file), templateSuffix) {
			continue
		}
		renamed := file[:len(file)-len(".template")]
		if err := s.FileSystem.MoveFile(file, renamed); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", file).Msg("unable to rename template")
		}
	}
}
