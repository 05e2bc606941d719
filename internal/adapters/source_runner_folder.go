package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// FolderSourceRunner is the normal source: packages are "<id>.<version>.nupkg"
// archives in local feed directories, installed by extraction into the
// package root.
type FolderSourceRunner struct {
	paths types.InstallPaths
	fs    ports.FileSystemPort
	info  ports.PackageInfoStorePort
}

func NewFolderSourceRunner(paths types.InstallPaths, fs ports.FileSystemPort, info ports.PackageInfoStorePort) *FolderSourceRunner {
	return &FolderSourceRunner{paths: paths, fs: fs, info: info}
}

type feedPackage struct {
	manifest NuspecManifest
	archive  string
	source   string
}

type installedPackage struct {
	manifest NuspecManifest
	dir      string
}

func (r *FolderSourceRunner) SourceType() types.SourceType {
	return types.SourceTypeNormal
}

func (r *FolderSourceRunner) EnsureSourceAppInstalled(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) error {
	return nil
}

func (r *FolderSourceRunner) Count(ctx context.Context, cfg *types.OperationConfiguration) (int, error) {
	packages, err := r.List(ctx, cfg)
	return len(packages), err
}

func (r *FolderSourceRunner) List(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error) {
	var out []*types.PackageResult
	if cfg.ListSettings.LocalOnly {
		for _, pkg := range r.installedPackages(ctx) {
			if !matchesListFilter(cfg, pkg.manifest.ID) {
				continue
			}
			result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, pkg.dir)
			result.SourceType = types.SourceTypeNormal
			out = append(out, result)
		}
		return out, nil
	}

	feed, err := r.feedPackages(ctx, cfg)
	if err != nil {
		return nil, err
	}
	byID := map[string][]feedPackage{}
	for _, pkg := range feed {
		if !cfg.Prerelease && core.IsPrerelease(types.SourceTypeNormal, pkg.manifest.Version) {
			continue
		}
		if !matchesListFilter(cfg, pkg.manifest.ID) {
			continue
		}
		key := strings.ToLower(pkg.manifest.ID)
		byID[key] = append(byID[key], pkg)
	}
	for _, versions := range byID {
		sort.Slice(versions, func(i, j int) bool {
			return core.CompareVersions(types.SourceTypeNormal, versions[i].manifest.Version, versions[j].manifest.Version) > 0
		})
		if !cfg.ListSettings.AllVersions {
			versions = versions[:1]
		}
		for _, pkg := range versions {
			result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, "")
			result.Source = pkg.source
			result.SourceType = types.SourceTypeNormal
			out = append(out, result)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func matchesListFilter(cfg *types.OperationConfiguration, id string) bool {
	names := cfg.PackageNameList()
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if cfg.ListSettings.Exact && strings.EqualFold(name, id) {
			return true
		}
		if !cfg.ListSettings.Exact && strings.Contains(strings.ToLower(id), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

func (r *FolderSourceRunner) InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) error {
	feed, err := r.feedPackages(ctx, cfg)
	if err != nil {
		return err
	}
	for _, name := range cfg.PackageNameList() {
		pkg, ok := r.findInFeed(cfg, feed, name, cfg.Version)
		if !ok {
			log.Ctx(ctx).Warn().Msgf("%s was not found with the source(s) listed.", name)
			continue
		}
		log.Ctx(ctx).Info().Msgf("Would have installed %s v%s from %s.", pkg.manifest.ID, pkg.manifest.Version, pkg.source)
		if handler != nil {
			result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, "")
			result.Source = pkg.source
			handler(ctx, result, cfg)
		}
	}
	return nil
}

func (r *FolderSourceRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, beforeModify ports.BeforeModifyHandler) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	feed, err := r.feedPackages(ctx, cfg)
	if err != nil {
		return outcome, err
	}
	visiting := map[string]bool{}
	for _, name := range cfg.PackageNameList() {
		if abort := r.installPackage(ctx, cfg, feed, name, cfg.Version, outcome.Results, handler, beforeModify, visiting); abort != nil {
			outcome.Abort = abort
			return outcome, nil
		}
	}
	return outcome, nil
}

func (r *FolderSourceRunner) installPackage(ctx context.Context, cfg *types.OperationConfiguration, feed []feedPackage, name, version string, results *types.ResultSet, handler ports.PackageResultHandler, beforeModify ports.BeforeModifyHandler, visiting map[string]bool) *types.BatchAbort {
	key := strings.ToLower(name)
	if visiting[key] {
		return nil
	}
	visiting[key] = true

	installed, isInstalled := r.installedPackage(ctx, name)
	if isInstalled && !cfg.Force && (version == "" || core.CompareVersions(types.SourceTypeNormal, version, installed.manifest.Version) == 0) {
		result := types.NewPackageResult(installed.manifest.ID, installed.manifest.Version, installed.dir)
		result.AddWarning(fmt.Sprintf("%s v%s already installed.\n Use --force to reinstall, specify a version to install, or try upgrade.", installed.manifest.ID, installed.manifest.Version))
		result.Inconclusive = true
		results.Put(result)
		return nil
	}

	pkg, ok := r.findInFeed(cfg, feed, name, version)
	if !ok {
		result := types.NewPackageResult(name, version, "")
		result.AddError(notFoundMessage(name, cfg))
		results.Put(result)
		return nil
	}

	if !cfg.IgnoreDependencies {
		for _, dep := range pkg.manifest.Dependencies {
			if current, ok := r.installedPackage(ctx, dep.ID); ok &&
				(dep.MinVersion == "" || core.CompareVersions(types.SourceTypeNormal, current.manifest.Version, dep.MinVersion) >= 0) {
				continue
			}
			depCfg := cfg.Clone()
			depCfg.PackageNames = dep.ID
			depCfg.Version = ""
			depCfg.Force = false
			depCfg.InstallSettings.InstallArguments = ""
			depCfg.InstallSettings.PackageParameters = ""
			if abort := r.installPackage(ctx, depCfg, feed, dep.ID, "", results, handler, beforeModify, visiting); abort != nil {
				return abort
			}
			if depResult, ok := results.Get(dep.ID); ok && !depResult.Success {
				result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, "")
				result.AddError(fmt.Sprintf("Unable to install %s because dependency %s failed.", pkg.manifest.ID, dep.ID))
				results.Put(result)
				return nil
			}
		}
	}

	installDir := r.paths.PackageDir(pkg.manifest.ID)
	if isInstalled {
		installDir = installed.dir
	}
	result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, installDir)
	result.Source = pkg.source
	result.SourceType = types.SourceTypeNormal
	if isInstalled {
		result.PreviousVersion = installed.manifest.Version
		if !r.replaceInstalled(ctx, cfg, result, installed, beforeModify) {
			results.Put(result)
			return nil
		}
	}

	log.Ctx(ctx).Info().Msgf("Installing %s v%s from %s", pkg.manifest.ID, pkg.manifest.Version, pkg.source)
	results.Put(result)
	if err := r.extract(pkg, result.InstallLocation); err != nil {
		result.AddError(fmt.Sprintf("Unable to extract %s: %v", pkg.archive, err))
		return nil
	}
	if handler != nil {
		return handler(ctx, result, cfg)
	}
	return nil
}

// replaceInstalled runs the before-modify hook, backs up the current
// install and clears it. It reports false when the result already failed.
func (r *FolderSourceRunner) replaceInstalled(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, installed installedPackage, beforeModify ports.BeforeModifyHandler) bool {
	next := result.Version
	result.Version = installed.manifest.Version
	if beforeModify != nil {
		beforeModify(ctx, result, cfg)
	}
	result.Version = next

	if err := r.backup(installed.dir); err != nil {
		result.AddError(fmt.Sprintf("Unable to back up %s: %v", installed.manifest.ID, err))
		return false
	}
	if err := r.fs.DeleteDirectory(installed.dir); err != nil {
		result.AddError(fmt.Sprintf("Unable to remove previous version of %s: %v", installed.manifest.ID, err))
		return false
	}
	return true
}

func (r *FolderSourceRunner) UpgradeDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) (types.RunOutcome, error) {
	return r.upgrade(ctx, cfg, handler, nil, true)
}

func (r *FolderSourceRunner) Upgrade(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, beforeModify ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.upgrade(ctx, cfg, handler, beforeModify, false)
}

func (r *FolderSourceRunner) upgrade(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, beforeModify ports.BeforeModifyHandler, dryRun bool) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	feed, err := r.feedPackages(ctx, cfg)
	if err != nil {
		return outcome, err
	}
	notifyOnly := dryRun || cfg.UpgradeSettings.NotifyOnlyAvailableUpgrades
	visiting := map[string]bool{}

	for _, name := range r.upgradeNames(ctx, cfg) {
		if cfg.IsExcepted(name) {
			continue
		}
		installed, ok := r.installedPackage(ctx, name)
		if !ok {
			if cfg.UpgradeSettings.FailOnNotInstalled {
				result := types.NewPackageResult(name, cfg.Version, "")
				result.AddError(fmt.Sprintf("%s is not installed. Cannot upgrade a non-existent package.", name))
				outcome.Results.Put(result)
				continue
			}
			if notifyOnly {
				result := types.NewPackageResult(name, cfg.Version, "")
				result.AddWarning(fmt.Sprintf("%s is not installed. Installing %s would be the next step.", name, name))
				result.Inconclusive = true
				outcome.Results.Put(result)
				continue
			}
			log.Ctx(ctx).Warn().Msgf("%s is not installed. Installing...", name)
			if abort := r.installPackage(ctx, cfg, feed, name, cfg.Version, outcome.Results, handler, beforeModify, visiting); abort != nil {
				outcome.Abort = abort
				return outcome, nil
			}
			continue
		}

		current := installed.manifest
		if !notifyOnly && r.isPinned(current.ID) {
			result := types.NewPackageResult(current.ID, current.Version, installed.dir)
			result.AddWarning(fmt.Sprintf("%s is pinned. Skipping pinned package.", current.ID))
			result.Inconclusive = true
			outcome.Results.Put(result)
			continue
		}

		pkg, found := r.findInFeed(cfg, feed, current.ID, cfg.Version)
		if !found {
			result := types.NewPackageResult(current.ID, current.Version, installed.dir)
			msg := fmt.Sprintf("%s was not found with the source(s) listed.", current.ID)
			if cfg.UpgradeSettings.FailOnUnfound {
				result.AddError(msg)
			} else {
				result.AddWarning(msg)
				result.Inconclusive = true
			}
			outcome.Results.Put(result)
			continue
		}

		cmp := core.CompareVersions(types.SourceTypeNormal, pkg.manifest.Version, current.Version)
		needed := cmp > 0 || (cmp == 0 && cfg.Force) || (cmp < 0 && cfg.AllowDowngrade && cfg.Version != "")
		if !needed {
			result := types.NewPackageResult(current.ID, current.Version, installed.dir)
			if cmp < 0 {
				result.AddWarning(fmt.Sprintf("A newer version of %s (v%s) is already installed.\n Use --allow-downgrade or --force to attempt to install older versions.", current.ID, current.Version))
			} else {
				result.AddNote(fmt.Sprintf("%s v%s is the latest version available based on your source(s).", current.ID, current.Version))
			}
			result.Inconclusive = true
			outcome.Results.Put(result)
			continue
		}

		if notifyOnly {
			result := types.NewPackageResult(current.ID, pkg.manifest.Version, installed.dir)
			result.PreviousVersion = current.Version
			result.Source = pkg.source
			result.AddNote(fmt.Sprintf("You have %s v%s installed. Version %s is available based on your source(s).", current.ID, current.Version, pkg.manifest.Version))
			outcome.Results.Put(result)
			continue
		}

		result := types.NewPackageResult(pkg.manifest.ID, pkg.manifest.Version, installed.dir)
		result.PreviousVersion = current.Version
		result.Source = pkg.source
		result.SourceType = types.SourceTypeNormal
		outcome.Results.Put(result)
		if !r.replaceInstalled(ctx, cfg, result, installed, beforeModify) {
			continue
		}
		log.Ctx(ctx).Info().Msgf("Upgrading %s v%s to v%s", current.ID, current.Version, pkg.manifest.Version)
		if err := r.extract(pkg, result.InstallLocation); err != nil {
			result.AddError(fmt.Sprintf("Unable to extract %s: %v", pkg.archive, err))
			continue
		}
		if handler != nil {
			if abort := handler(ctx, result, cfg); abort != nil {
				outcome.Abort = abort
				return outcome, nil
			}
		}
	}
	return outcome, nil
}

func (r *FolderSourceRunner) upgradeNames(ctx context.Context, cfg *types.OperationConfiguration) []string {
	names := cfg.PackageNameList()
	if len(names) == 1 && strings.EqualFold(names[0], types.AllPackagesName) {
		names = nil
		for _, pkg := range r.installedPackages(ctx) {
			names = append(names, pkg.manifest.ID)
		}
	}
	return names
}

func (r *FolderSourceRunner) isPinned(name string) bool {
	if r.info == nil {
		return false
	}
	info, err := r.info.Get(name)
	return err == nil && info.IsPinned
}

func (r *FolderSourceRunner) UninstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		installed, ok := r.installedPackage(ctx, name)
		if !ok {
			log.Ctx(ctx).Warn().Msgf("%s is not installed. Cannot uninstall a non-existent package.", name)
			continue
		}
		log.Ctx(ctx).Info().Msgf("Would have uninstalled %s v%s.", installed.manifest.ID, installed.manifest.Version)
		if handler != nil {
			handler(ctx, types.NewPackageResult(installed.manifest.ID, installed.manifest.Version, installed.dir), cfg)
		}
	}
	return nil
}

func (r *FolderSourceRunner) Uninstall(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, beforeModify ports.BeforeModifyHandler) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	for _, name := range cfg.PackageNameList() {
		installed, ok := r.installedPackage(ctx, name)
		if !ok {
			result := types.NewPackageResult(name, cfg.Version, "")
			result.AddError(fmt.Sprintf("%s is not installed. Cannot uninstall a non-existent package.", name))
			outcome.Results.Put(result)
			continue
		}
		if cfg.Version != "" && core.CompareVersions(types.SourceTypeNormal, cfg.Version, installed.manifest.Version) != 0 {
			result := types.NewPackageResult(installed.manifest.ID, cfg.Version, "")
			result.AddError(fmt.Sprintf("%s v%s is not installed. Installed version is v%s.", installed.manifest.ID, cfg.Version, installed.manifest.Version))
			outcome.Results.Put(result)
			continue
		}

		result := types.NewPackageResult(installed.manifest.ID, installed.manifest.Version, installed.dir)
		result.SourceType = types.SourceTypeNormal
		outcome.Results.Put(result)
		if beforeModify != nil {
			beforeModify(ctx, result, cfg)
		}
		if err := r.backup(installed.dir); err != nil {
			result.AddError(fmt.Sprintf("Unable to back up %s: %v", installed.manifest.ID, err))
			continue
		}

		var abort *types.BatchAbort
		if handler != nil {
			abort = handler(ctx, result, cfg)
		}
		if result.Success {
			if err := r.fs.DeleteDirectory(installed.dir); err != nil {
				result.AddError(fmt.Sprintf("Unable to remove %s: %v", installed.dir, err))
			} else {
				_ = r.fs.DeleteDirectory(r.paths.BackupDir(installed.dir))
				result.AddNote(fmt.Sprintf("%s has been successfully uninstalled.", installed.manifest.ID))
				log.Ctx(ctx).Info().Msgf(" %s has been successfully uninstalled.", installed.manifest.ID)
			}
		}
		if abort != nil {
			outcome.Abort = abort
			return outcome, nil
		}
	}
	return outcome, nil
}

// Pack builds an archive from a nuspec. With no name given, the single
// nuspec in the working directory is used.
func (r *FolderSourceRunner) Pack(ctx context.Context, cfg *types.OperationConfiguration) (string, error) {
	nuspec := ""
	if names := cfg.PackageNameList(); len(names) > 0 {
		nuspec = names[0]
	} else {
		matches, _ := filepath.Glob("*" + types.ManifestExtension)
		if len(matches) != 1 {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("No nuspec specified and no single nuspec found in the current directory.")
		}
		nuspec = matches[0]
	}
	outputDir := cfg.PackSettings.OutputDirectory
	if outputDir == "" {
		outputDir = "."
	}
	archive, err := WriteArchive(nuspec, outputDir)
	if err != nil {
		return "", err
	}
	log.Ctx(ctx).Info().Msgf("Successfully created package '%s'", archive)
	return archive, nil
}

// Push publishes an archive into a local feed directory.
func (r *FolderSourceRunner) Push(ctx context.Context, cfg *types.OperationConfiguration) error {
	names := cfg.PackageNameList()
	if len(names) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("A package archive is required to push.")
	}
	archive := names[0]
	manifest, err := ReadArchiveManifest(archive)
	if err != nil {
		return err
	}
	sources := cfg.SourceList()
	if len(sources) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("A source is required to push. Pass --source.")
	}
	target := sources[0]
	if !r.fs.DirectoryExists(target) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("Source '%s' is not a local feed directory; pushing to remote feeds is not supported.", target))
	}
	dest := filepath.Join(target, ArchiveFileName(manifest.ID, manifest.Version))
	if err := copyArchiveFile(archive, dest); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Msgf("%s v%s was pushed successfully to %s", manifest.ID, manifest.Version, target)
	return nil
}

func (r *FolderSourceRunner) feedPackages(ctx context.Context, cfg *types.OperationConfiguration) ([]feedPackage, error) {
	var out []feedPackage
	for _, source := range cfg.SourceList() {
		if !r.fs.DirectoryExists(source) {
			log.Ctx(ctx).Debug().Str("source", source).Msg("source is not a local feed directory, skipping")
			continue
		}
		files, err := r.fs.ListFiles(source)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if !strings.HasSuffix(strings.ToLower(file), types.ArchiveExtension) {
				continue
			}
			manifest, err := ReadArchiveManifest(file)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("archive", file).Msg("skipping unreadable package archive")
				continue
			}
			out = append(out, feedPackage{manifest: manifest, archive: file, source: source})
		}
	}
	return out, nil
}

func (r *FolderSourceRunner) findInFeed(cfg *types.OperationConfiguration, feed []feedPackage, id, version string) (feedPackage, bool) {
	var candidates []feedPackage
	for _, pkg := range feed {
		if !strings.EqualFold(pkg.manifest.ID, id) {
			continue
		}
		if version != "" {
			if core.CompareVersions(types.SourceTypeNormal, pkg.manifest.Version, version) == 0 {
				return pkg, true
			}
			continue
		}
		if !cfg.Prerelease && core.IsPrerelease(types.SourceTypeNormal, pkg.manifest.Version) {
			continue
		}
		candidates = append(candidates, pkg)
	}
	if len(candidates) == 0 {
		return feedPackage{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return core.CompareVersions(types.SourceTypeNormal, candidates[i].manifest.Version, candidates[j].manifest.Version) > 0
	})
	return candidates[0], true
}

func (r *FolderSourceRunner) installedPackages(ctx context.Context) []installedPackage {
	entries, err := os.ReadDir(r.paths.Packages)
	if err != nil {
		return nil
	}
	var out []installedPackage
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.paths.Packages, entry.Name())
		archives, _ := filepath.Glob(filepath.Join(dir, "*"+types.ArchiveExtension))
		if len(archives) == 0 {
			continue
		}
		manifest, err := ReadArchiveManifest(archives[0])
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("dir", dir).Msg("skipping package without a readable archive")
			continue
		}
		out = append(out, installedPackage{manifest: manifest, dir: dir})
	}
	return out
}

func (r *FolderSourceRunner) installedPackage(ctx context.Context, name string) (installedPackage, bool) {
	for _, pkg := range r.installedPackages(ctx) {
		if strings.EqualFold(pkg.manifest.ID, name) {
			return pkg, true
		}
	}
	return installedPackage{}, false
}

func (r *FolderSourceRunner) extract(pkg feedPackage, dir string) error {
	if err := r.fs.EnsureDirectory(dir); err != nil {
		return err
	}
	if err := ExtractArchive(pkg.archive, dir); err != nil {
		return err
	}
	return copyArchiveFile(pkg.archive, filepath.Join(dir, pkg.manifest.ID+types.ArchiveExtension))
}

func (r *FolderSourceRunner) backup(dir string) error {
	backupDir := r.paths.BackupDir(dir)
	if err := r.fs.DeleteDirectory(backupDir); err != nil {
		return err
	}
	return r.fs.CopyDirectory(dir, backupDir, true)
}

func notFoundMessage(name string, cfg *types.OperationConfiguration) string {
	return fmt.Sprintf("%s not installed. The package was not found with the source(s) listed.\n Source(s): '%s'\n NOTE: When you specify explicit sources, it overrides default sources.\nIf the package version is a prerelease and you didn't specify `--pre`,\n the package may not be found.", name, cfg.Sources)
}

var (
	_ ports.SourceRunnerPort = (*FolderSourceRunner)(nil)
	_ ports.PackagingPort    = (*FolderSourceRunner)(nil)
)
