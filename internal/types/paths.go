package types

import "path/filepath"

type InstallPaths struct {
	Root               string
	Packages           string
	PackageFailures    string
	PackageBackups     string
	Extensions         string
	Templates          string
	Hooks              string
	Shims              string
	PackageInformation string
	Cache              string
}

func NewInstallPaths(root string) InstallPaths {
	root = filepath.Clean(root)
	return InstallPaths{
		Root:               root,
		Packages:           filepath.Join(root, "lib"),
		PackageFailures:    filepath.Join(root, "lib-bad"),
		PackageBackups:     filepath.Join(root, "lib-bkp"),
		Extensions:         filepath.Join(root, "extensions"),
		Templates:          filepath.Join(root, "templates"),
		Hooks:              filepath.Join(root, "hooks"),
		Shims:              filepath.Join(root, "bin"),
		PackageInformation: filepath.Join(root, ".chocolatey"),
		Cache:              filepath.Join(root, "cache"),
	}
}

func (p InstallPaths) PackageDir(name string) string {
	return filepath.Join(p.Packages, name)
}

// BackupDir maps a directory under Packages to its counterpart under
// PackageBackups.
func (p InstallPaths) BackupDir(installLocation string) string {
	return p.relocate(installLocation, p.PackageBackups)
}

func (p InstallPaths) FailureDir(installLocation string) string {
	return p.relocate(installLocation, p.PackageFailures)
}

func (p InstallPaths) relocate(installLocation, base string) string {
	rel, err := filepath.Rel(p.Packages, installLocation)
	if err != nil || rel == "." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return filepath.Join(base, filepath.Base(installLocation))
	}
	return filepath.Join(base, rel)
}
