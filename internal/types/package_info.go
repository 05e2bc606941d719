package types

// RegistryApplicationKey is one entry from the installed-programs registry.
type RegistryApplicationKey struct {
	KeyPath              string `yaml:"key_path"`
	DisplayName          string `yaml:"display_name"`
	DisplayVersion       string `yaml:"display_version,omitempty"`
	Publisher            string `yaml:"publisher,omitempty"`
	InstallLocation      string `yaml:"install_location,omitempty"`
	UninstallString      string `yaml:"uninstall_string,omitempty"`
	QuietUninstallString string `yaml:"quiet_uninstall_string,omitempty"`
	InstallerType        string `yaml:"installer_type,omitempty"`
	ReleaseType          string `yaml:"release_type,omitempty"`
	ParentKeyName        string `yaml:"parent_key_name,omitempty"`
	SystemComponent      bool   `yaml:"system_component,omitempty"`
	WindowsInstaller     bool   `yaml:"windows_installer,omitempty"`
}

type RegistrySnapshot struct {
	User string                   `yaml:"user,omitempty"`
	Keys []RegistryApplicationKey `yaml:"keys,omitempty"`
}

type PackageFile struct {
	Path     string `yaml:"path"`
	Checksum string `yaml:"checksum"`
}

type FilesSnapshot struct {
	Files []PackageFile `yaml:"files,omitempty"`
}

// PackageInformation is the per-package record kept between commands.
type PackageInformation struct {
	Name               string            `yaml:"name"`
	Version            string            `yaml:"version,omitempty"`
	IsPinned           bool              `yaml:"is_pinned,omitempty"`
	HasSilentUninstall bool              `yaml:"has_silent_uninstall,omitempty"`
	Arguments          string            `yaml:"arguments,omitempty"`
	RegistrySnapshot   *RegistrySnapshot `yaml:"registry_snapshot,omitempty"`
	FilesSnapshot      *FilesSnapshot    `yaml:"files_snapshot,omitempty"`
}
