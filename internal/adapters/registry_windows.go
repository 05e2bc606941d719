//go:build windows

package adapters

import (
	"context"
	"os/user"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows/registry"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

type uninstallRoot struct {
	hive registry.Key
	name string
	path string
}

var uninstallRoots = []uninstallRoot{
	{hive: registry.LOCAL_MACHINE, name: "HKEY_LOCAL_MACHINE", path: `Software\Microsoft\Windows\CurrentVersion\Uninstall`},
	{hive: registry.LOCAL_MACHINE, name: "HKEY_LOCAL_MACHINE", path: `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	{hive: registry.CURRENT_USER, name: "HKEY_CURRENT_USER", path: `Software\Microsoft\Windows\CurrentVersion\Uninstall`},
}

// RegistryAdapter reads installed programs from the Uninstall keys of the
// machine and current user hives.
type RegistryAdapter struct{}

func NewRegistryAdapter() RegistryAdapter {
	return RegistryAdapter{}
}

func (a RegistryAdapter) InstallerKeys(ctx context.Context) (types.RegistrySnapshot, error) {
	snapshot := types.RegistrySnapshot{}
	if current, err := user.Current(); err == nil {
		snapshot.User = current.Username
	}
	for _, root := range uninstallRoots {
		key, err := registry.OpenKey(root.hive, root.path, registry.READ)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("key", root.path).Msg("unable to open uninstall key")
			continue
		}
		names, err := key.ReadSubKeyNames(0)
		key.Close()
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("key", root.path).Msg("unable to read sub keys")
			continue
		}
		for _, name := range names {
			fullPath := root.path + `\` + name
			if app, ok := readApplicationKey(root.hive, fullPath); ok {
				app.KeyPath = root.name + `\` + fullPath
				snapshot.Keys = append(snapshot.Keys, app)
			}
		}
	}
	return snapshot, nil
}

func readApplicationKey(hive registry.Key, path string) (types.RegistryApplicationKey, bool) {
	key, err := registry.OpenKey(hive, path, registry.READ)
	if err != nil {
		return types.RegistryApplicationKey{}, false
	}
	defer key.Close()

	str := func(name string) string {
		value, _, err := key.GetStringValue(name)
		if err != nil {
			return ""
		}
		return value
	}
	flag := func(name string) bool {
		value, _, err := key.GetIntegerValue(name)
		return err == nil && value == 1
	}

	app := types.RegistryApplicationKey{
		DisplayName:          str("DisplayName"),
		DisplayVersion:       str("DisplayVersion"),
		Publisher:            str("Publisher"),
		InstallLocation:      str("InstallLocation"),
		UninstallString:      str("UninstallString"),
		QuietUninstallString: str("QuietUninstallString"),
		ReleaseType:          str("ReleaseType"),
		ParentKeyName:        str("ParentKeyName"),
		SystemComponent:      flag("SystemComponent"),
		WindowsInstaller:     flag("WindowsInstaller"),
	}
	if app.WindowsInstaller {
		app.InstallerType = "msi"
	}
	return app, app.DisplayName != ""
}

var _ ports.RegistryInspectorPort = RegistryAdapter{}
