package adapters

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/host"
	"golang.org/x/term"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

type PlatformAdapter struct{}

func NewPlatformAdapter() PlatformAdapter {
	return PlatformAdapter{}
}

func (a PlatformAdapter) Information(ctx context.Context) types.PlatformInformation {
	info := types.PlatformInformation{
		PlatformType:           platformType(runtime.GOOS),
		Is64BitProcess:         strconv.IntSize == 64,
		Is64BitOperatingSystem: strconv.IntSize == 64,
		IsInteractive:          term.IsTerminal(int(os.Stdin.Fd())),
		IsUserAdministrator:    os.Geteuid() == 0,
	}
	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("unable to read host information")
		return info
	}
	info.PlatformVersion = stat.PlatformVersion
	if stat.KernelArch != "" {
		info.Is64BitOperatingSystem = strings.Contains(stat.KernelArch, "64")
	}
	return info
}

func platformType(goos string) types.PlatformType {
	switch goos {
	case "windows":
		return types.PlatformWindows
	case "linux":
		return types.PlatformLinux
	case "darwin":
		return types.PlatformMac
	default:
		return types.PlatformUnknown
	}
}

var _ ports.PlatformPort = PlatformAdapter{}
