package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

var (
	dismSuccessPattern = regexp.MustCompile(`The operation completed successfully`)
	dismUnknownPattern = regexp.MustCompile(`(?i)Feature name .* is unknown`)
	dismFeaturePattern = regexp.MustCompile(`^(\S+)\s+\|\s+(Enabled|Disabled|Enable Pending|Disable Pending|Disabled with Payload Removed)\s*$`)
	dismAllMinVersion  = version.Must(version.NewVersion("6.2"))
)

// WindowsFeaturesSourceRunner enables and disables optional Windows
// features through DISM.
type WindowsFeaturesSourceRunner struct {
	tool     externalTool
	platform ports.PlatformPort
	goos     string
}

func NewWindowsFeaturesSourceRunner(executor ports.CommandExecutorPort, exit *types.ExitStatus, platform ports.PlatformPort) *WindowsFeaturesSourceRunner {
	return &WindowsFeaturesSourceRunner{
		tool:     externalTool{sourceType: types.SourceTypeWindowsFeatures, executor: executor, exit: exit},
		platform: platform,
		goos:     runtime.GOOS,
	}
}

func (r *WindowsFeaturesSourceRunner) SourceType() types.SourceType {
	return types.SourceTypeWindowsFeatures
}

func (r *WindowsFeaturesSourceRunner) requireWindows() error {
	if r.goos == "windows" {
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("The windowsfeatures source is only available on Windows.")
}

// EnsureSourceAppInstalled only checks the platform; DISM ships with Windows.
func (r *WindowsFeaturesSourceRunner) EnsureSourceAppInstalled(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) error {
	return r.requireWindows()
}

// dismPath avoids file system redirection for 32-bit processes on 64-bit
// Windows.
func (r *WindowsFeaturesSourceRunner) dismPath(info types.PlatformInformation) string {
	systemRoot := shared.FirstNonEmpty(os.Getenv("SystemRoot"), `C:\Windows`)
	system := "System32"
	if info.Is64BitOperatingSystem && !info.Is64BitProcess {
		system = "Sysnative"
	}
	return filepath.Join(systemRoot, system, "dism.exe")
}

func (r *WindowsFeaturesSourceRunner) information(ctx context.Context) types.PlatformInformation {
	if r.platform == nil {
		return types.PlatformInformation{}
	}
	return r.platform.Information(ctx)
}

func (r *WindowsFeaturesSourceRunner) Count(ctx context.Context, cfg *types.OperationConfiguration) (int, error) {
	features, err := r.List(ctx, cfg)
	return len(features), err
}

func (r *WindowsFeaturesSourceRunner) List(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error) {
	if err := r.requireWindows(); err != nil {
		return nil, err
	}
	results := types.NewResultSet()
	listing := results.GetOrAdd("dism", func() *types.PackageResult { return r.tool.newResult("dism", "") })
	r.tool.run(ctx, cfg, toolInvocation{
		command: r.dismPath(r.information(ctx)),
		args:    []string{"/Online", "/English", "/Get-Features", "/Format:Table"},
		name:    "dism",
		parse: func(line string, _ toolInvocation, results *types.ResultSet) {
			match := dismFeaturePattern.FindStringSubmatch(strings.TrimSpace(line))
			if match == nil || !matchesListFilter(cfg, match[1]) {
				return
			}
			result := r.tool.newResult(match[1], "")
			result.AddNote(match[2])
			results.Put(result)
		},
		stdoutOnly: true,
	}, results)
	if !listing.Success {
		msg, _ := listing.FirstMessage(types.MessageKindError)
		return nil, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg.Text)
	}
	results.Delete("dism")
	return results.Results(), nil
}

func (r *WindowsFeaturesSourceRunner) InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have enabled Windows feature %s.", name)
	}
	return nil
}

func (r *WindowsFeaturesSourceRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	info := r.information(ctx)
	return r.modify(ctx, cfg, handler, info, "installed", func(name string) []string {
		args := []string{"/Online", "/English", "/NoRestart", "/Enable-Feature", "/FeatureName:" + name}
		if supportsAllFlag(info.PlatformVersion) {
			args = append(args, "/All")
		}
		return args
	})
}

func (r *WindowsFeaturesSourceRunner) UpgradeDryRun(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeWindowsFeatures, "Upgrade")
}

func (r *WindowsFeaturesSourceRunner) Upgrade(context.Context, *types.OperationConfiguration, ports.PackageResultHandler, ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeWindowsFeatures, "Upgrade")
}

func (r *WindowsFeaturesSourceRunner) UninstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have disabled Windows feature %s.", name)
	}
	return nil
}

func (r *WindowsFeaturesSourceRunner) Uninstall(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, r.information(ctx), "uninstalled", func(name string) []string {
		return []string{"/Online", "/English", "/NoRestart", "/Disable-Feature", "/FeatureName:" + name}
	})
}

func (r *WindowsFeaturesSourceRunner) modify(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, info types.PlatformInformation, verb string, args func(name string) []string) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	if err := r.requireWindows(); err != nil {
		return outcome, err
	}
	for _, name := range cfg.PackageNameList() {
		results := types.NewResultSet()
		r.tool.run(ctx, cfg, toolInvocation{
			command: r.dismPath(info),
			args:    args(name),
			name:    name,
			parse: func(line string, invocation toolInvocation, results *types.ResultSet) {
				result := results.GetOrAdd(invocation.name, func() *types.PackageResult {
					return r.tool.newResult(invocation.name, "")
				})
				switch {
				case dismSuccessPattern.MatchString(line):
					result.AddNote(fmt.Sprintf("%s has been %s successfully.", invocation.name, verb))
				case dismUnknownPattern.MatchString(line):
					result.AddError(fmt.Sprintf("%s: Not a known feature on this system.", invocation.name))
				}
			},
		}, results)
		if !finish(ctx, cfg, handler, results, &outcome) {
			return outcome, nil
		}
	}
	return outcome, nil
}

// supportsAllFlag reports whether DISM accepts /All, which first shipped
// with Windows 8 and Server 2012.
func supportsAllFlag(platformVersion string) bool {
	fields := strings.Fields(platformVersion)
	if len(fields) == 0 {
		return false
	}
	current, err := version.NewVersion(fields[0])
	if err != nil {
		return false
	}
	return current.GreaterThanOrEqual(dismAllMinVersion)
}

var _ ports.SourceRunnerPort = (*WindowsFeaturesSourceRunner)(nil)
