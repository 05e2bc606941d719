package policies

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/types"
)

// FailurePlan lists what failure handling may do to a failed package.
type FailurePlan struct {
	Quarantine bool
	Rollback   bool
	Prompt     bool
	Abort      bool
}

// PlanFailure decides the recovery steps for a failed result. An unsafe
// install location yields an error and an empty plan.
func PlanFailure(cfg *types.OperationConfiguration, result *types.PackageResult, paths types.InstallPaths, quarantine bool, rollback bool) (FailurePlan, error) {
	plan := FailurePlan{Abort: cfg.Features.StopOnFirstPackageFailure}
	if strings.TrimSpace(result.InstallLocation) == "" {
		return plan, nil
	}
	if !IsSafeRollbackTarget(result.InstallLocation, paths) {
		return plan, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("Install location is not specific enough, cannot move failed package or rollback previous version. Erroneous install location captured as '%s'.", result.InstallLocation))
	}
	plan.Quarantine = quarantine
	plan.Rollback = rollback
	plan.Prompt = rollback && cfg.PromptForConfirmation && cfg.Information.IsInteractive && !result.Abandoned
	return plan, nil
}

// IsSafeRollbackTarget reports whether a directory can be moved or replaced
// without touching the package root or the install root.
func IsSafeRollbackTarget(location string, paths types.InstallPaths) bool {
	if strings.TrimSpace(location) == "" {
		return false
	}
	clean := filepath.Clean(location)
	for _, root := range []string{paths.Packages, paths.Root} {
		if strings.EqualFold(clean, filepath.Clean(root)) {
			return false
		}
	}
	return true
}

func IsRebootExitCode(code int) bool {
	return code == types.ExitCodeRebootInitiated || code == types.ExitCodeRebootRequired
}

// ShouldExitForReboot reports whether the batch must stop so the machine can
// reboot.
func ShouldExitForReboot(cfg *types.OperationConfiguration, result *types.PackageResult) bool {
	return cfg.Features.ExitOnRebootDetected && IsRebootExitCode(result.ExitCode)
}
