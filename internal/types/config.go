package types

import "strings"

type FeaturesConfiguration struct {
	StopOnFirstPackageFailure         bool
	ExitOnRebootDetected              bool
	UseEnhancedExitCodes              bool
	UsePackageExitCodes               bool
	AutoUninstaller                   bool
	FailOnAutoUninstaller             bool
	UseRememberedArgumentsForUpgrades bool
	UsePackageInstallLock             bool
	LogEnvironmentValues              bool
}

type PlatformInformation struct {
	PlatformType           PlatformType
	PlatformVersion        string
	Is64BitOperatingSystem bool
	Is64BitProcess         bool
	IsInteractive          bool
	IsUserAdministrator    bool
}

type SourceCredentials struct {
	User     string
	Password string
}

type InstallSettings struct {
	InstallArguments  string
	OverrideArguments bool
	NotSilent         bool
	PackageParameters string
	ForceX86          bool
}

type UpgradeSettings struct {
	FailOnUnfound               bool
	FailOnNotInstalled          bool
	NotifyOnlyAvailableUpgrades bool
	ExcludePrerelease           bool
	Except                      []string
}

type UninstallSettings struct {
	SkipAutoUninstaller bool
	AllVersions         bool
}

type ListSettings struct {
	LocalOnly               bool
	IncludeRegistryPrograms bool
	IdOnly                  bool
	Exact                   bool
	AllVersions             bool
}

type PackSettings struct {
	OutputDirectory string
}

// OperationConfiguration carries everything a single command needs. Clone it
// before specializing it per package so siblings never share state.
type OperationConfiguration struct {
	CommandName                    CommandName
	PackageNames                   string
	Version                        string
	Sources                        string
	SourceType                     SourceType
	BootstrapSource                string
	Credentials                    SourceCredentials
	InstallRoot                    string
	CacheLocation                  string
	CommandExecutionTimeoutSeconds int
	Force                          bool
	Noop                           bool
	Prerelease                     bool
	IgnoreDependencies             bool
	AllowDowngrade                 bool
	SkipPackageInstallProvider     bool
	PromptForConfirmation          bool
	PinPackage                     bool
	ValidExitCodes                 []int
	Information                    PlatformInformation
	Features                       FeaturesConfiguration
	InstallSettings                InstallSettings
	UpgradeSettings                UpgradeSettings
	UninstallSettings              UninstallSettings
	ListSettings                   ListSettings
	PackSettings                   PackSettings
}

// Clone returns a deep copy.
func (c *OperationConfiguration) Clone() *OperationConfiguration {
	if c == nil {
		return nil
	}
	clone := *c
	if c.ValidExitCodes != nil {
		clone.ValidExitCodes = append([]int(nil), c.ValidExitCodes...)
	}
	if c.UpgradeSettings.Except != nil {
		clone.UpgradeSettings.Except = append([]string(nil), c.UpgradeSettings.Except...)
	}
	return &clone
}

// PackageNameList splits PackageNames on ';' and drops empty entries.
func (c *OperationConfiguration) PackageNameList() []string {
	var names []string
	for _, name := range strings.Split(c.PackageNames, ";") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *OperationConfiguration) SourceList() []string {
	var sources []string
	for _, source := range strings.Split(c.Sources, ";") {
		source = strings.TrimSpace(source)
		if source != "" {
			sources = append(sources, source)
		}
	}
	return sources
}

func (c *OperationConfiguration) IsValidExitCode(code int) bool {
	codes := c.ValidExitCodes
	if len(codes) == 0 {
		codes = DefaultValidExitCodes
	}
	for _, valid := range codes {
		if valid == code {
			return true
		}
	}
	return false
}

func (c *OperationConfiguration) TimeoutSeconds() int {
	if c.CommandExecutionTimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds
	}
	return c.CommandExecutionTimeoutSeconds
}

func (c *OperationConfiguration) IsExcepted(name string) bool {
	for _, except := range c.UpgradeSettings.Except {
		if strings.EqualFold(strings.TrimSpace(except), name) {
			return true
		}
	}
	return false
}
