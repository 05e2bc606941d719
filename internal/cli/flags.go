package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"choco-cli/internal/core"
	"choco-cli/internal/types"
)

// packageOptions collects the flags shared by the package commands. Each
// command registers only the groups it understands.
type packageOptions struct {
	Source             string
	Version            string
	User               string
	Password           string
	CacheLocation      string
	Timeout            int
	Prerelease         bool
	Force              bool
	Noop               bool
	Yes                bool
	IgnoreDependencies bool
	SkipScripts        bool
	Pin                bool
	AllowDowngrade     bool

	InstallArguments  string
	PackageParameters string
	OverrideArguments bool
	NotSilent         bool
	ForceX86          bool

	Except             []string
	FailOnUnfound      bool
	FailOnNotInstalled bool
	ExcludePrerelease  bool

	SkipAutoUninstaller bool
	AllVersions         bool

	IncludePrograms bool
	IDOnly          bool
	Exact           bool

	OutputDirectory string

	StopOnFirstFailure     bool
	ExitOnRebootDetected   bool
	UseEnhancedExitCodes   bool
	UsePackageExitCodes    bool
	AutoUninstaller        bool
	FailOnAutoUninstaller  bool
	UseRememberedArguments bool
	UseLockFile            bool
	LogEnvironmentValues   bool
}

func addSourceFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Source location or source type (python, ruby, cygwin, windowsfeatures)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Specific version to use")
	cmd.Flags().BoolVar(&opts.Prerelease, "prerelease", false, "Include prerelease versions")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Source user name")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "Source password")
	cmd.Flags().StringVar(&opts.CacheLocation, "cache-location", "", "Cache location")

	_ = viper.BindPFlag("cache_location", cmd.Flags().Lookup("cache-location"))
}

func addChangeFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Force the behavior")
	cmd.Flags().BoolVarP(&opts.Noop, "noop", "n", false, "Show what would happen without making changes")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Confirm all prompts")
	cmd.Flags().BoolVar(&opts.SkipScripts, "skip-scripts", false, "Do not run package automation scripts")
	cmd.Flags().IntVar(&opts.Timeout, "execution-timeout", 0, "Command execution timeout in seconds")
	cmd.Flags().BoolVar(&opts.StopOnFirstFailure, "stop-on-first-failure", false, "Stop running remaining packages after a failure")
	cmd.Flags().BoolVar(&opts.ExitOnRebootDetected, "exit-when-reboot-detected", false, "Stop with exit code 1604 when a package requires a reboot")
	cmd.Flags().BoolVar(&opts.UseEnhancedExitCodes, "use-enhanced-exit-codes", false, "Return exit code 2 when nothing was found")
	cmd.Flags().BoolVar(&opts.UsePackageExitCodes, "use-package-exit-codes", false, "Return the package script exit code")
	cmd.Flags().BoolVar(&opts.UseLockFile, "use-lock-file", false, "Hold an exclusive lock on the pending marker")
	cmd.Flags().BoolVar(&opts.LogEnvironmentValues, "log-environment-values", false, "Log environment values that scripts changed")

	_ = viper.BindPFlag("command_execution_timeout_seconds", cmd.Flags().Lookup("execution-timeout"))
}

func addInstallFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().StringVar(&opts.InstallArguments, "install-arguments", "", "Arguments passed to the native installer")
	cmd.Flags().StringVar(&opts.PackageParameters, "package-parameters", "", "Parameters passed to the package")
	cmd.Flags().BoolVar(&opts.OverrideArguments, "override-arguments", false, "Replace the package's installer arguments")
	cmd.Flags().BoolVar(&opts.NotSilent, "not-silent", false, "Do not use silent installer arguments")
	cmd.Flags().BoolVar(&opts.ForceX86, "x86", false, "Force the 32-bit installation")
	cmd.Flags().BoolVarP(&opts.IgnoreDependencies, "ignore-dependencies", "i", false, "Do not install dependencies")
	cmd.Flags().BoolVar(&opts.Pin, "pin", false, "Pin the package after installing it")
	cmd.Flags().BoolVar(&opts.AllowDowngrade, "allow-downgrade", false, "Allow installing an older version")
}

func addUpgradeFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().StringSliceVar(&opts.Except, "except", nil, "Package ids to skip when upgrading all")
	cmd.Flags().BoolVar(&opts.FailOnUnfound, "fail-on-unfound", false, "Fail when a package is missing from the sources")
	cmd.Flags().BoolVar(&opts.FailOnNotInstalled, "fail-on-not-installed", false, "Fail when a package is not installed")
	cmd.Flags().BoolVar(&opts.ExcludePrerelease, "exclude-prerelease", false, "Skip prerelease versions")
	cmd.Flags().BoolVar(&opts.UseRememberedArguments, "use-remembered-arguments", false, "Reuse the arguments of the original install")
}

func addUninstallFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().BoolVar(&opts.SkipAutoUninstaller, "skip-autouninstaller", false, "Do not run the automatic uninstaller")
	cmd.Flags().BoolVar(&opts.AutoUninstaller, "use-autouninstaller", false, "Run the automatic uninstaller")
	cmd.Flags().BoolVar(&opts.FailOnAutoUninstaller, "fail-on-autouninstaller", false, "Fail when the automatic uninstaller fails")
	cmd.Flags().BoolVarP(&opts.AllVersions, "all-versions", "a", false, "Uninstall every installed version")
}

func addListFlags(cmd *cobra.Command, opts *packageOptions) {
	cmd.Flags().BoolVar(&opts.IncludePrograms, "include-programs", false, "Include programs not managed by this tool")
	cmd.Flags().BoolVar(&opts.IDOnly, "id-only", false, "Only print package ids")
	cmd.Flags().BoolVarP(&opts.Exact, "exact", "e", false, "Match the id exactly")
	cmd.Flags().BoolVarP(&opts.AllVersions, "all-versions", "a", false, "List every version")
	cmd.Flags().BoolVar(&opts.UseEnhancedExitCodes, "use-enhanced-exit-codes", false, "Return exit code 2 when nothing was found")
}

// configuration builds the operation configuration for one invocation,
// resolving each setting from its flag, then config file and environment.
func (o *packageOptions) configuration(cmd *cobra.Command, runners *core.RunnerRegistry, args []string) *types.OperationConfiguration {
	cfg := &types.OperationConfiguration{
		PackageNames:                   strings.Join(args, ";"),
		Version:                        o.Version,
		Credentials:                    types.SourceCredentials{User: o.User, Password: o.Password},
		InstallRoot:                    installRoot(),
		CacheLocation:                  resolveString(cmd, o.CacheLocation, "cache_location", "cache-location"),
		CommandExecutionTimeoutSeconds: resolveInt(cmd, o.Timeout, "command_execution_timeout_seconds", "execution-timeout"),
		Force:                          o.Force,
		Noop:                           o.Noop,
		Prerelease:                     o.Prerelease,
		IgnoreDependencies:             o.IgnoreDependencies,
		AllowDowngrade:                 o.AllowDowngrade,
		SkipPackageInstallProvider:     o.SkipScripts,
		PromptForConfirmation:          !o.Yes,
		PinPackage:                     o.Pin,
		Features: types.FeaturesConfiguration{
			StopOnFirstPackageFailure:         resolveBool(cmd, o.StopOnFirstFailure, "features.stop_on_first_package_failure", "stop-on-first-failure"),
			ExitOnRebootDetected:              resolveBool(cmd, o.ExitOnRebootDetected, "features.exit_on_reboot_detected", "exit-when-reboot-detected"),
			UseEnhancedExitCodes:              resolveBool(cmd, o.UseEnhancedExitCodes, "features.use_enhanced_exit_codes", "use-enhanced-exit-codes"),
			UsePackageExitCodes:               resolveBool(cmd, o.UsePackageExitCodes, "features.use_package_exit_codes", "use-package-exit-codes"),
			AutoUninstaller:                   resolveBool(cmd, o.AutoUninstaller, "features.auto_uninstaller", "use-autouninstaller"),
			FailOnAutoUninstaller:             resolveBool(cmd, o.FailOnAutoUninstaller, "features.fail_on_auto_uninstaller", "fail-on-autouninstaller"),
			UseRememberedArgumentsForUpgrades: resolveBool(cmd, o.UseRememberedArguments, "features.use_remembered_arguments_for_upgrades", "use-remembered-arguments"),
			UsePackageInstallLock:             resolveBool(cmd, o.UseLockFile, "features.use_lock_file", "use-lock-file"),
			LogEnvironmentValues:              resolveBool(cmd, o.LogEnvironmentValues, "features.log_environment_values", "log-environment-values"),
		},
		InstallSettings: types.InstallSettings{
			InstallArguments:  o.InstallArguments,
			OverrideArguments: o.OverrideArguments,
			NotSilent:         o.NotSilent,
			PackageParameters: o.PackageParameters,
			ForceX86:          o.ForceX86,
		},
		UpgradeSettings: types.UpgradeSettings{
			FailOnUnfound:      o.FailOnUnfound,
			FailOnNotInstalled: o.FailOnNotInstalled,
			ExcludePrerelease:  o.ExcludePrerelease,
			Except:             o.Except,
		},
		UninstallSettings: types.UninstallSettings{
			SkipAutoUninstaller: o.SkipAutoUninstaller,
			AllVersions:         o.AllVersions,
		},
		ListSettings: types.ListSettings{
			IncludeRegistryPrograms: o.IncludePrograms,
			IdOnly:                  o.IDOnly,
			Exact:                   o.Exact,
			AllVersions:             o.AllVersions,
		},
		PackSettings: types.PackSettings{OutputDirectory: o.OutputDirectory},
	}
	cfg.SourceType, cfg.Sources = splitSource(runners, resolveString(cmd, o.Source, "default_source", "source"))
	return cfg
}

// splitSource treats a source naming a registered alternative source type
// as that type; anything else is a feed location for the normal runner.
func splitSource(runners *core.RunnerRegistry, source string) (types.SourceType, string) {
	source = strings.TrimSpace(source)
	if source == "" || runners == nil {
		return types.SourceTypeNormal, source
	}
	if sourceType, ok := runners.NormalizeSourceType(source); ok && sourceType != types.SourceTypeNormal {
		return sourceType, ""
	}
	return types.SourceTypeNormal, source
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	if configured := viper.GetString(key); configured != "" {
		return configured
	}
	return value
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
