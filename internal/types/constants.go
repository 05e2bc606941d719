package types

const (
	ExitCodeSuccess         = 0
	ExitCodeFailure         = 1
	ExitCodeNoResults       = 2
	ExitCodeInstallSuspend  = 1604
	ExitCodeRebootInitiated = 1641
	ExitCodeRebootRequired  = 3010
)

// Variables shared between the pipeline and package scripts.
const (
	EnvPackageInstallLocation = "ChocolateyPackageInstallLocation"
	EnvInstallerType          = "ChocolateyInstallerType"
	EnvToolsLocation          = "ChocolateyToolsLocation"
	EnvInstallRoot            = "ChocolateyInstall"
	EnvPackageName            = "ChocolateyPackageName"
	EnvPackageVersion         = "ChocolateyPackageVersion"
	EnvPackageFolder          = "ChocolateyPackageFolder"
	EnvPackageParameters      = "ChocolateyPackageParameters"
	EnvInstallArguments       = "ChocolateyInstallArguments"
	EnvForceX86               = "ChocolateyForceX86"
	EnvPackageExitCode        = "ChocolateyExitCode"
)

const (
	PendingFileName        = ".chocolateyPending"
	InternalRegistryMarker = "choco-"
	DefaultFeedSource      = "https://community.chocolatey.org/api/v2/"
	DefaultTimeoutSeconds  = 2700
	ArchiveExtension       = ".nupkg"
	ManifestExtension      = ".nuspec"
	PackagesConfigSuffix   = ".config"
	IgnoreFileSuffix       = ".ignore"
	TransformFileSuffix    = ".install.xdt"
	AllPackagesName        = "all"
)

const (
	InstallScriptName      = "chocolateyInstall.sh"
	UninstallScriptName    = "chocolateyUninstall.sh"
	BeforeModifyScriptName = "chocolateyBeforeModify.sh"
)

// DefaultValidExitCodes are the installer exit codes treated as success.
var DefaultValidExitCodes = []int{0, 1605, 1614, 1641, 3010}
