package types

// PackagesConfigEntry is one <package> element of a packages.config manifest.
// Empty fields inherit from the invoking configuration.
type PackagesConfigEntry struct {
	ID                 string
	Version            string
	Source             string
	InstallArguments   string
	PackageParameters  string
	ForceX86           bool
	AllowMultiple      bool
	IgnoreDependencies bool
	Force              bool
	Prerelease         bool
	PinPackage         bool
	SkipScripts        bool
	Timeout            int
	Disabled           bool
}
