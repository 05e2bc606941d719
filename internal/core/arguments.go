package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/pflag"
	"mvdan.cc/sh/v3/shell"

	"choco-cli/internal/types"
)

// CaptureArguments renders the options worth replaying on a later upgrade.
// The requested version is left out so upgrades are not pinned to it.
func CaptureArguments(cfg *types.OperationConfiguration) string {
	var args []string
	quoted := func(flag, value string) {
		if strings.TrimSpace(value) != "" {
			args = append(args, fmt.Sprintf("--%s=%s", flag, shellQuote(value)))
		}
	}
	boolean := func(flag string, value bool) {
		if value {
			args = append(args, "--"+flag)
		}
	}

	quoted("cache-location", cfg.CacheLocation)
	quoted("install-arguments", cfg.InstallSettings.InstallArguments)
	quoted("package-parameters", cfg.InstallSettings.PackageParameters)
	quoted("source", cfg.Sources)
	quoted("user", cfg.Credentials.User)
	quoted("password", cfg.Credentials.Password)
	boolean("prerelease", cfg.Prerelease)
	boolean("ignore-dependencies", cfg.IgnoreDependencies)
	boolean("x86", cfg.InstallSettings.ForceX86)
	boolean("override-arguments", cfg.InstallSettings.OverrideArguments)
	boolean("not-silent", cfg.InstallSettings.NotSilent)
	boolean("allow-downgrade", cfg.AllowDowngrade)
	if cfg.CommandExecutionTimeoutSeconds > 0 && cfg.CommandExecutionTimeoutSeconds != types.DefaultTimeoutSeconds {
		args = append(args, fmt.Sprintf("--execution-timeout=%d", cfg.CommandExecutionTimeoutSeconds))
	}
	return strings.Join(args, " ")
}

// ApplyRememberedArguments replays previously captured options onto cfg.
// Options the user passed explicitly on this run are not overridden.
func ApplyRememberedArguments(cfg *types.OperationConfiguration, remembered string, explicit func(flag string) bool) error {
	if strings.TrimSpace(remembered) == "" {
		return nil
	}
	fields, err := shell.Fields(remembered, func(string) string { return "" })
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to split remembered arguments").
			WithCause(err)
	}

	replay := cfg.Clone()
	flags := pflag.NewFlagSet("remembered", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&replay.CacheLocation, "cache-location", replay.CacheLocation, "")
	flags.StringVar(&replay.InstallSettings.InstallArguments, "install-arguments", replay.InstallSettings.InstallArguments, "")
	flags.StringVar(&replay.InstallSettings.PackageParameters, "package-parameters", replay.InstallSettings.PackageParameters, "")
	flags.StringVar(&replay.Sources, "source", replay.Sources, "")
	flags.StringVar(&replay.Credentials.User, "user", replay.Credentials.User, "")
	flags.StringVar(&replay.Credentials.Password, "password", replay.Credentials.Password, "")
	flags.BoolVar(&replay.Prerelease, "prerelease", replay.Prerelease, "")
	flags.BoolVar(&replay.IgnoreDependencies, "ignore-dependencies", replay.IgnoreDependencies, "")
	flags.BoolVar(&replay.InstallSettings.ForceX86, "x86", replay.InstallSettings.ForceX86, "")
	flags.BoolVar(&replay.InstallSettings.OverrideArguments, "override-arguments", replay.InstallSettings.OverrideArguments, "")
	flags.BoolVar(&replay.InstallSettings.NotSilent, "not-silent", replay.InstallSettings.NotSilent, "")
	flags.BoolVar(&replay.AllowDowngrade, "allow-downgrade", replay.AllowDowngrade, "")
	flags.IntVar(&replay.CommandExecutionTimeoutSeconds, "execution-timeout", replay.CommandExecutionTimeoutSeconds, "")
	if err := flags.Parse(fields); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse remembered arguments").
			WithCause(err)
	}

	flags.Visit(func(flag *pflag.Flag) {
		if explicit != nil && explicit(flag.Name) {
			return
		}
		switch flag.Name {
		case "cache-location":
			cfg.CacheLocation = replay.CacheLocation
		case "install-arguments":
			cfg.InstallSettings.InstallArguments = replay.InstallSettings.InstallArguments
		case "package-parameters":
			cfg.InstallSettings.PackageParameters = replay.InstallSettings.PackageParameters
		case "source":
			cfg.Sources = replay.Sources
		case "user":
			cfg.Credentials.User = replay.Credentials.User
		case "password":
			cfg.Credentials.Password = replay.Credentials.Password
		case "prerelease":
			cfg.Prerelease = replay.Prerelease
		case "ignore-dependencies":
			cfg.IgnoreDependencies = replay.IgnoreDependencies
		case "x86":
			cfg.InstallSettings.ForceX86 = replay.InstallSettings.ForceX86
		case "override-arguments":
			cfg.InstallSettings.OverrideArguments = replay.InstallSettings.OverrideArguments
		case "not-silent":
			cfg.InstallSettings.NotSilent = replay.InstallSettings.NotSilent
		case "allow-downgrade":
			cfg.AllowDowngrade = replay.AllowDowngrade
		case "execution-timeout":
			cfg.CommandExecutionTimeoutSeconds = replay.CommandExecutionTimeoutSeconds
		}
	})
	return nil
}

// shellQuote wraps value in single quotes so shell.Fields returns it intact.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
