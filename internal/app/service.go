package app

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"choco-cli/internal/adapters"
	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// Service orchestrates package commands. Each command selects a source
// runner, drives it, and post-processes every package it reports.
type Service struct {
	Paths           types.InstallPaths
	Runners         *core.RunnerRegistry
	Packaging       ports.PackagingPort
	Scripts         ports.ScriptRunnerPort
	Registry        ports.RegistryInspectorPort
	Files           ports.FilesPort
	FileSystem      ports.FileSystemPort
	Shims           ports.ShimPort
	Transforms      ports.ConfigTransformPort
	PackageInfo     ports.PackageInfoStorePort
	Encryptor       ports.EncryptorPort
	Pending         ports.PendingPort
	Prompter        ports.PrompterPort
	Events          ports.EventPublisherPort
	PackagesConfig  ports.PackagesConfigPort
	AutoUninstaller ports.AutoUninstallerPort
	Platform        ports.PlatformPort
	Context         *types.OperationContext
	Exit            *types.ExitStatus
	Out             io.Writer
	Environ         func() []string
	// ExplicitFlag reports whether a flag was given on this invocation, so
	// remembered arguments never override it.
	ExplicitFlag    func(name string) bool
}

func NewService(paths types.InstallPaths, exit *types.ExitStatus, out io.Writer) Service {
	if exit == nil {
		exit = types.NewExitStatus()
	}
	if out == nil {
		out = os.Stdout
	}
	fsys := afero.NewOsFs()
	fileSystem := adapters.NewFileSystemAdapter(fsys)
	info := adapters.NewPackageInfoFileAdapter(paths.PackageInformation)
	executor := adapters.NewCommandExecutorAdapter()
	platform := adapters.NewPlatformAdapter()
	registry := adapters.NewRegistryAdapter()

	normal := adapters.NewFolderSourceRunner(paths, fileSystem, info)
	runners := core.NewRunnerRegistry(
		normal,
		adapters.NewCygwinSourceRunner(executor, exit, normal, paths, ""),
		adapters.NewPythonSourceRunner(executor, exit, normal, paths, nil),
		adapters.NewRubyGemsSourceRunner(executor, exit, normal, paths, nil),
		adapters.NewWindowsFeaturesSourceRunner(executor, exit, platform),
	)

	return Service{
		Paths:           paths,
		Runners:         runners,
		Packaging:       normal,
		Scripts:         adapters.NewShellScriptRunner(paths.Root),
		Registry:        registry,
		Files:           adapters.NewFilesAdapter(fsys),
		FileSystem:      fileSystem,
		Shims:           adapters.NewShimAdapter(fsys, paths.Shims),
		Transforms:      adapters.NewConfigTransformAdapter(paths),
		PackageInfo:     info,
		Encryptor:       adapters.NewSecretboxEncryptor(filepath.Join(paths.PackageInformation, ".arguments.key")),
		Pending:         adapters.NewPendingAdapter(),
		Prompter:        adapters.NewTerminalPrompter(nil, out),
		Events:          adapters.NewEventBusAdapter(),
		PackagesConfig:  adapters.NewPackagesConfigAdapter(),
		AutoUninstaller: adapters.NewAutoUninstallerAdapter(executor, registry),
		Platform:        platform,
		Context:         types.NewOperationContext(),
		Exit:            exit,
		Out:             out,
		Environ:         os.Environ,
	}
}
