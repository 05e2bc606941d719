package types

type SourceType string

const (
	SourceTypeNormal          SourceType = "normal"
	SourceTypeCygwin          SourceType = "cygwin"
	SourceTypePython          SourceType = "python"
	SourceTypeRuby            SourceType = "ruby"
	SourceTypeWindowsFeatures SourceType = "windowsfeatures"
)

type MessageKind string

const (
	MessageKindNote    MessageKind = "note"
	MessageKindWarning MessageKind = "warning"
	MessageKindError   MessageKind = "error"
)

type CommandName string

const (
	CommandInstall   CommandName = "install"
	CommandUpgrade   CommandName = "upgrade"
	CommandUninstall CommandName = "uninstall"
	CommandList      CommandName = "list"
	CommandSearch    CommandName = "search"
	CommandOutdated  CommandName = "outdated"
	CommandPack      CommandName = "pack"
	CommandPush      CommandName = "push"
)

type PlatformType string

const (
	PlatformWindows PlatformType = "windows"
	PlatformLinux   PlatformType = "linux"
	PlatformMac     PlatformType = "darwin"
	PlatformUnknown PlatformType = "unknown"
)

type EventKind string

const (
	EventPackageCompleted EventKind = "package-completed"
	EventCommandCompleted EventKind = "command-completed"
)
