package types

import "time"

type OperationEvent struct {
	ID              string
	Kind            EventKind
	Command         CommandName
	PackageName     string
	Version         string
	InstallLocation string
	Success         bool
	ExitCode        int
	Time            time.Time
}
