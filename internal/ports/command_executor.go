package ports

import (
	"context"
	"time"
)

type ExecRequest struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        []string
	Timeout    time.Duration
	OnStdout   func(line string)
	OnStderr   func(line string)
}

type ExecResult struct {
	ExitCode int
	TimedOut bool
}

type CommandExecutorPort interface {
	Execute(ctx context.Context, req ExecRequest) (ExecResult, error)
}
