package adapters

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
)

// waitDelay bounds how long Wait keeps reading output after a timeout, so
// descendants holding the pipes open cannot stall the caller.
const waitDelay = 2 * time.Second

// CommandExecutorAdapter runs external tools and streams their output line
// by line. Stdout and stderr callbacks run on separate goroutines.
type CommandExecutorAdapter struct{}

func NewCommandExecutorAdapter() CommandExecutorAdapter {
	return CommandExecutorAdapter{}
}

func (a CommandExecutorAdapter) Execute(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	if req.Command == "" {
		return ports.ExecResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("command is empty")
	}
	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = append(os.Environ(), req.Env...)
	cmd.WaitDelay = waitDelay
	killProcessTree(cmd)
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	log.Ctx(ctx).Debug().Str("command", req.Command).Strs("args", req.Args).Msg("executing")
	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return ports.ExecResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to start " + req.Command).
			WithCause(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(&wg, stdoutR, req.OnStdout)
	go scanLines(&wg, stderrR, req.OnStderr)

	waitErr := cmd.Wait()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	wg.Wait()
	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return ports.ExecResult{ExitCode: -1, TimedOut: true}, nil
	}
	if waitErr == nil {
		return ports.ExecResult{}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return ports.ExecResult{ExitCode: exitErr.ExitCode()}, nil
	}
	return ports.ExecResult{ExitCode: -1}, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(req.Command + " failed").
		WithCause(waitErr)
}

func scanLines(wg *sync.WaitGroup, r io.Reader, emit func(string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if emit != nil {
			emit(scanner.Text())
		}
	}
	// Drain whatever is left so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

var _ ports.CommandExecutorPort = CommandExecutorAdapter{}
