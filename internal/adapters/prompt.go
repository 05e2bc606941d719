package adapters

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"choco-cli/internal/ports"
)

// TerminalPrompter asks yes/no questions. Without a terminal on stdin it
// answers with the default.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) TerminalPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return TerminalPrompter{in: in, out: out}
}

func (p TerminalPrompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	if f, ok := p.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return defaultYes, nil
	}
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Fprintf(p.out, "%s %s ", question, hint)

	answers := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.in).ReadString('\n')
		answers <- strings.ToLower(strings.TrimSpace(line))
	}()
	select {
	case <-ctx.Done():
		return defaultYes, ctx.Err()
	case answer := <-answers:
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			return defaultYes, nil
		}
	}
}

var _ ports.PrompterPort = TerminalPrompter{}
