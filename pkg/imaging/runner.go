package imaging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/sh"
)

// CommandRunner executes steps as external commands.
type CommandRunner struct {
	Exec sh.Executor
}

// NewCommandRunner .
func NewCommandRunner(exec sh.Executor) *CommandRunner {
	return &CommandRunner{Exec: exec}
}

// Run .
func (r *CommandRunner) Run(ctx context.Context, step Step) error {
	var stdin io.Reader
	if step.Stdin != "" {
		stdin = strings.NewReader(step.Stdin)
	}
	log.Infof("%s: %s", step.Operation, step.Description)
	return r.Exec.Run(ctx, stdin, step.Name, step.Args...)
}

// NoopRunner prints steps but does not execute any command.
type NoopRunner struct {
	Out io.Writer
}

// NewNoopRunner .
func NewNoopRunner(out io.Writer) *NoopRunner { return &NoopRunner{Out: out} }

// Run .
func (n *NoopRunner) Run(_ context.Context, step Step) error {
	fmt.Fprintf(n.Out, "DRY-RUN %s: %s\n", step.Operation, step.CommandLine())
	return nil
}
