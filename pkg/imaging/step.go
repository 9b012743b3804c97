package imaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/sh"
)

// Step operations.
const (
	OpWriteImage    = "write-image"
	OpCopyDisk      = "copy-disk"
	OpWriteTable    = "write-table"
	OpReloadTable   = "reload-table"
	OpCopyPartition = "copy-partition"
	OpCheckFS       = "check-filesystem"
	OpResizeFS      = "resize-filesystem"
	OpReadDevice    = "read-device"
	OpShrinkImage   = "shrink-image"
	OpCompressImage = "compress-image"
	OpSync          = "sync"
	OpEject         = "eject"
)

// Step is one external command of an operation. It is both structured (for
// the runner and the journal) and has a human-readable description.
type Step struct {
	Operation   string
	Name        string
	Args        []string
	Stdin       string
	Description string
	// Optional steps only log a warning when they fail.
	Optional bool
	// AcceptExit lists non-zero exit codes that still mean success.
	AcceptExit []int
}

// CommandLine .
func (s Step) CommandLine() string {
	line := sh.CommandLine(s.Name, s.Args...)
	if s.Stdin != "" {
		line += " <<EOF\n" + strings.TrimRight(s.Stdin, "\n") + "\nEOF"
	}
	return line
}

// Plan is the ordered list of steps for one operation.
type Plan struct {
	Operation   string
	Source      string
	Destination string
	Steps       []Step
}

// String renders a human-readable description of the plan.
func (p Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s plan: %s -> %s\n", p.Operation, p.Source, p.Destination)
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s.Description)
	}
	return b.String()
}

// Runner abstracts how steps are performed.
type Runner interface {
	Run(ctx context.Context, step Step) error
}

// Apply runs steps in order and stops at the first failure, returning an
// error that names the failing step.
func Apply(ctx context.Context, steps []Step, runner Runner) error {
	for _, step := range steps {
		if err := runner.Run(ctx, step); err != nil {
			if code, ok := sh.ExitCode(err); ok && lo.Contains(step.AcceptExit, code) {
				log.Infof("%s exited with %d, accepted", step.Operation, code)
				continue
			}
			if step.Optional {
				log.Warnf("%s failed, continuing: %v", step.Operation, err)
				continue
			}
			return errors.Wrapf(err, "step %q failed", step.Operation)
		}
	}
	return nil
}

func ddStep(op, in, out, blockSize string, countBytes uint64) Step {
	args := []string{"if=" + in, "of=" + out, "bs=" + blockSize, "conv=fsync", "status=progress"}
	desc := fmt.Sprintf("copy %s to %s", in, out)
	if countBytes > 0 {
		args = append(args, fmt.Sprintf("count=%d", countBytes), "iflag=count_bytes")
		desc = fmt.Sprintf("copy the first %d bytes of %s to %s", countBytes, in, out)
	}
	return Step{Operation: op, Name: "dd", Args: args, Description: desc}
}
