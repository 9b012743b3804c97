// Package sh runs the external programs imager delegates to and logs every
// invocation.
package sh

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/log"
)

// Executor abstracts process spawning so callers can be tested without
// touching real devices.
type Executor interface {
	// Output runs a read-only query and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run executes a command, feeding stdin when it is not nil.
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) error
}

// Local is the Executor backed by os/exec. When Stream is set, the stderr of
// Run commands is copied there as it arrives (dd progress lines).
type Local struct {
	Stream io.Writer
}

// NewLocal .
func NewLocal(stream io.Writer) *Local {
	return &Local{Stream: stream}
}

// Output .
func (l *Local) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("QUERY: %s", CommandLine(name, args...))
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), commandError(err, name, args, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Run .
func (l *Local) Run(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &output
	cmd.Stderr = &output
	if l.Stream != nil {
		cmd.Stderr = io.MultiWriter(&output, l.Stream)
	}

	log.Infof("EXEC: %s", CommandLine(name, args...))
	err := cmd.Run()
	if out := strings.TrimSpace(output.String()); len(out) > 0 {
		log.Debugf("OUTPUT: %s", out)
	}
	if err != nil {
		return commandError(err, name, args, output.String())
	}
	return nil
}

func commandError(err error, name string, args []string, output string) error {
	msg := strings.TrimSpace(output)
	// dd and friends rewrite the same line with \r; keep only the tail.
	if idx := strings.LastIndexAny(msg, "\r\n"); idx >= 0 && len(msg) > 512 {
		msg = msg[idx+1:]
	}
	if msg == "" {
		return errors.Wrapf(err, "%s", CommandLine(name, args...))
	}
	return errors.Wrapf(err, "%s: %s", CommandLine(name, args...), msg)
}

// CommandLine renders a command for logs and step descriptions.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t'\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// ExitCode extracts the exit status of a failed command from err.
func ExitCode(err error) (int, bool) {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}

// LookPath reports the tools among names that are not on PATH.
func LookPath(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
