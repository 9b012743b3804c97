package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// UI abstracts user interaction so the menu and the subcommands can be
// driven from a terminal or from a script in tests.
type UI interface {
	Println(a ...any)
	Printf(format string, a ...any)
	Ask(prompt string) (string, error)
	Confirm(prompt string) (bool, error)
	// Choose prints options as a numbered list and returns the index of the
	// selected one.
	Choose(prompt string, options []string) (int, error)
}

type stdUI struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdUI returns a UI backed by stdin/stdout.
func NewStdUI() UI {
	return NewUI(os.Stdin, os.Stdout)
}

// NewUI returns a line-oriented UI reading answers from in.
func NewUI(in io.Reader, out io.Writer) UI {
	return &stdUI{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (u *stdUI) Println(a ...any) {
	fmt.Fprintln(u.out, a...)
}

func (u *stdUI) Printf(format string, a ...any) {
	fmt.Fprintf(u.out, format, a...)
}

func (u *stdUI) Ask(prompt string) (string, error) {
	u.Printf("%s", prompt)
	text, err := u.in.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (u *stdUI) Confirm(prompt string) (bool, error) {
	ans, err := u.Ask(fmt.Sprintf("%s (yes/no): ", prompt))
	if err != nil {
		return false, err
	}
	ans = strings.ToLower(ans)
	return ans == "y" || ans == "yes", nil
}

func (u *stdUI) Choose(prompt string, options []string) (int, error) {
	if len(options) < 1 {
		return 0, errors.Newf("%s: nothing to choose from", strings.TrimSuffix(prompt, ":"))
	}

	u.Println(prompt)
	for i, opt := range options {
		u.Printf("  %d) %s\n", i+1, opt)
	}

	for {
		ans, err := u.Ask(fmt.Sprintf("Select [1-%d]: ", len(options)))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		u.Printf("Invalid choice %q.\n", ans)
	}
}
