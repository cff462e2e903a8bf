package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/strange/local-bin/internal/errors"
	"golang.org/x/term"
)

// Prompter asks the user for a secret.
type Prompter interface {
	ReadPassword(prompt string) (string, error)
}

// TerminalPrompter writes the prompt to Out and reads the answer from In.
// A terminal In is read without echo; anything else is read as one line,
// so a password can be piped in.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

type fdReader interface {
	Fd() uintptr
}

// ReadPassword implements Prompter.
func (p *TerminalPrompter) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)

	if f, ok := p.In.(fdReader); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", promptError(err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		fmt.Fprintln(p.Out)
		return "", promptError(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptError(err error) error {
	return errors.WrapWithCode(err, errors.ErrUsage,
		"Couldn't read a password",
		"Pass it with -P, or log in with --identity or --agent")
}
