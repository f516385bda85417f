package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// errNotConfirmed is returned when a destructive command was not confirmed.
var errNotConfirmed = errors.New("aborted: not confirmed")

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks the user to type the expected word. Without a terminal on
// stdin nothing is asked and the answer is no, so scripts must pass --yes.
func Confirm(reader *bufio.Reader, w io.Writer, prompt, expected string) error {
	if !isTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w (stdin is not a terminal, use --yes)", errNotConfirmed)
	}
	answer, err := GetSimpleText(reader, fmt.Sprintf("%s Type %q to confirm", prompt, expected), w)
	if err != nil {
		return err
	}
	if answer != expected {
		return errNotConfirmed
	}
	return nil
}
