package app

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassphrase returns IDEAS_PASSPHRASE when set. Otherwise it prompts on
// the terminal without echo.
func ReadPassphrase(prompt string) (string, error) {
	if p := os.Getenv("IDEAS_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt for a passphrase; set IDEAS_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	p := strings.TrimRight(string(b), "\r\n")
	if p == "" {
		return "", fmt.Errorf("empty passphrase")
	}
	return p, nil
}
