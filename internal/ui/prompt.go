package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive reports whether prompts can be shown: stdin and stderr are
// terminals and JSON output was not requested.
func IsInteractive() bool {
	return !JSONMode &&
		term.IsTerminal(int(os.Stdin.Fd())) &&
		term.IsTerminal(int(os.Stderr.Fd()))
}

type readLineResult struct {
	line string
	err  error
}

// readLineAsync reads one line from stdin without buffering past the newline.
// The goroutine is abandoned if the context is cancelled.
func readLineAsync() <-chan readLineResult {
	ch := make(chan readLineResult, 1)
	go func() {
		var line []byte
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				if err == io.EOF && len(line) > 0 {
					ch <- readLineResult{line: strings.TrimSpace(string(line))}
					return
				}
				ch <- readLineResult{err: err}
				return
			}
			if n == 0 {
				continue
			}
			switch buf[0] {
			case '\n':
				ch <- readLineResult{line: strings.TrimSpace(string(line))}
				return
			case '\r':
			default:
				line = append(line, buf[0])
			}
		}
	}()
	return ch
}

// Prompt asks for a line of input. Returns ErrInterrupted on Ctrl+C.
func Prompt(message string) (string, error) {
	ctx := GetContext()
	if IsInterrupted() {
		return "", ErrInterrupted
	}

	fmt.Fprint(stderr, message)
	select {
	case <-ctx.Done():
		fmt.Fprintln(stderr)
		return "", ErrInterrupted
	case result := <-readLineAsync():
		return result.line, result.err
	}
}

// Confirm asks a yes/no question.
func Confirm(message string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	input, err := Prompt(message + suffix)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(input) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptPassword asks for a password without echoing it.
// Returns ErrInterrupted on Ctrl+C.
func PromptPassword(message string) (string, error) {
	ctx := GetContext()
	if IsInterrupted() {
		return "", ErrInterrupted
	}

	fmt.Fprint(stderr, message+": ")

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		select {
		case <-ctx.Done():
			fmt.Fprintln(stderr)
			return "", ErrInterrupted
		case result := <-readLineAsync():
			return result.line, result.err
		}
	}

	oldState, err := term.GetState(fd)
	if err != nil {
		return "", err
	}

	type passwordResult struct {
		password []byte
		err      error
	}
	resultCh := make(chan passwordResult, 1)
	go func() {
		password, err := term.ReadPassword(fd)
		resultCh <- passwordResult{password, err}
	}()

	select {
	case <-ctx.Done():
		term.Restore(fd, oldState)
		fmt.Fprintln(stderr)
		return "", ErrInterrupted
	case result := <-resultCh:
		fmt.Fprintln(stderr)
		if result.err != nil {
			return "", result.err
		}
		s := string(result.password)
		clear(result.password)
		return s, nil
	}
}
