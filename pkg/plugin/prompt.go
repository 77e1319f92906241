package plugin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FixedPrompter answers every prompt with the same options, as when they
// come from command line flags.
type FixedPrompter struct {
	Options Options
}

// Prompt ignores defaults and returns the fixed options.
func (f FixedPrompter) Prompt(Options) (Options, error) {
	return f.Options, nil
}

// TerminalPrompter asks for the options on a text terminal. An empty answer
// keeps the default; "q" or end of input cancels.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading answers from in
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

// Prompt asks "How many channels?" and "Keep source stack" in turn.
func (tp *TerminalPrompter) Prompt(defaults Options) (Options, error) {
	opts := defaults

	for {
		answer, err := tp.ask(fmt.Sprintf("How many channels? [%d]: ", defaults.Channels))
		if err != nil {
			return Options{}, err
		}
		if answer == "" {
			break
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 {
			fmt.Fprintln(tp.out, "Please enter a whole number of at least 1.")
			continue
		}
		opts.Channels = n
		break
	}

	for {
		answer, err := tp.ask(fmt.Sprintf("Keep source stack? [%s]: ", yesNo(defaults.KeepSource)))
		if err != nil {
			return Options{}, err
		}
		switch strings.ToLower(answer) {
		case "":
		case "y", "yes", "true":
			opts.KeepSource = true
		case "n", "no", "false":
			opts.KeepSource = false
		default:
			fmt.Fprintln(tp.out, "Please answer y or n.")
			continue
		}
		break
	}

	return opts, nil
}

func (tp *TerminalPrompter) ask(question string) (string, error) {
	fmt.Fprint(tp.out, question)
	line, err := tp.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrCancelled
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "q") {
		return "", ErrCancelled
	}
	return line, nil
}

func yesNo(b bool) string {
	if b {
		return "Y/n"
	}
	return "y/N"
}
