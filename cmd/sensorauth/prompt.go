package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers line by line. Secrets are read without echo when
// the input is a terminal.
type prompter struct {
	in    *bufio.Reader
	out   io.Writer
	fd    int
	isTTY bool
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	fd := int(in.Fd())
	return &prompter{
		in:    bufio.NewReader(in),
		out:   out,
		fd:    fd,
		isTTY: term.IsTerminal(fd),
	}
}

func newPipePrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	s, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// value returns preset when it is non-empty and prompts otherwise.
func (p *prompter) value(label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	return p.line(label)
}

func (p *prompter) secret(label string) (string, error) {
	if !p.isTTY {
		return p.line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *prompter) confirm(label string) bool {
	ans, err := p.line(label + " [y/N]")
	if err != nil {
		return false
	}
	ans = strings.ToLower(strings.TrimSpace(ans))
	return ans == "y" || ans == "yes"
}
