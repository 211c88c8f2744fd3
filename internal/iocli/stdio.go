package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio IO поверх stdin/stdout. Приглашения пишутся в stderr,
// чтобы вывод команд можно было перенаправлять
type Stdio struct {
	in     *os.File
	out    io.Writer
	prompt io.Writer
	reader *bufio.Reader
}

func NewStdio() IO {
	return newStdio(os.Stdin, os.Stdout, os.Stderr)
}

func newStdio(in *os.File, out, prompt io.Writer) *Stdio {
	return &Stdio{in: in, out: out, prompt: prompt, reader: bufio.NewReader(in)}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)
	input, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword читает пароль без эха. Если stdin не терминал (pipe),
// читается строка целиком
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		input, err := s.reader.ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			return "", err
		}
		return strings.TrimRight(input, "\r\n"), nil
	}

	_, _ = fmt.Fprint(s.prompt, prompt)
	pwBytes, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(s.prompt)
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
