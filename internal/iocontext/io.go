// Package iocontext provides injectable I/O streams via context for testability.
package iocontext

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IO holds the input/output streams for commands.
type IO struct {
	Out    io.Writer // stdout
	ErrOut io.Writer // stderr
	In     io.Reader // stdin

	reader *bufio.Reader
}

// DefaultIO returns the standard IO streams.
func DefaultIO() *IO {
	return &IO{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		In:     os.Stdin,
	}
}

type ioKey struct{}

// WithIO adds IO streams to a context.
func WithIO(ctx context.Context, io *IO) context.Context {
	return context.WithValue(ctx, ioKey{}, io)
}

// GetIO retrieves IO streams from context, defaulting to standard streams.
func GetIO(ctx context.Context) *IO {
	if io, ok := ctx.Value(ioKey{}).(*IO); ok && io != nil {
		return io
	}
	return DefaultIO()
}

// ReadLine reads one line from In without the trailing newline. A final
// line without a newline is returned as-is; io.EOF is returned only when
// nothing was read.
func (s *IO) ReadLine() (string, error) {
	if s.In == nil {
		return "", io.EOF
	}
	if s.reader == nil {
		s.reader = bufio.NewReader(s.In)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt writes label to ErrOut and reads a trimmed line from In.
func (s *IO) Prompt(label string) (string, error) {
	if s.ErrOut != nil {
		_, _ = fmt.Fprint(s.ErrOut, label)
	}
	line, err := s.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
