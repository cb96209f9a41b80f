package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its context ended.
var ErrInputCancelled = errors.New("input canceled")

type line struct {
	err   error
	value string
}

// LineReader reads lines from a blocking source without pinning the caller:
// a single pump goroutine owns the source and hands lines over a channel, so
// a cancelled read never loses the next line.
type LineReader struct {
	src   *bufio.Reader
	lines chan line
	once  sync.Once
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &LineReader{
		src:   bufio.NewReader(r),
		lines: make(chan line),
	}
}

func (r *LineReader) pump() {
	for {
		value, err := r.src.ReadString('\n')
		if err != nil && (value == "" || !errors.Is(err, io.EOF)) {
			r.lines <- line{err: err}
			close(r.lines)
			return
		}
		r.lines <- line{value: value}
		if err != nil {
			r.lines <- line{err: err}
			close(r.lines)
			return
		}
	}
}

// ReadLine returns the next line with surrounding whitespace trimmed. It
// returns io.EOF once the source is exhausted and ErrInputCancelled when ctx
// ends first.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.once.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.value), nil
	}
}
