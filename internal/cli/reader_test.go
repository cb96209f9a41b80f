package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReaderReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single line", input: "yes\n", want: []string{"yes"}},
		{name: "trims whitespace", input: "  no \r\n", want: []string{"no"}},
		{name: "several lines", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "final line without newline", input: "a\nlast", want: []string{"a", "last"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(tt.input))
			for _, want := range tt.want {
				got, err := r.ReadLine(context.Background())
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			_, err := r.ReadLine(context.Background())
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestLineReaderCancelKeepsNextLine(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadLine(ctx)
	require.ErrorIs(t, err, ErrInputCancelled)

	go func() { _, _ = pw.Write([]byte("after\n")) }()

	got, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", got)
}

func TestNewLineReaderPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewLineReader(nil) })
}
