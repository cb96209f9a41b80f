package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestInterruptCancelsContext(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out, "Import")

	ctx, stop := h.HandleInterrupts(context.Background())
	defer stop()

	assert.NoError(t, ctx.Err())
	h.signals <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
	require.Eventually(t, h.WasInterrupted, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Import interrupted!")
}

func TestStopWithoutInterrupt(t *testing.T) {
	out := &syncBuffer{}
	h := NewInterruptHandler(out, "Reconcile")

	ctx, stop := h.HandleInterrupts(context.Background())
	stop()
	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, h.WasInterrupted())
	assert.Empty(t, out.String())
}

func TestNewInterruptHandlerDefaultsWriter(t *testing.T) {
	h := NewInterruptHandler(nil, "Import")
	assert.NotNil(t, h.writer)
}
