package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection(t *testing.T) {
	s := NewSelection()

	assert.True(t, s.Toggle("b"))
	assert.True(t, s.Toggle("a"))
	assert.True(t, s.Has("a"))
	assert.Equal(t, []string{"a", "b"}, s.IDs())

	assert.False(t, s.Toggle("a"))
	assert.False(t, s.Has("a"))
	assert.Equal(t, 1, s.Len())

	s.SelectAll([]string{"x", "y", "z"})
	assert.Equal(t, []string{"x", "y", "z"}, s.IDs())

	s.Sync([]string{"y", "z", "w"})
	assert.Equal(t, []string{"y", "z"}, s.IDs())

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.IDs())
}
