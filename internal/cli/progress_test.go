package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobProgressUpdate(t *testing.T) {
	tests := []struct {
		name    string
		updates []int
		want    int
	}{
		{name: "moves forward", updates: []int{10, 40}, want: 40},
		{name: "never moves backwards", updates: []int{60, 20}, want: 60},
		{name: "clamps high", updates: []int{250}, want: 100},
		{name: "clamps low", updates: []int{-5}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewJobProgress(&bytes.Buffer{}, "Processing...")
			for _, u := range tt.updates {
				p.Update(u, "")
			}
			assert.Equal(t, tt.want, p.Percent())
		})
	}
}

func TestJobProgressIgnoresUpdatesAfterFinish(t *testing.T) {
	var out bytes.Buffer
	p := NewJobProgress(&out, "Processing...")
	p.Update(30, "Reading page 1")
	p.Finish()
	p.Finish()
	p.Update(90, "late")

	assert.Equal(t, 30, p.Percent())
	assert.Contains(t, out.String(), "Reading page 1")
}
