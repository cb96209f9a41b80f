package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/importer"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the import wizard until the user quits and returns the last
// state it showed. The pipeline may already be processing a file; changes it
// makes in the background are pushed into the program as they happen.
func Run(ctx context.Context, pipeline *importer.Pipeline, opener importer.Opener, opts ...Option) (importer.Snapshot, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	m := New(ctx, pipeline, opener, opts...)
	program := tea.NewProgram(m, programOpts...)

	unsubscribe := pipeline.OnChange(func(snap importer.Snapshot) {
		program.Send(snapshotMsg{snap: snap})
	})
	defer unsubscribe()

	final, err := program.Run()
	if err != nil {
		return pipeline.Snapshot(), fmt.Errorf("import wizard failed: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Snapshot(), nil
	}
	return pipeline.Snapshot(), nil
}
