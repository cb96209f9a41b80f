package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// The pipeline calls below block on the network, so each runs as a command
// and reports back with a message.

func (m Model) selectFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		src, err := m.opener(path)
		if err != nil {
			return selectedMsg{err: err}
		}
		return selectedMsg{err: m.pipeline.SelectSource(m.ctx, src)}
	}
}

func (m Model) confirmCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.pipeline.Confirm(m.ctx)
		return confirmedMsg{resp: resp, err: err}
	}
}

func (m Model) postCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.pipeline.PostAll(m.ctx)
		return postedMsg{resp: resp, err: err}
	}
}

func (m Model) resetCmd() tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: m.pipeline.Reset()}
	}
}

// refreshCmd re-reads the pipeline. A parse can settle between New and the
// program subscribing to changes; this catches it up.
func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: m.pipeline.Snapshot()}
	}
}
