package tui

import (
	"github.com/Veraticus/the-books-must-balance/internal/importer"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// snapshotMsg carries a pipeline change into the update loop.
type snapshotMsg struct {
	snap importer.Snapshot
}

type confirmedMsg struct {
	err  error
	resp model.ImportConfirmResponse
}

type postedMsg struct {
	err  error
	resp model.BulkStatusResponse
}

type resetMsg struct {
	err error
}

type selectedMsg struct {
	err error
}
