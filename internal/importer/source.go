package importer

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source is a statement ready to hand to a Pipeline.
type Source struct {
	Open func() (io.ReadCloser, error)
	Name string
	Size int64
}

// Opener resolves a user-supplied path to a Source.
type Opener func(path string) (Source, error)

// OpenFile is the Opener for statements on local disk.
func OpenFile(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read statement: %w", err)
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%s is a directory", path)
	}
	return Source{
		Name: path,
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// SelectSource is SelectFile for a resolved Source.
func (p *Pipeline) SelectSource(ctx context.Context, src Source) error {
	return p.SelectFile(ctx, src.Name, src.Size, src.Open)
}
