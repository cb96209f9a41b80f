// Package importer implements the statement import wizard: file validation,
// parsing (synchronous or polled), an editable preview and the batch confirm.
package importer

import (
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// DefaultMaxFileSize is the largest statement accepted for upload.
const DefaultMaxFileSize int64 = 10 << 20

// Validation failures.
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// ValidationError is a client-side rejection of a file. It is shown inline
// and never reaches the network.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DisplayMessage returns the inline message for the rejected file.
func (e *ValidationError) DisplayMessage() string {
	return e.Message
}

// ValidateFile checks the extension and size of a statement before upload.
func ValidateFile(name string, size, maxSize int64) (model.FileType, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	fileType, ok := model.FileTypeFromName(name)
	if !ok {
		return "", &ValidationError{Err: ErrUnsupportedFile, Message: "Please upload a .csv or .pdf file."}
	}
	if size > maxSize {
		return "", &ValidationError{
			Err:     ErrFileTooLarge,
			Message: fmt.Sprintf("File too large. Maximum size is %s.", formatSize(maxSize)),
		}
	}
	return fileType, nil
}

func formatSize(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%.1f MB", float64(n)/mb)
}
