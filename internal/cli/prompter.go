package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrInputClosed is returned when the input ends before an answer is given.
var ErrInputClosed = errors.New("input terminated")

// Prompter asks yes/no questions on a terminal and prints transient
// notifications. It satisfies both service.Confirmer and service.Notifier.
type Prompter struct {
	writer    io.Writer
	reader    *LineReader
	assumeYes bool
}

// PrompterOption configures a Prompter.
type PrompterOption func(*Prompter)

// WithAssumeYes answers every question with yes without reading input.
func WithAssumeYes(yes bool) PrompterOption {
	return func(p *Prompter) { p.assumeYes = yes }
}

// NewPrompter creates a prompter reading answers from reader and writing to
// writer. Nil arguments fall back to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer, opts ...PrompterOption) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	p := &Prompter{
		writer: writer,
		reader: NewLineReader(reader),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Confirm shows title and message and waits for y or n. An empty answer is no.
func (p *Prompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.println(TitleStyle.UnsetMargins().Render(title))
	p.println(message)

	if p.assumeYes {
		p.println(SubtleStyle.Render("Answering yes (--yes)."))
		return true, nil
	}

	choice, err := p.promptChoice(ctx, "Continue?", "y/N", []string{"", "y", "yes", "n", "no"})
	if err != nil {
		return false, err
	}
	return choice == "y" || choice == "yes", nil
}

// Success prints a success notification.
func (p *Prompter) Success(message string) {
	p.println(FormatSuccess(message))
}

// Error prints a failure notification.
func (p *Prompter) Error(message string) {
	p.println(FormatError(message))
}

func (p *Prompter) promptChoice(ctx context.Context, prompt, hint string, valid []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt, hint)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputClosed
			}
			return "", err
		}

		choice := strings.ToLower(input)
		for _, v := range valid {
			if choice == v {
				return choice, nil
			}
		}
		p.println(FormatError("Please answer y or n."))
	}
}

func (p *Prompter) println(s string) {
	if _, err := fmt.Fprintln(p.writer, s); err != nil {
		slog.Warn("Failed to write to terminal", "error", err)
	}
}
