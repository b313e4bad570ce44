// Package prompt asks the user to confirm destructive actions.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

type Confirmer interface {
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, message string) (bool, error)
	// Prompt asks for free text, e.g. a typed confirmation token. The answer is returned as typed.
	Prompt(ctx context.Context, message string) (string, error)
}

// Terminal reads answers line by line from in and writes questions to out.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	// AssumeYes answers every Confirm with yes without reading input. Prompt still reads.
	AssumeYes bool
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	if t.AssumeYes {
		return true, nil
	}
	answer, err := t.ask(ctx, message+" [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) Prompt(ctx context.Context, message string) (string, error) {
	return t.ask(ctx, message+"\n> ")
}

func (t *Terminal) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprint(t.out, question); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Scripted answers from fixed replies and records every question asked.
type Scripted struct {
	mu       sync.Mutex
	Confirms []bool
	Answers  []string
	Asked    []string
}

func (s *Scripted) Confirm(_ context.Context, message string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, message)
	if len(s.Confirms) == 0 {
		return false, nil
	}
	ok := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return ok, nil
}

func (s *Scripted) Prompt(_ context.Context, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, message)
	if len(s.Answers) == 0 {
		return "", nil
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}
