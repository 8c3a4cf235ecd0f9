package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/slok/updash/internal/model"
)

// Confirmer asks the operator to confirm an action.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmerFunc is a helper to use functions as Confirmers.
type ConfirmerFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// AutoConfirmer answers every confirmation with the same answer.
type AutoConfirmer bool

func (a AutoConfirmer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// PromptConfirmer asks on an interactive input, anything but yes is a no.
type PromptConfirmer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	// interactive is nil when the input can't be checked.
	interactive func() bool
}

// NewPromptConfirmer returns a confirmer that reads the answers from in and writes the questions to out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	c := &PromptConfirmer{
		in:  bufio.NewReader(in),
		out: out,
	}
	if f, ok := in.(*os.File); ok {
		c.interactive = func() bool { return term.IsTerminal(int(f.Fd())) }
	}
	return c
}

func (p *PromptConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if p.interactive != nil && !p.interactive() {
		return false, fmt.Errorf("confirmation required but input is not interactive, use --yes: %w", model.ErrNotValid)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s [y/N]: ", message)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("could not read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
