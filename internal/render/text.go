package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/DoyleJ11/boardgame-client/internal/shell"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

// Text renders to a plain writer and reads one move per line.
type Text struct {
	mu   sync.Mutex
	w    io.Writer
	over atomic.Bool

	once  sync.Once
	r     io.Reader
	input chan string
	rerr  error
}

func NewText(w io.Writer, r io.Reader) *Text {
	return &Text{w: w, r: r, input: make(chan string)}
}

func (t *Text) Render(s *types.Snapshot) {
	if s == nil {
		return
	}
	t.over.Store(s.Over())

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, strings.Join(lines(s), "\n"))
}

func (t *Text) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *Text) scan() {
	sc := bufio.NewScanner(t.r)
	for sc.Scan() {
		t.input <- sc.Text()
	}
	t.rerr = sc.Err()
	close(t.input)
}

// Next blocks until a valid cell is entered. "q" or end of input yields io.EOF.
func (t *Text) Next(ctx context.Context) (shell.Action, error) {
	t.once.Do(func() { go t.scan() })

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return shell.Action{}, ctx.Err()
		case line, ok = <-t.input:
		}
		if !ok {
			if t.rerr != nil {
				return shell.Action{}, t.rerr
			}
			return shell.Action{}, io.EOF
		}

		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			return shell.Action{}, io.EOF
		}
		if line == "" {
			continue
		}
		if t.over.Load() {
			t.printf("game over, press q to quit\n")
			continue
		}
		cell, ok := parseCell(line)
		if !ok {
			t.printf("enter a cell 0-8\n")
			continue
		}
		return shell.ClickCell(cell), nil
	}
}
