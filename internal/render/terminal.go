package render

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"github.com/DoyleJ11/boardgame-client/internal/shell"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

const help = "1-9 to play, q to quit"

// Terminal draws full-screen with termbox. Keys 1-9 map to cells 0-8.
type Terminal struct {
	mu     sync.Mutex
	over   atomic.Bool
	events chan termbox.Event
	done   chan struct{}
}

func NewTerminal() (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	t := &Terminal{
		events: make(chan termbox.Event),
		done:   make(chan struct{}),
	}
	go t.poll()
	t.draw([]string{"waiting for match...", "", help})
	return t, nil
}

func (t *Terminal) poll() {
	for {
		ev := termbox.PollEvent()
		select {
		case t.events <- ev:
		case <-t.done:
			return
		}
		if ev.Type == termbox.EventInterrupt {
			return
		}
	}
}

func (t *Terminal) Close() {
	close(t.done)
	termbox.Interrupt()
	termbox.Close()
}

func (t *Terminal) Render(s *types.Snapshot) {
	if s == nil {
		return
	}
	t.over.Store(s.Over())
	footer := help
	if s.Over() {
		footer = "q to quit"
	}
	t.draw(append(lines(s), "", footer))
}

func (t *Terminal) draw(rows []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y, row := range rows {
		x := 1
		for _, r := range row {
			termbox.SetCell(x, y+1, r, termbox.ColorDefault, termbox.ColorDefault)
			x += runewidth.RuneWidth(r)
		}
	}
	termbox.Flush()
}

func (t *Terminal) Next(ctx context.Context) (shell.Action, error) {
	for {
		var ev termbox.Event
		select {
		case <-ctx.Done():
			return shell.Action{}, ctx.Err()
		case ev = <-t.events:
		}

		switch ev.Type {
		case termbox.EventError:
			return shell.Action{}, ev.Err
		case termbox.EventInterrupt:
			return shell.Action{}, io.EOF
		case termbox.EventKey:
			if cell, ok := keyCell(ev); ok && !t.over.Load() {
				return shell.ClickCell(cell), nil
			}
			if ev.Ch == 'q' || ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC {
				return shell.Action{}, io.EOF
			}
		}
	}
}

func keyCell(ev termbox.Event) (int, bool) {
	if ev.Ch >= '1' && ev.Ch <= '9' {
		return int(ev.Ch - '1'), true
	}
	return 0, false
}
