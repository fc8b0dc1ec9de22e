package render

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nsf/termbox-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/boardgame-client/internal/shell"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

func snapshot(t *testing.T, cells map[int]string, ctx types.Ctx) *types.Snapshot {
	t.Helper()
	b := board{Cells: make([]*string, numCells)}
	for i, v := range cells {
		v := v
		b.Cells[i] = &v
	}
	g, err := json.Marshal(b)
	require.NoError(t, err)
	return &types.Snapshot{G: g, Ctx: ctx}
}

func TestLines_Layout(t *testing.T) {
	s := snapshot(t, map[int]string{0: "0", 4: "1"}, types.Ctx{CurrentPlayer: "0", Turn: 3, NumPlayers: 2})

	got := lines(s)
	assert.Equal(t, []string{
		" 0 |   |   ",
		"---+---+---",
		"   | 1 |   ",
		"---+---+---",
		"   |   |   ",
		"",
		"Turn 3, player 0 to move",
	}, got)
}

func TestStatus_Gameover(t *testing.T) {
	win := types.Winner("1")
	draw := types.Draw()

	assert.Equal(t, "Winner: 1", status(&types.Snapshot{Ctx: types.Ctx{Gameover: win}}))
	assert.Equal(t, "Draw!", status(&types.Snapshot{Ctx: types.Ctx{Gameover: draw}}))
}

func TestLines_BadBoard(t *testing.T) {
	got := lines(&types.Snapshot{G: json.RawMessage(`"nope"`)})
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "decode board")
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		cell int
		ok   bool
	}{
		{"0", 0, true},
		{"8", 8, true},
		{"clickCell 4", 4, true},
		{"9", 0, false},
		{"-1", 0, false},
		{"x", 0, false},
		{"clickCell", 0, false},
		{"move 4", 0, false},
	}
	for _, tt := range tests {
		cell, ok := parseCell(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.cell, cell, tt.in)
		}
	}
}

func TestText_RenderNilDrawsNothing(t *testing.T) {
	var out bytes.Buffer
	NewText(&out, strings.NewReader("")).Render(nil)
	assert.Empty(t, out.String())
}

func TestText_InputToActions(t *testing.T) {
	var out bytes.Buffer
	txt := NewText(&out, strings.NewReader("4\n\nbogus\nclickCell 2\nq\n3\n"))
	ctx := context.Background()

	a, err := txt.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, shell.ClickCell(4), a)

	a, err = txt.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, shell.Action{Move: "clickCell", Args: []any{2}}, a)
	assert.Contains(t, out.String(), "enter a cell 0-8")

	_, err = txt.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestText_EndOfInputIsEOF(t *testing.T) {
	txt := NewText(io.Discard, strings.NewReader("1\n"))

	_, err := txt.Next(context.Background())
	require.NoError(t, err)
	_, err = txt.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestText_InputDisabledAfterGameover(t *testing.T) {
	var out bytes.Buffer
	txt := NewText(&out, strings.NewReader("5\nq\n"))
	win := types.Winner("0")
	txt.Render(snapshot(t, map[int]string{0: "0", 1: "0", 2: "0"}, types.Ctx{Gameover: win}))

	_, err := txt.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out.String(), "Winner: 0")
	assert.Contains(t, out.String(), "game over")
}

func TestText_NextHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	txt := NewText(io.Discard, pr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := txt.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyCell(t *testing.T) {
	cell, ok := keyCell(termbox.Event{Type: termbox.EventKey, Ch: '1'})
	assert.True(t, ok)
	assert.Equal(t, 0, cell)

	cell, ok = keyCell(termbox.Event{Type: termbox.EventKey, Ch: '9'})
	assert.True(t, ok)
	assert.Equal(t, 8, cell)

	_, ok = keyCell(termbox.Event{Type: termbox.EventKey, Ch: '0'})
	assert.False(t, ok)
}

func TestTerminal_NextMapsKeys(t *testing.T) {
	term := &Terminal{events: make(chan termbox.Event, 4), done: make(chan struct{})}
	term.events <- termbox.Event{Type: termbox.EventKey, Ch: 'x'}
	term.events <- termbox.Event{Type: termbox.EventKey, Ch: '5'}
	term.events <- termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}

	a, err := term.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shell.ClickCell(4), a)

	_, err = term.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminal_CellKeysIgnoredAfterGameover(t *testing.T) {
	term := &Terminal{events: make(chan termbox.Event, 2), done: make(chan struct{})}
	term.over.Store(true)
	term.events <- termbox.Event{Type: termbox.EventKey, Ch: '5'}
	term.events <- termbox.Event{Type: termbox.EventKey, Ch: 'q'}

	_, err := term.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
