// Package render draws tic-tac-toe snapshots and turns keystrokes into moves.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

const numCells = 9

type board struct {
	Cells []*string `json:"cells"`
}

func decodeBoard(s *types.Snapshot) ([numCells]string, error) {
	var out [numCells]string
	var b board
	if err := json.Unmarshal(s.G, &b); err != nil {
		return out, fmt.Errorf("decode board: %w", err)
	}
	for i := 0; i < numCells && i < len(b.Cells); i++ {
		if b.Cells[i] != nil {
			out[i] = *b.Cells[i]
		}
	}
	return out, nil
}

// lines lays a snapshot out as rows of text shared by both front ends.
func lines(s *types.Snapshot) []string {
	cells, err := decodeBoard(s)
	if err != nil {
		return []string{err.Error()}
	}

	var rows []string
	for r := 0; r < 3; r++ {
		row := make([]string, 3)
		for c := 0; c < 3; c++ {
			v := cells[r*3+c]
			if v == "" {
				v = " "
			}
			row[c] = " " + v + " "
		}
		rows = append(rows, strings.Join(row, "|"))
		if r < 2 {
			rows = append(rows, "---+---+---")
		}
	}
	return append(rows, "", status(s))
}

func status(s *types.Snapshot) string {
	if over := s.Ctx.Gameover; over != nil {
		if over.IsDraw() {
			return "Draw!"
		}
		return "Winner: " + *over.Winner
	}
	return fmt.Sprintf("Turn %d, player %s to move", s.Ctx.Turn, s.Ctx.CurrentPlayer)
}

// parseCell accepts "N" or "clickCell N" with N in [0, 8].
func parseCell(line string) (int, bool) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 2 && fields[0] == "clickCell":
		fields = fields[1:]
	case len(fields) != 1:
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 || n >= numCells {
		return 0, false
	}
	return n, true
}
