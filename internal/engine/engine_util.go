package engine

import (
	"encoding/json"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

func NewEmptyState() State {
	return State{
		CurrentPlayer: "0",
		Turn:          1,
		NumPlayers:    NumPlayers,
	}
}

// SupportsPlayers reports whether a match can be created with n seats.
func SupportsPlayers(n int) bool {
	return n == NumPlayers
}

// Board is the G payload the client renders.
type Board struct {
	Cells []*string `json:"cells"`
}

func BoardOf(s State) Board {
	cells := make([]*string, NumCells)
	for i, c := range s.Cells {
		if c != "" {
			v := c
			cells[i] = &v
		}
	}
	return Board{Cells: cells}
}

// ToSnapshot converts authority state into the wire snapshot pushed to clients.
func ToSnapshot(version int, s State) types.Snapshot {
	g, _ := json.Marshal(BoardOf(s)) // Board has no unmarshalable fields

	snap := types.Snapshot{
		G:       g,
		StateID: version,
		Ctx: types.Ctx{
			CurrentPlayer: s.CurrentPlayer,
			Turn:          s.Turn,
			NumPlayers:    s.NumPlayers,
		},
	}
	if s.Gameover != nil {
		if s.Gameover.Draw {
			snap.Ctx.Gameover = types.Draw()
		} else {
			snap.Ctx.Gameover = types.Winner(s.Gameover.Winner)
		}
	}
	return snap
}
