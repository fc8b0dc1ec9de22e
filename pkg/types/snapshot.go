package types

import "encoding/json"

// Snapshot:
//   G: game specific payload, opaque to the client
//   ctx: { currentPlayer, turn, numPlayers, gameover? }
//   _stateID: authority version, bumped on every accepted move
//
// A snapshot always replaces the previous one in full.
type Snapshot struct {
	G       json.RawMessage `json:"G"`
	Ctx     Ctx             `json:"ctx"`
	StateID int             `json:"_stateID"`
}

type Ctx struct {
	CurrentPlayer string   `json:"currentPlayer"`
	Turn          int      `json:"turn"`
	NumPlayers    int      `json:"numPlayers"`
	Gameover      *Outcome `json:"gameover,omitempty"`
}

// Outcome is {winner: id} or {} for a draw. A nil *Outcome means the match is still running.
type Outcome struct {
	Winner *string `json:"winner,omitempty"`
}

func (o Outcome) IsDraw() bool { return o.Winner == nil }

func Winner(id string) *Outcome { return &Outcome{Winner: &id} }

func Draw() *Outcome { return &Outcome{} }

// Over reports whether the snapshot carries a terminal outcome.
func (s *Snapshot) Over() bool {
	return s != nil && s.Ctx.Gameover != nil
}

type PlayerSlot struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Occupied bool   `json:"occupied"`
}

type MatchDescriptor struct {
	GameName string       `json:"gameName"`
	MatchID  string       `json:"matchID"`
	Players  []PlayerSlot `json:"players"`
}

// OpenSeat reports whether the given seat exists and is still free.
func (m MatchDescriptor) OpenSeat(playerID string) bool {
	for _, p := range m.Players {
		if p.ID == playerID {
			return !p.Occupied
		}
	}
	return false
}
