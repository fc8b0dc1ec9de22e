package engine

import (
	"errors"
	"strconv"
)

var ErrWrongTurn = errors.New("invalid turn")
var ErrIllegalMove = errors.New("illegal move")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrGameAlreadyCompleted = errors.New("game already completed")

const (
	NumCells   = 9
	NumPlayers = 2
)

type Outcome struct {
	Winner string
	Draw   bool
}

type State struct {
	Cells         [NumCells]string // "" is empty, otherwise the owning player ID
	CurrentPlayer string
	Turn          int
	NumPlayers    int
	Gameover      *Outcome
}

type CommandType string

const (
	CmdClickCell CommandType = "clickCell"
)

type Command struct {
	Type     CommandType
	PlayerID string
	Cell     int
}

func Apply(s State, cmd Command) (State, error) {
	if s.Gameover != nil {
		return s, ErrGameAlreadyCompleted
	}

	switch cmd.Type {
	case CmdClickCell:
		if !validPlayer(s, cmd.PlayerID) {
			return s, ErrUnknownPlayer
		}
		if cmd.PlayerID != s.CurrentPlayer {
			return s, ErrWrongTurn
		}
		if !canClick(s, cmd.Cell) {
			return s, ErrIllegalMove
		}

		// Cells is an array, so newState owns its copy.
		newState := s
		newState.Cells[cmd.Cell] = cmd.PlayerID

		if winner, ok := findWinner(newState); ok {
			newState.Gameover = &Outcome{Winner: winner}
		} else if boardFull(newState) {
			newState.Gameover = &Outcome{Draw: true}
		}

		// ctx.turn and currentPlayer still advance on the final move.
		newState.Turn++
		newState.CurrentPlayer = nextPlayer(newState)
		return newState, nil

	default:
		return s, ErrUnsupportedCommand
	}
}

func canClick(s State, cell int) bool {
	if cell < 0 || cell >= NumCells {
		return false
	}
	return s.Cells[cell] == ""
}

func validPlayer(s State, id string) bool {
	n, err := strconv.Atoi(id)
	if err != nil || strconv.Itoa(n) != id {
		return false
	}
	return n >= 0 && n < s.NumPlayers
}

func nextPlayer(s State) string {
	n, _ := strconv.Atoi(s.CurrentPlayer)
	return strconv.Itoa((n + 1) % s.NumPlayers)
}

func findWinner(s State) (string, bool) {
	for _, line := range WinningLines {
		a, b, c := s.Cells[line[0]], s.Cells[line[1]], s.Cells[line[2]]
		if a != "" && a == b && b == c {
			return a, true
		}
	}
	return "", false
}

func boardFull(s State) bool {
	for _, c := range s.Cells {
		if c == "" {
			return false
		}
	}
	return true
}
