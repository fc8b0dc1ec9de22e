package shell

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/matchmaking"
	"github.com/DoyleJ11/boardgame-client/internal/session"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

// Action is one user input mapped to a move: (moveName, args).
type Action struct {
	Move string
	Args []any
}

func ClickCell(id int) Action { return Action{Move: "clickCell", Args: []any{id}} }

type Locator interface {
	Locate(ctx context.Context, gameName string) (matchmaking.Seat, error)
}

type Session interface {
	Connect(ctx context.Context, matchID, playerID, credential string) error
	Subscribe(fn func(*types.Snapshot)) *session.Subscription
	SubmitMove(move string, args ...any) error
}

// Renderer draws a snapshot. A nil snapshot means there is no state yet.
type Renderer interface {
	Render(s *types.Snapshot)
}

// Input yields user actions. io.EOF ends the session.
type Input interface {
	Next(ctx context.Context) (Action, error)
}

type Shell struct {
	GameName string
	Locator  Locator
	Session  Session
	Renderer Renderer
	Input    Input
	Log      *zap.Logger
}

func (s *Shell) Run(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	seat, err := s.Locator.Locate(ctx, s.GameName)
	if err != nil {
		return fmt.Errorf("matchmaking: %w", err)
	}
	log = log.With(zap.String("match", seat.MatchID), zap.String("seat", seat.PlayerID))
	log.Info("seat located")

	if err := s.Session.Connect(ctx, seat.MatchID, seat.PlayerID, seat.Credential); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	sub := s.Session.Subscribe(s.Renderer.Render)
	defer sub.Cancel()

	for {
		action, err := s.Input.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("input closed")
			return nil
		}
		if err != nil {
			return err
		}

		err = s.Session.SubmitMove(action.Move, action.Args...)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrOutboxFull):
			// Reconnecting or backed up; this input is dropped.
			log.Warn("move not sent", zap.String("move", action.Move), zap.Error(err))
		default:
			return fmt.Errorf("submit %s: %w", action.Move, err)
		}
	}
}
