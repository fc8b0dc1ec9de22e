package matchmaking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrInvalidGameName = errors.New("game name must not be empty")

// ErrCreateJoinRace means a freshly created match could not be entered,
// usually because another locator took the seat first. Restart matchmaking.
var ErrCreateJoinRace = errors.New("created match could not be joined")

const (
	DefaultPlayerID   = "0"
	DefaultPlayerName = "Player"
	DefaultNumPlayers = 2
)

// Seat is a successfully joined position in a match.
type Seat struct {
	GameName   string
	MatchID    string
	PlayerID   string
	Credential string
}

type Locator struct {
	dir        Directory
	playerID   string
	playerName string
	numPlayers int
	log        *zap.Logger
}

type Option func(*Locator)

// WithSeat overrides the fixed seat identity ("0").
func WithSeat(playerID string) Option { return func(l *Locator) { l.playerID = playerID } }

func WithPlayerName(name string) Option { return func(l *Locator) { l.playerName = name } }

func WithNumPlayers(n int) Option { return func(l *Locator) { l.numPlayers = n } }

func WithLogger(log *zap.Logger) Option { return func(l *Locator) { l.log = log } }

func NewLocator(dir Directory, opts ...Option) *Locator {
	l := &Locator{
		dir:        dir,
		playerID:   DefaultPlayerID,
		playerName: DefaultPlayerName,
		numPlayers: DefaultNumPlayers,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("locator")
	return l
}

// Locate joins the first existing match of gameName that accepts the seat,
// in the order the directory lists them, or creates a new match and joins it.
// It is not safe to run two locators for the same seat concurrently.
func (l *Locator) Locate(ctx context.Context, gameName string) (Seat, error) {
	if gameName == "" {
		return Seat{}, ErrInvalidGameName
	}
	log := l.log.With(zap.String("game", gameName), zap.String("seat", l.playerID))

	matches, err := l.dir.ListMatches(ctx, gameName)
	if err != nil {
		return Seat{}, fmt.Errorf("list matches: %w", err)
	}
	log.Debug("listed matches", zap.Int("count", len(matches)))

	join := JoinOptions{PlayerID: l.playerID, PlayerName: l.playerName}
	for _, m := range matches {
		game := m.GameName
		if game == "" {
			game = gameName
		}

		// The listing may be stale, so a seat shown as taken is still tried.
		log.Debug("trying match", zap.String("match", m.MatchID), zap.Bool("listed_open", m.OpenSeat(l.playerID)))
		cred, err := l.dir.JoinMatch(ctx, game, m.MatchID, join)
		if errors.Is(err, ErrJoinRejected) {
			log.Debug("join rejected, trying next match", zap.String("match", m.MatchID), zap.Error(err))
			continue
		}
		if err != nil {
			return Seat{}, fmt.Errorf("join match %s: %w", m.MatchID, err)
		}

		log.Info("joined existing match", zap.String("match", m.MatchID))
		return Seat{GameName: game, MatchID: m.MatchID, PlayerID: l.playerID, Credential: cred}, nil
	}

	matchID, err := l.dir.CreateMatch(ctx, gameName, CreateOptions{NumPlayers: l.numPlayers})
	if err != nil {
		return Seat{}, fmt.Errorf("create match: %w", err)
	}
	log.Debug("created match", zap.String("match", matchID))

	cred, err := l.dir.JoinMatch(ctx, gameName, matchID, join)
	if errors.Is(err, ErrJoinRejected) {
		return Seat{}, fmt.Errorf("%w: match %s: %w", ErrCreateJoinRace, matchID, err)
	}
	if err != nil {
		return Seat{}, fmt.Errorf("join created match %s: %w", matchID, err)
	}

	log.Info("joined new match", zap.String("match", matchID))
	return Seat{GameName: gameName, MatchID: matchID, PlayerID: l.playerID, Credential: cred}, nil
}
