package lobby

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/engine"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

var ErrNoSuchSeat = errors.New("no such seat")
var ErrSeatTaken = errors.New("seat already taken")
var ErrUnauthorized = errors.New("invalid credentials")

type Msg interface{ isLobbyMsg() }

// Claim takes a free seat and returns its credential (HTTP join).
type Claim struct {
	PlayerID string
	Name     string
	Reply    chan ClaimResult
}

func (Claim) isLobbyMsg() {}

type ClaimResult struct {
	Credential string
	Err        error
}

// Join attaches a live connection to an already claimed seat.
type Join struct {
	ClientID   string
	PlayerID   string
	Credential string
	Outbox     chan Snapshot // where this client wants to receive snapshots
	Reply      chan error
}

func (Join) isLobbyMsg() {}

type FromClient struct {
	PlayerID   string
	Credential string
	Cmd        engine.Command
}

func (FromClient) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type Describe struct {
	Reply chan types.MatchDescriptor
}

func (Describe) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type seat struct {
	name       string
	credential string
}

type Lobby struct {
	id       string
	gameName string
	inbox    chan Msg
	state    engine.State
	version  int
	seats    []*seat // nil entry = free
	clients  map[string]chan Snapshot
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func NewLobby(parent context.Context, gameName, id string, initial engine.State, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		id:       id,
		gameName: gameName,
		inbox:    make(chan Msg, 64), // Small buffer
		state:    initial,
		version:  0,
		seats:    make([]*seat, initial.NumPlayers),
		clients:  make(map[string]chan Snapshot),
		ctx:      ctx,
		cancel:   cancel,
		log:      log.With(zap.String("match", id)),
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string       { return l.id }
func (l *Lobby) GameName() string { return l.gameName }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Claim:
				cred, err := l.claim(msg.PlayerID, msg.Name)
				msg.Reply <- ClaimResult{Credential: cred, Err: err}

			case Join:
				if !l.authorized(msg.PlayerID, msg.Credential) {
					msg.Reply <- ErrUnauthorized
					break
				}
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, State: l.state}
				msg.Reply <- nil

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				if !l.authorized(msg.PlayerID, msg.Credential) {
					l.log.Debug("move with bad credentials", zap.String("seat", msg.PlayerID))
					break
				}
				newState, err := engine.Apply(l.state, msg.Cmd)
				if err != nil {
					// Illegal moves are silent: no state change, no broadcast.
					l.log.Debug("move rejected", zap.String("seat", msg.PlayerID), zap.Error(err))
					break
				}
				l.state = newState
				l.version++
				l.broadcast(Snapshot{Version: l.version, State: l.state})

			case Describe:
				msg.Reply <- l.describe()

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) claim(playerID, name string) (string, error) {
	idx, ok := l.seatIndex(playerID)
	if !ok {
		return "", ErrNoSuchSeat
	}
	if l.seats[idx] != nil {
		return "", ErrSeatTaken
	}
	s := &seat{name: name, credential: uuid.NewString()}
	l.seats[idx] = s
	l.log.Info("seat claimed", zap.String("seat", playerID), zap.String("name", name))
	return s.credential, nil
}

func (l *Lobby) authorized(playerID, credential string) bool {
	idx, ok := l.seatIndex(playerID)
	if !ok || l.seats[idx] == nil {
		return false
	}
	return credential != "" && l.seats[idx].credential == credential
}

func (l *Lobby) seatIndex(playerID string) (int, bool) {
	n, err := strconv.Atoi(playerID)
	if err != nil || strconv.Itoa(n) != playerID || n < 0 || n >= len(l.seats) {
		return 0, false
	}
	return n, true
}

func (l *Lobby) describe() types.MatchDescriptor {
	players := make([]types.PlayerSlot, len(l.seats))
	for i, s := range l.seats {
		players[i] = types.PlayerSlot{ID: strconv.Itoa(i)}
		if s != nil {
			players[i].Name = s.name
			players[i].Occupied = true
		}
	}
	return types.MatchDescriptor{GameName: l.gameName, MatchID: l.id, Players: players}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("client", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Send delivers m unless the lobby has already stopped. It reports whether m was queued.
func (l *Lobby) Send(m Msg) bool {
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}
