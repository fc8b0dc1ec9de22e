package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/engine"
	"github.com/DoyleJ11/boardgame-client/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby starts a new match. MatchID is generated when empty.
type CreateLobby struct {
	GameName string
	MatchID  string
	State    engine.State
	Reply    chan *lobby.Lobby
}

type GetLobby struct {
	MatchID string
	Reply   chan *lobby.Lobby
}

// ListLobbies replies with the matches of one game in creation order.
type ListLobbies struct {
	GameName string
	Reply    chan []*lobby.Lobby
}

type RemoveLobby struct {
	MatchID string
}

type ShutdownHub struct{}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (ListLobbies) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.Named("hub"),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				id := msg.MatchID
				if id == "" {
					id = uuid.NewString()
				}
				if lb := h.lobbies[id]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.GameName, id, msg.State, h.log.Named("lobby"))
				h.lobbies[id] = lb
				h.order = append(h.order, id)
				h.log.Info("match created", zap.String("game", msg.GameName), zap.String("match", id))
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.MatchID] // May be nil

			case ListLobbies:
				var out []*lobby.Lobby
				for _, id := range h.order {
					if lb := h.lobbies[id]; lb.GameName() == msg.GameName {
						out = append(out, lb)
					}
				}
				msg.Reply <- out

			case RemoveLobby:
				if lb := h.lobbies[msg.MatchID]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
					delete(h.lobbies, msg.MatchID)
					h.order = removeID(h.order, msg.MatchID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Inbox() <- lobby.Shutdown{}
	}
	clear(h.lobbies)
	h.order = nil
	h.cancel()
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
