package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/engine"
	"github.com/DoyleJ11/boardgame-client/internal/hub"
	"github.com/DoyleJ11/boardgame-client/internal/lobby"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

const (
	syncTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
)

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		if matchID == "" {
			http.Error(w, "missing match", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{MatchID: matchID, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("match", matchID), zap.String("client", clientID))

		hello, err := readSync(r.Context(), conn)
		if err != nil {
			log.Debug("bad sync", zap.Error(err))
			writeError(r.Context(), conn, types.CodeBadRequest, err.Error())
			conn.Close(websocket.StatusPolicyViolation, "expected Sync")
			return
		}

		out := make(chan lobby.Snapshot, 8)
		joined := make(chan error, 1)
		if !lb.Send(lobby.Join{
			ClientID:   clientID,
			PlayerID:   hello.PlayerID,
			Credential: hello.Credentials,
			Outbox:     out,
			Reply:      joined,
		}) {
			conn.Close(websocket.StatusGoingAway, "match closed")
			return
		}
		select {
		case err = <-joined:
		case <-lb.Done():
			conn.Close(websocket.StatusGoingAway, "match closed")
			return
		}
		if err != nil {
			log.Info("sync rejected", zap.String("seat", hello.PlayerID), zap.Error(err))
			writeError(r.Context(), conn, types.CodeUnauthorized, err.Error())
			conn.Close(websocket.StatusPolicyViolation, "unauthorized")
			return
		}
		defer lb.Send(lobby.Leave{ClientID: clientID})
		log.Info("client synced", zap.String("seat", hello.PlayerID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			msgType := types.MsgSync
			for snap := range out {
				state := engine.ToSnapshot(snap.Version, snap.State)
				if err := write(writeCtx, conn, types.ServerMessage{Type: msgType, State: &state}); err != nil {
					log.Debug("write failed", zap.Error(err))
				}
				msgType = types.MsgUpdate
			}
			// Lobby dropped us or shut down.
			conn.Close(websocket.StatusGoingAway, "match closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("read failed", zap.Error(err))
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, types.CodeBadRequest, "bad json")
				continue
			}

			cmd, ok := toEngineCommand(hello.PlayerID, cm)
			if !ok {
				writeError(r.Context(), conn, types.CodeBadRequest, "unknown type")
				continue
			}

			if !lb.Send(lobby.FromClient{PlayerID: hello.PlayerID, Credential: cm.Credentials, Cmd: cmd}) {
				return
			}
		}
	}
}

func readSync(ctx context.Context, conn *websocket.Conn) (types.ClientMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return types.ClientMessage{}, err
	}
	var cm types.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return types.ClientMessage{}, errors.New("bad json")
	}
	if cm.Type != types.MsgSync || cm.PlayerID == "" {
		return types.ClientMessage{}, errors.New("first message must be Sync")
	}
	return cm, nil
}

func toEngineCommand(playerID string, m types.ClientMessage) (engine.Command, bool) {
	if m.Type != types.MsgMove {
		return engine.Command{}, false
	}

	switch engine.CommandType(m.Move) {
	case engine.CmdClickCell:
		if len(m.Args) != 1 {
			return engine.Command{}, false
		}
		var cell int
		if err := json.Unmarshal(m.Args[0], &cell); err != nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdClickCell, PlayerID: playerID, Cell: cell}, true
	default:
		return engine.Command{}, false
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func writeError(ctx context.Context, conn *websocket.Conn, code, text string) {
	_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Code: code, Error: text})
}
