package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/engine"
	"github.com/DoyleJ11/boardgame-client/internal/hub"
	"github.com/DoyleJ11/boardgame-client/internal/lobby"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

// Games is the set of game names the directory serves.
type Games map[string]bool

func NewGames(names ...string) Games {
	g := make(Games, len(names))
	for _, n := range names {
		g[n] = true
	}
	return g
}

func ListMatches(h *hub.Hub, games Games) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !games[name] {
			writeError(w, http.StatusNotFound, "unknown game")
			return
		}

		reply := make(chan []*lobby.Lobby, 1)
		h.Inbox() <- hub.ListLobbies{GameName: name, Reply: reply}

		resp := types.ListMatchesResponse{Matches: []types.MatchDescriptor{}}
		for _, lb := range <-reply {
			resp.Matches = append(resp.Matches, describe(lb))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func CreateMatch(h *hub.Hub, games Games, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !games[name] {
			writeError(w, http.StatusNotFound, "unknown game")
			return
		}

		var req types.CreateMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if !engine.SupportsPlayers(req.NumPlayers) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("numPlayers must be %d", engine.NumPlayers))
			return
		}

		state := engine.NewEmptyState()
		state.NumPlayers = req.NumPlayers

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.CreateLobby{GameName: name, State: state, Reply: reply}
		lb := <-reply
		if lb == nil {
			writeError(w, http.StatusInternalServerError, "failed to create match")
			return
		}

		log.Info("created match", zap.String("game", name), zap.String("match", lb.ID()))
		writeJSON(w, http.StatusCreated, types.CreateMatchResponse{MatchID: lb.ID()})
	}
}

func GetMatch(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := findLobby(h, r)
		if lb == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		writeJSON(w, http.StatusOK, describe(lb))
	}
}

func JoinMatch(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := findLobby(h, r)
		if lb == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}

		var req types.JoinMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerID is required")
			return
		}

		reply := make(chan lobby.ClaimResult, 1)
		lb.Inbox() <- lobby.Claim{PlayerID: req.PlayerID, Name: req.PlayerName, Reply: reply}
		res := <-reply

		switch {
		case errors.Is(res.Err, lobby.ErrNoSuchSeat):
			writeError(w, http.StatusNotFound, res.Err.Error())
		case errors.Is(res.Err, lobby.ErrSeatTaken):
			writeError(w, http.StatusConflict, res.Err.Error())
		case res.Err != nil:
			writeError(w, http.StatusInternalServerError, res.Err.Error())
		default:
			log.Info("player joined", zap.String("match", lb.ID()), zap.String("seat", req.PlayerID))
			writeJSON(w, http.StatusOK, types.JoinMatchResponse{PlayerCredentials: res.Credential})
		}
	}
}

// MatchQR serves a PNG QR code pointing at the match's descriptor URL.
func MatchQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := findLobby(h, r)
		if lb == nil {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}

		target, err := url.JoinPath(publicURL, "games", lb.GameName(), lb.ID())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "bad public url")
			return
		}
		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode qr")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func findLobby(h *hub.Hub, r *http.Request) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.GetLobby{MatchID: chi.URLParam(r, "matchID"), Reply: reply}
	lb := <-reply
	if lb == nil || lb.GameName() != chi.URLParam(r, "name") {
		return nil
	}
	return lb
}

func describe(lb *lobby.Lobby) types.MatchDescriptor {
	reply := make(chan types.MatchDescriptor, 1)
	lb.Inbox() <- lobby.Describe{Reply: reply}
	return <-reply
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
