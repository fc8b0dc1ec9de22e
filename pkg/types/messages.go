package types

import "encoding/json"

// Lobby API (HTTP)
//   GET  /games/{name}                  -> ListMatchesResponse
//   POST /games/{name}/create           CreateMatchRequest -> CreateMatchResponse
//   GET  /games/{name}/{matchID}        -> MatchDescriptor
//   POST /games/{name}/{matchID}/join   JoinMatchRequest -> JoinMatchResponse

type ListMatchesResponse struct {
	Matches []MatchDescriptor `json:"matches"`
}

type CreateMatchRequest struct {
	NumPlayers int `json:"numPlayers"`
}

type CreateMatchResponse struct {
	MatchID string `json:"matchID"`
}

type JoinMatchRequest struct {
	PlayerID   string `json:"playerID"`
	PlayerName string `json:"playerName"`
}

type JoinMatchResponse struct {
	PlayerCredentials string `json:"playerCredentials"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Channel (websocket)
//
// Client -> Server
//   Sync: matchID, playerID, credentials. Must be the first message.
//   Move: move, args, credentials
//
// Server -> Client
//   Sync:   state (reply to Sync)
//   Update: state (after every accepted move)
//   Error:  code, error

const (
	MsgSync   = "Sync"
	MsgMove   = "Move"
	MsgUpdate = "Update"
	MsgError  = "Error"
)

const (
	CodeUnauthorized = "unauthorized"
	CodeBadRequest   = "bad_request"
	CodeNotFound     = "not_found"
)

type ClientMessage struct {
	Type        string            `json:"type"`
	MatchID     string            `json:"matchID,omitempty"`
	PlayerID    string            `json:"playerID,omitempty"`
	Credentials string            `json:"credentials,omitempty"`
	Move        string            `json:"move,omitempty"`
	Args        []json.RawMessage `json:"args,omitempty"`
}

type ServerMessage struct {
	Type  string    `json:"type"` // "Sync" | "Update" | "Error"
	State *Snapshot `json:"state,omitempty"`
	Code  string    `json:"code,omitempty"`
	Error string    `json:"error,omitempty"`
}
