package matchmaking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

var ErrDirectoryUnreachable = errors.New("matchmaking directory unreachable")
var ErrJoinRejected = errors.New("join rejected")
var ErrRequestRejected = errors.New("directory rejected request")

type JoinOptions struct {
	PlayerID   string
	PlayerName string
}

type CreateOptions struct {
	NumPlayers int
}

// Directory is the matchmaking service as seen by the locator.
type Directory interface {
	ListMatches(ctx context.Context, gameName string) ([]types.MatchDescriptor, error)
	JoinMatch(ctx context.Context, gameName, matchID string, opts JoinOptions) (credential string, err error)
	CreateMatch(ctx context.Context, gameName string, opts CreateOptions) (matchID string, err error)
}

// HTTPDirectory talks to the lobby REST API.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string, client *http.Client) *HTTPDirectory {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPDirectory{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (d *HTTPDirectory) ListMatches(ctx context.Context, gameName string) ([]types.MatchDescriptor, error) {
	var resp types.ListMatchesResponse
	status, msg, err := d.do(ctx, http.MethodGet, d.path(gameName), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: list %s: %d %s", ErrRequestRejected, gameName, status, msg)
	}
	return resp.Matches, nil
}

func (d *HTTPDirectory) JoinMatch(ctx context.Context, gameName, matchID string, opts JoinOptions) (string, error) {
	req := types.JoinMatchRequest{PlayerID: opts.PlayerID, PlayerName: opts.PlayerName}
	var resp types.JoinMatchResponse
	status, msg, err := d.do(ctx, http.MethodPost, d.path(gameName, matchID, "join"), req, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: match %s seat %s: %d %s", ErrJoinRejected, matchID, opts.PlayerID, status, msg)
	}
	if resp.PlayerCredentials == "" {
		return "", fmt.Errorf("%w: match %s returned no credentials", ErrJoinRejected, matchID)
	}
	return resp.PlayerCredentials, nil
}

func (d *HTTPDirectory) CreateMatch(ctx context.Context, gameName string, opts CreateOptions) (string, error) {
	req := types.CreateMatchRequest{NumPlayers: opts.NumPlayers}
	var resp types.CreateMatchResponse
	status, msg, err := d.do(ctx, http.MethodPost, d.path(gameName, "create"), req, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("%w: create %s: %d %s", ErrRequestRejected, gameName, status, msg)
	}
	return resp.MatchID, nil
}

func (d *HTTPDirectory) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return d.baseURL + "/games/" + strings.Join(escaped, "/")
}

// do performs one round trip. Transport failures and 5xx responses are
// reported as ErrDirectoryUnreachable; other statuses are returned to the caller
// together with the server's error message.
func (d *HTTPDirectory) do(ctx context.Context, method, target string, body, out any) (int, string, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, "", err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrDirectoryUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return resp.StatusCode, "", fmt.Errorf("%w: %s %s: status %d", ErrDirectoryUnreachable, method, target, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		var e types.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, e.Error, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("%w: decode %s: %w", ErrDirectoryUnreachable, target, err)
	}
	return resp.StatusCode, "", nil
}
