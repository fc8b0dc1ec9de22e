package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/hub"
	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(ctx, zap.NewNop())
	srv := httptest.NewServer(SetupRoutes(h, Options{
		Games:     NewGames("default"),
		PublicURL: "http://example.test",
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createMatch(t *testing.T, base string) string {
	t.Helper()
	resp := post(t, base+"/games/default/create", types.CreateMatchRequest{NumPlayers: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out types.CreateMatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.MatchID)
	return out.MatchID
}

func TestCreateMatch_RejectsUnsupportedPlayerCount(t *testing.T) {
	srv := newServer(t)
	resp := post(t, srv.URL+"/games/default/create", types.CreateMatchRequest{NumPlayers: 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateMatch_UnknownGame(t *testing.T) {
	srv := newServer(t)
	resp := post(t, srv.URL+"/games/chess/create", types.CreateMatchRequest{NumPlayers: 2})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinMatch_SeatRules(t *testing.T) {
	srv := newServer(t)
	id := createMatch(t, srv.URL)
	join := srv.URL + "/games/default/" + id + "/join"

	resp := post(t, join, types.JoinMatchRequest{PlayerID: "0", PlayerName: "Ann"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jr types.JoinMatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jr))
	assert.NotEmpty(t, jr.PlayerCredentials)

	assert.Equal(t, http.StatusConflict, post(t, join, types.JoinMatchRequest{PlayerID: "0"}).StatusCode)
	assert.Equal(t, http.StatusNotFound, post(t, join, types.JoinMatchRequest{PlayerID: "7"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, join, types.JoinMatchRequest{}).StatusCode)

	missing := srv.URL + "/games/default/nope/join"
	assert.Equal(t, http.StatusNotFound, post(t, missing, types.JoinMatchRequest{PlayerID: "0"}).StatusCode)
}

func TestGetMatch_ShowsOccupancy(t *testing.T) {
	srv := newServer(t)
	id := createMatch(t, srv.URL)
	post(t, srv.URL+"/games/default/"+id+"/join", types.JoinMatchRequest{PlayerID: "1", PlayerName: "Bo"})

	resp, err := http.Get(srv.URL + "/games/default/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var md types.MatchDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&md))
	assert.Equal(t, id, md.MatchID)
	assert.True(t, md.OpenSeat("0"))
	assert.False(t, md.OpenSeat("1"))
}

func TestMatchQR_ServesPNG(t *testing.T) {
	srv := newServer(t)
	id := createMatch(t, srv.URL)

	resp, err := http.Get(srv.URL + "/games/default/" + id + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp2, err := http.Get(srv.URL + "/games/default/nope/qr")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
