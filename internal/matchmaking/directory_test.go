package matchmaking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/httpapi"
	"github.com/DoyleJ11/boardgame-client/internal/hub"
)

func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, zap.NewNop())
	srv := httptest.NewServer(httpapi.SetupRoutes(h, httpapi.Options{Games: httpapi.NewGames("default")}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPDirectory_CreateListJoin(t *testing.T) {
	srv := newDirectoryServer(t)
	dir := NewHTTPDirectory(srv.URL+"/", nil)
	ctx := context.Background()

	matches, err := dir.ListMatches(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, matches)

	id, err := dir.CreateMatch(ctx, "default", CreateOptions{NumPlayers: 2})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cred, err := dir.JoinMatch(ctx, "default", id, JoinOptions{PlayerID: "0", PlayerName: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, cred)

	matches, err = dir.ListMatches(ctx, "default")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].MatchID)
	assert.True(t, matches[0].Players[0].Occupied)
	assert.False(t, matches[0].OpenSeat("0"))
	assert.True(t, matches[0].OpenSeat("1"))

	_, err = dir.JoinMatch(ctx, "default", id, JoinOptions{PlayerID: "0", PlayerName: "Mallory"})
	require.ErrorIs(t, err, ErrJoinRejected)
}

func TestHTTPDirectory_ErrorsAreClassified(t *testing.T) {
	srv := newDirectoryServer(t)
	dir := NewHTTPDirectory(srv.URL, nil)
	ctx := context.Background()

	_, err := dir.ListMatches(ctx, "chess")
	require.ErrorIs(t, err, ErrRequestRejected)

	_, err = dir.CreateMatch(ctx, "default", CreateOptions{NumPlayers: 3})
	require.ErrorIs(t, err, ErrRequestRejected)

	_, err = dir.JoinMatch(ctx, "default", "missing", JoinOptions{PlayerID: "0"})
	require.ErrorIs(t, err, ErrJoinRejected)

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	_, err = NewHTTPDirectory(down.URL, nil).ListMatches(ctx, "default")
	require.ErrorIs(t, err, ErrDirectoryUnreachable)
}

func TestHTTPDirectory_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPDirectory(srv.URL, nil).ListMatches(context.Background(), "default")
	require.ErrorIs(t, err, ErrDirectoryUnreachable)
}

func TestLocate_AgainstHTTPDirectory(t *testing.T) {
	srv := newDirectoryServer(t)
	dir := NewHTTPDirectory(srv.URL, nil)
	ctx := context.Background()

	first, err := NewLocator(dir).Locate(ctx, "default")
	require.NoError(t, err)

	// Same fixed seat: the existing match is full for seat 0, so a second match is created.
	second, err := NewLocator(dir).Locate(ctx, "default")
	require.NoError(t, err)
	assert.NotEqual(t, first.MatchID, second.MatchID)

	// Seat 1 fits into the first match.
	third, err := NewLocator(dir, WithSeat("1")).Locate(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, first.MatchID, third.MatchID)
}
