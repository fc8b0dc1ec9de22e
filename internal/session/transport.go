package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/coder/websocket"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

type Endpoint struct {
	MatchID  string
	PlayerID string
}

// Transport opens the real-time channel to the authority.
type Transport interface {
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

// Conn is one open channel. Read is only called from one goroutine at a time.
type Conn interface {
	Read(ctx context.Context) (types.ServerMessage, error)
	Write(ctx context.Context, m types.ClientMessage) error
	Close() error
}

const readLimit = 1 << 20

type WebSocketTransport struct {
	serverURL  string
	gameName   string
	httpClient *http.Client
}

func NewWebSocketTransport(serverURL, gameName string, httpClient *http.Client) *WebSocketTransport {
	return &WebSocketTransport{serverURL: serverURL, gameName: gameName, httpClient: httpClient}
}

func (t *WebSocketTransport) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	target, err := t.url(ep)
	if err != nil {
		return nil, err
	}

	c, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{HTTPClient: t.httpClient})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(readLimit)
	return &wsConn{c: c}, nil
}

func (t *WebSocketTransport) url(ep Endpoint) (string, error) {
	u, err := url.Parse(t.serverURL)
	if err != nil {
		return "", fmt.Errorf("server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("server url: unsupported scheme %q", u.Scheme)
	}
	u.Path = path.Join("/", u.Path, "ws")
	u.RawQuery = url.Values{
		"game":   {t.gameName},
		"match":  {ep.MatchID},
		"player": {ep.PlayerID},
	}.Encode()
	return u.String(), nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) (types.ServerMessage, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
			return types.ServerMessage{}, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return types.ServerMessage{}, err
	}
	var m types.ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return types.ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	return m, nil
}

func (w *wsConn) Write(ctx context.Context, m types.ClientMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return w.c.Write(ctx, websocket.MessageText, payload)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "bye")
}
