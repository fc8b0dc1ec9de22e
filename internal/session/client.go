package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/pkg/types"
)

var ErrConnection = errors.New("connection error")
var ErrAuth = errors.New("credentials rejected")
var ErrNotConnected = fmt.Errorf("%w: not connected", ErrConnection)
var ErrOutboxFull = errors.New("move outbox full")
var ErrClosed = errors.New("session closed")

type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Synced
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Synced:
		return "synced"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

type key struct {
	matchID    string
	playerID   string
	credential string
}

type msg interface{ isSessionMsg() }

type connectMsg struct {
	key  key
	plan chan int // generation the caller must dial for, or -1
	done chan error
}

// attachMsg reports the outcome of one handshake for a generation.
type attachMsg struct {
	gen  int
	conn Conn
	snap *types.Snapshot
	err  error
}

type attemptMsg struct{ gen int }

type pushMsg struct {
	live *liveSession
	snap *types.Snapshot
}

type lostMsg struct {
	live *liveSession
	err  error
}

type subscribeMsg struct{ sub *Subscription }

func (connectMsg) isSessionMsg()   {}
func (attachMsg) isSessionMsg()    {}
func (attemptMsg) isSessionMsg()   {}
func (pushMsg) isSessionMsg()      {}
func (lostMsg) isSessionMsg()      {}
func (subscribeMsg) isSessionMsg() {}

// liveSession is one established connection and its writer queue.
type liveSession struct {
	conn       Conn
	credential string
	outbox     chan types.ClientMessage
	ctx        context.Context
	cancel     context.CancelFunc
}

// Subscription is returned by Subscribe. Cancel may be called from inside the callback.
type Subscription struct {
	fn        func(*types.Snapshot)
	cancelled atomic.Bool
}

func (s *Subscription) Cancel() { s.cancelled.Store(true) }

// Client keeps one authenticated session with the authority for a match seat.
// Snapshots are delivered to subscribers from a single goroutine, in arrival order.
type Client struct {
	transport Transport
	inbox     chan msg
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
	closeErr  error
	log       *zap.Logger

	minBackoff       time.Duration
	maxBackoff       time.Duration
	outboxSize       int
	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	// owned by loop
	key       key
	gen       int
	genCtx    context.Context
	genCancel context.CancelFunc
	waiters   []chan error
	subs      []*Subscription

	// read by SubmitMove, State and Snapshot; written by loop
	mu     sync.Mutex
	state  ConnState
	live   *liveSession
	latest *types.Snapshot
	closed bool
	// set when the authority rejected the seat; cleared by the next Connect
	rejected error
}

type Option func(*Client)

func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) { c.minBackoff, c.maxBackoff = min, max }
}

func WithOutboxSize(n int) Option { return func(c *Client) { c.outboxSize = n } }

func WithHandshakeTimeout(d time.Duration) Option { return func(c *Client) { c.handshakeTimeout = d } }

func NewClient(parent context.Context, transport Transport, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		transport:        transport,
		inbox:            make(chan msg, 64),
		stopped:          make(chan struct{}),
		ctx:              ctx,
		cancel:           cancel,
		log:              zap.NewNop(),
		minBackoff:       250 * time.Millisecond,
		maxBackoff:       5 * time.Second,
		outboxSize:       16,
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     3 * time.Second,
		gen:              -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("session")
	c.genCtx, c.genCancel = context.WithCancel(ctx)

	go c.loop()
	return c
}

// Connect establishes the session for a seat and returns once the first
// snapshot has arrived. Calling it again with the same seat while connecting
// or synced is a no-op that waits for the current attempt.
func (c *Client) Connect(ctx context.Context, matchID, playerID, credential string) error {
	k := key{matchID: matchID, playerID: playerID, credential: credential}
	plan := make(chan int, 1)
	done := make(chan error, 1)
	if err := c.send(ctx, connectMsg{key: k, plan: plan, done: done}); err != nil {
		return err
	}

	var gen int
	select {
	case gen = <-plan:
	case <-c.ctx.Done():
		return ErrClosed
	}
	if gen >= 0 {
		hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
		conn, snap, err := c.handshake(hctx, k)
		cancel()
		if err := c.send(context.Background(), attachMsg{gen: gen, conn: conn, snap: snap, err: err}); err != nil {
			if conn != nil {
				conn.Close()
			}
			return err
		}
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Subscribe registers fn. It is called immediately with the current snapshot
// (nil before the first push) and then once per accepted snapshot.
func (c *Client) Subscribe(fn func(*types.Snapshot)) *Subscription {
	sub := &Subscription{fn: fn}
	select {
	case c.inbox <- subscribeMsg{sub: sub}:
	case <-c.ctx.Done():
		sub.Cancel()
	}
	return sub
}

// SubmitMove queues a move for the authority. It does not wait for the move
// to be applied; illegal moves simply never show up in a later snapshot.
func (c *Client) SubmitMove(move string, args ...any) error {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode arg %d of %s: %w", i, move, err)
		}
		raw[i] = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.rejected != nil:
		return c.rejected
	case c.state != Synced || c.live == nil:
		return ErrNotConnected
	}

	m := types.ClientMessage{
		Type:        types.MsgMove,
		Move:        move,
		Args:        raw,
		Credentials: c.live.credential,
	}
	select {
	case c.live.outbox <- m:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the last delivered snapshot, or nil.
func (c *Client) Snapshot() *types.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Close ends the session. No callbacks run after Close returns.
func (c *Client) Close() error {
	c.cancel()
	<-c.stopped
	return c.closeErr
}

func (c *Client) send(ctx context.Context, m msg) error {
	select {
	case c.inbox <- m:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) loop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case connectMsg:
				c.handleConnect(msg)

			case attemptMsg:
				if msg.gen == c.gen && c.currentLive() == nil {
					c.setState(Connecting)
				}

			case attachMsg:
				c.handleAttach(msg)

			case pushMsg:
				if msg.live == c.currentLive() {
					c.deliver(msg.snap)
				}

			case lostMsg:
				c.handleLost(msg)

			case subscribeMsg:
				if msg.sub.cancelled.Load() {
					break
				}
				c.subs = append(c.subs, msg.sub)
				msg.sub.fn(c.Snapshot())
				c.prune()
			}
		}
	}
}

func (c *Client) handleConnect(msg connectMsg) {
	if msg.key == c.key && c.gen >= 0 {
		switch c.State() {
		case Synced:
			msg.plan <- -1
			msg.done <- nil
			return
		case Connecting:
			c.waiters = append(c.waiters, msg.done)
			msg.plan <- -1
			return
		}
	}

	// New seat, or a retry after the previous attempt failed.
	c.teardown()
	c.failWaiters(fmt.Errorf("%w: superseded by a new connect", ErrConnection))
	c.genCancel()
	c.genCtx, c.genCancel = context.WithCancel(c.ctx)
	c.gen++

	if msg.key != c.key {
		c.key = msg.key
		c.mu.Lock()
		hadState := c.latest != nil
		c.latest = nil
		c.mu.Unlock()
		if hadState {
			c.notify(nil)
		}
	}

	c.mu.Lock()
	c.state = Connecting
	c.rejected = nil
	c.mu.Unlock()
	c.waiters = append(c.waiters, msg.done)
	msg.plan <- c.gen
	c.log.Debug("connecting", zap.String("match", c.key.matchID), zap.String("seat", c.key.playerID), zap.Int("gen", c.gen))
}

func (c *Client) handleAttach(msg attachMsg) {
	if msg.gen != c.gen || c.currentLive() != nil {
		// Superseded attempt.
		if msg.conn != nil {
			msg.conn.Close()
		}
		return
	}

	if msg.err != nil {
		c.setState(Disconnected)
		if errors.Is(msg.err, ErrAuth) {
			c.reject(msg.err)
		}
		c.failWaiters(msg.err)
		c.log.Warn("connect failed", zap.String("match", c.key.matchID), zap.Error(msg.err))
		return
	}

	ctx, cancel := context.WithCancel(c.genCtx)
	live := &liveSession{
		conn:       msg.conn,
		credential: c.key.credential,
		outbox:     make(chan types.ClientMessage, c.outboxSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	c.mu.Lock()
	c.live = live
	c.state = Synced
	c.mu.Unlock()

	go c.writer(live)
	go c.reader(live)

	c.log.Info("synced", zap.String("match", c.key.matchID), zap.String("seat", c.key.playerID))
	c.deliver(msg.snap)
	c.failWaiters(nil)
}

func (c *Client) handleLost(msg lostMsg) {
	if msg.live != c.currentLive() {
		return
	}
	c.teardown()
	c.setState(Disconnected)

	if errors.Is(msg.err, ErrAuth) {
		c.reject(msg.err)
		c.log.Error("session rejected by authority", zap.String("match", c.key.matchID), zap.Error(msg.err))
		return
	}
	c.log.Warn("connection lost, reconnecting", zap.String("match", c.key.matchID), zap.Error(msg.err))
	go c.reconnect(c.genCtx, c.gen, c.key)
}

func (c *Client) reject(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = err
}

// deliver applies the ordering rules and fans the snapshot out to subscribers.
func (c *Client) deliver(snap *types.Snapshot) {
	if snap == nil {
		return
	}

	c.mu.Lock()
	prev := c.latest
	if prev != nil {
		if snap.Ctx.Turn < prev.Ctx.Turn {
			c.mu.Unlock()
			c.log.Debug("dropping stale snapshot", zap.Int("turn", snap.Ctx.Turn), zap.Int("last_turn", prev.Ctx.Turn))
			return
		}
		if prev.Over() && !snap.Over() {
			c.mu.Unlock()
			c.log.Warn("dropping snapshot that reopens a finished match", zap.Int("turn", snap.Ctx.Turn))
			return
		}
	}
	c.latest = snap
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Client) notify(snap *types.Snapshot) {
	for _, sub := range c.subs {
		if !sub.cancelled.Load() {
			sub.fn(snap)
		}
	}
	c.prune()
}

func (c *Client) prune() {
	kept := c.subs[:0]
	for _, sub := range c.subs {
		if !sub.cancelled.Load() {
			kept = append(kept, sub)
		}
	}
	clear(c.subs[len(kept):])
	c.subs = kept
}

func (c *Client) failWaiters(err error) {
	for _, w := range c.waiters {
		w <- err
	}
	c.waiters = nil
}

func (c *Client) currentLive() *liveSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) teardown() error {
	c.mu.Lock()
	live := c.live
	c.live = nil
	c.state = Disconnected
	c.mu.Unlock()

	if live == nil {
		return nil
	}
	live.cancel()
	return live.conn.Close()
}

func (c *Client) shutdown() {
	c.closeErr = c.teardown()
	c.genCancel()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.failWaiters(ErrClosed)
	c.subs = nil
}

func (c *Client) writer(live *liveSession) {
	for {
		select {
		case <-live.ctx.Done():
			return
		case m := <-live.outbox:
			ctx, cancel := context.WithTimeout(live.ctx, c.writeTimeout)
			err := live.conn.Write(ctx, m)
			cancel()
			if err != nil {
				c.log.Debug("write failed", zap.String("move", m.Move), zap.Error(err))
				// The reader notices the closed connection and reports the loss.
				live.conn.Close()
				return
			}
		}
	}
}

func (c *Client) reader(live *liveSession) {
	for {
		m, err := live.conn.Read(live.ctx)
		if err != nil {
			_ = c.send(context.Background(), lostMsg{live: live, err: err})
			return
		}

		switch m.Type {
		case types.MsgSync, types.MsgUpdate:
			if m.State == nil {
				c.log.Debug("state message without state", zap.String("type", m.Type))
				continue
			}
			if err := c.send(context.Background(), pushMsg{live: live, snap: m.State}); err != nil {
				return
			}
		case types.MsgError:
			if m.Code == types.CodeUnauthorized {
				_ = c.send(context.Background(), lostMsg{live: live, err: fmt.Errorf("%w: %s", ErrAuth, m.Error)})
				return
			}
			c.log.Warn("authority reported an error", zap.String("code", m.Code), zap.String("error", m.Error))
		default:
			c.log.Debug("ignoring unknown message", zap.String("type", m.Type))
		}
	}
}

func (c *Client) reconnect(ctx context.Context, gen int, k key) {
	b := newBackoff(c.minBackoff, c.maxBackoff)
	for {
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := c.send(ctx, attemptMsg{gen: gen}); err != nil {
			return
		}
		hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
		conn, snap, err := c.handshake(hctx, k)
		cancel()
		if sendErr := c.send(ctx, attachMsg{gen: gen, conn: conn, snap: snap, err: err}); sendErr != nil {
			if conn != nil {
				conn.Close()
			}
			return
		}
		if err == nil || errors.Is(err, ErrAuth) {
			return
		}
	}
}

// handshake dials the authority and waits for the Sync reply.
func (c *Client) handshake(ctx context.Context, k key) (Conn, *types.Snapshot, error) {
	conn, err := c.transport.Dial(ctx, Endpoint{MatchID: k.matchID, PlayerID: k.playerID})
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: dial: %w", ErrConnection, err)
	}

	hello := types.ClientMessage{
		Type:        types.MsgSync,
		MatchID:     k.matchID,
		PlayerID:    k.playerID,
		Credentials: k.credential,
	}
	if err := conn.Write(ctx, hello); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: sync: %w", ErrConnection, err)
	}

	reply, err := conn.Read(ctx)
	if err != nil {
		conn.Close()
		if errors.Is(err, ErrAuth) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: sync reply: %w", ErrConnection, err)
	}

	switch {
	case reply.Type == types.MsgSync && reply.State != nil:
		return conn, reply.State, nil
	case reply.Type == types.MsgError && reply.Code == types.CodeUnauthorized:
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrAuth, reply.Error)
	default:
		conn.Close()
		return nil, nil, fmt.Errorf("%w: unexpected %q reply to sync: %s", ErrConnection, reply.Type, reply.Error)
	}
}
