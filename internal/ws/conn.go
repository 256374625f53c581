package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"askgate/internal/metrics"
)

const writeTimeout = 10 * time.Second

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Signal is a server-to-client control message.
type Signal struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

var openSignal = Signal{Type: "signal", Data: "open"}

// MessageHandler receives every inbound frame of a connection, decoded as text.
// Calls for one connection may run concurrently.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message string, conn *Conn, models Models) error
}

// OrderedHandler is implemented by handlers that must see the messages of a
// connection one at a time, in read order.
type OrderedHandler interface {
	OrderedMessages() bool
}

type receivedAtKey struct{}

// ReceivedAt reports when the read loop took the message being handled off the socket.
func ReceivedAt(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(receivedAtKey{}).(time.Time)
	return t, ok
}

type MessageHandlerFunc func(ctx context.Context, message string, conn *Conn, models Models) error

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, message string, conn *Conn, models Models) error {
	return f(ctx, message, conn, models)
}

// Conn is an accepted WebSocket connection. Writes are serialized, so handlers may
// call Send from any goroutine.
type Conn struct {
	id      string
	ws      *websocket.Conn
	state   atomic.Int32
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger
	metrics *metrics.Metrics

	closeTimeout time.Duration
}

type connOptions struct {
	signalInterval time.Duration
	readLimit      int64
	maxInFlight    int
	closeTimeout   time.Duration
}

func newConn(parent context.Context, id string, ws *websocket.Conn, logger zerolog.Logger, m *metrics.Metrics) *Conn {
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{id: id, ws: ws, ctx: ctx, cancel: cancel, logger: logger, metrics: m, closeTimeout: writeTimeout}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) State() State { return State(c.state.Load()) }

// Context is cancelled once the connection starts closing.
func (c *Conn) Context() context.Context { return c.ctx }

// Send writes v as a single JSON text frame.
func (c *Conn) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.write(b)
}

func (c *Conn) SendText(text string) error {
	return c.write([]byte(text))
}

func (c *Conn) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if st := c.State(); st != StateOpen {
		return fmt.Errorf("send on %s connection", st)
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close starts a normal closure. The read loop observes the peer's reply and
// finishes shutdown, or gives up once the close timeout passes.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.closeTimeout))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// serve runs the read loop until the peer goes away. It returns after every
// handler call for this connection has finished.
func (c *Conn) serve(h MessageHandler, models Models, opts connOptions) {
	if opts.readLimit > 0 {
		c.ws.SetReadLimit(opts.readLimit)
	}
	if opts.closeTimeout > 0 {
		c.closeTimeout = opts.closeTimeout
	}
	limit := opts.maxInFlight
	if o, ok := h.(OrderedHandler); ok && o.OrderedMessages() {
		// With one slot, Go waits for the previous call to return before starting the next.
		limit = 1
	}
	var inflight errgroup.Group
	if limit > 0 {
		inflight.SetLimit(limit)
	}

	go c.signalWhenOpen(opts.signalInterval)
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.logClose(err)
			break
		}
		msg := string(data)
		ctx := context.WithValue(c.ctx, receivedAtKey{}, time.Now())
		inflight.Go(func() error {
			c.dispatch(ctx, h, msg, models)
			return nil
		})
	}

	c.state.Store(int32(StateClosing))
	c.cancel()
	_ = inflight.Wait()
	_ = c.ws.Close()
	c.state.Store(int32(StateClosed))
}

// signalWhenOpen polls the ready state and sends the open beacon once. It stops
// early if the connection closes before it ever opens.
func (c *Conn) signalWhenOpen(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateOpen {
				continue
			}
			if err := c.Send(openSignal); err != nil {
				c.logger.Debug().Err(err).Msg("failed to send open signal")
			}
			return
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, h MessageHandler, msg string, models Models) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.HandlerFailures.Inc()
			c.logger.Error().Interface("panic", r).Msg("message handler panicked")
		}
	}()

	c.metrics.ForwardedMessages.Inc()
	if err := h.HandleMessage(ctx, msg, c, models); err != nil {
		c.metrics.HandlerFailures.Inc()
		c.logger.Error().Err(err).Msg("message handler failed")
	}
}

func (c *Conn) logClose(err error) {
	ev := c.logger.Debug()
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		ev = ev.Int("code", ce.Code).Str("reason", ce.Text)
	} else {
		ev = ev.Err(err)
	}
	ev.Msg("connection closed")
}
