package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ticker-scanner/internal/domain"
)

// GatewayConfig configures the live message stream.
type GatewayConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing control frames.
	WriteTimeout time.Duration
	// Buffer is the outbound channel capacity.
	Buffer int
}

// DefaultGatewayConfig returns default gateway configuration.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            256,
	}
}

// gatewayEvent is one frame from the gateway: an event type plus the
// message payload for message-create events.
type gatewayEvent struct {
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
}

const eventMessageCreate = "MESSAGE_CREATE"

// Gateway implements Stream over a websocket connection to the chat
// platform's event gateway. It reconnects with exponential backoff and
// keeps the outbound channel open across reconnects; the channel closes
// only on Close or context cancellation.
type Gateway struct {
	endpoint string
	config   GatewayConfig
	rest     *RESTClient // reused for wire conversion (agent flags, permalinks)
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	out  chan *domain.ChatMessage
	done chan struct{}
	wg   sync.WaitGroup
}

// NewGateway connects to the event gateway and starts the read loop.
// The rest client supplies wire conversion so both live and historical
// messages carry identical flags and permalinks.
func NewGateway(ctx context.Context, endpoint string, rest *RESTClient, config *GatewayConfig, logger *log.Logger) (*Gateway, error) {
	cfg := DefaultGatewayConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	g := &Gateway{
		endpoint: endpoint,
		config:   cfg,
		rest:     rest,
		logger:   logger,
		out:      make(chan *domain.ChatMessage, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := g.connect(ctx); err != nil {
		return nil, err
	}

	g.wg.Add(1)
	go g.readLoop(ctx)

	g.wg.Add(1)
	go g.pingLoop()

	return g, nil
}

// Messages returns the live message channel.
func (g *Gateway) Messages() <-chan *domain.ChatMessage {
	return g.out
}

// Close shuts the stream down and closes the message channel.
func (g *Gateway) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(g.done)

	g.connMu.Lock()
	if g.conn != nil {
		g.conn.Close()
	}
	g.connMu.Unlock()

	g.wg.Wait()
	close(g.out)
	return nil
}

// connect establishes the websocket connection.
func (g *Gateway) connect(ctx context.Context) error {
	g.connMu.Lock()
	defer g.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, g.endpoint, nil)
	if err != nil {
		return fmt.Errorf("gateway dial: %w", err)
	}

	g.conn = conn
	return nil
}

// readLoop reads frames, forwards message-create events, and reconnects
// on failure until the stream is closed.
func (g *Gateway) readLoop(ctx context.Context) {
	defer g.wg.Done()

	delay := g.config.ReconnectDelay
	for {
		g.connMu.Lock()
		conn := g.conn
		g.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
			return nil
		})

		_, data, err := conn.ReadMessage()
		if err == nil {
			delay = g.config.ReconnectDelay
			g.dispatch(data)
			continue
		}

		if g.closed.Load() || ctx.Err() != nil {
			return
		}

		g.logger.Printf("gateway read error, reconnecting in %v: %v", delay, err)
		select {
		case <-g.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > g.config.MaxReconnectDelay {
			delay = g.config.MaxReconnectDelay
		}

		if err := g.connect(ctx); err != nil {
			g.logger.Printf("gateway reconnect failed: %v", err)
		}
	}
}

// dispatch parses one frame and forwards message events. A full outbound
// buffer drops the message rather than stalling the read loop; backfill
// closes the gap on the next run.
func (g *Gateway) dispatch(data []byte) {
	var ev gatewayEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		g.logger.Printf("gateway: skipping malformed frame: %v", err)
		return
	}
	if ev.Type != eventMessageCreate {
		return
	}

	var wire messageWire
	if err := json.Unmarshal(ev.Data, &wire); err != nil {
		g.logger.Printf("gateway: skipping malformed message event: %v", err)
		return
	}

	msg := g.rest.convert(&wire)
	select {
	case g.out <- msg:
	default:
		g.logger.Printf("gateway: outbound buffer full, dropping message %s", msg.ID)
	}
}

// pingLoop keeps the connection alive.
func (g *Gateway) pingLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.connMu.Lock()
			conn := g.conn
			g.connMu.Unlock()
			deadline := time.Now().Add(g.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil && !g.closed.Load() {
				g.logger.Printf("gateway ping failed: %v", err)
			}
		}
	}
}

// interface check
var _ Stream = (*Gateway)(nil)
