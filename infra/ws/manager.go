// Package ws implements the persistent police channel on top of
// gorilla/websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/safih1/policedispatch/core/logger"
	"github.com/safih1/policedispatch/core/transport"
)

// Manager owns the single websocket to the dispatch backend. It redials with
// bounded exponential backoff after an unexpected closure and parks in
// StateFailed once the attempt ceiling is reached.
type Manager struct {
	cfg    Config
	header http.Header
	dialer *websocket.Dialer
	log    logger.Logger

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff

	mu            sync.Mutex
	conn          *websocket.Conn
	state         transport.State
	handler       transport.Handler
	stateHandlers []transport.StateHandler

	writeMu   sync.Mutex
	retry     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.Channel = (*Manager)(nil)

// NewManager prepares a channel; nothing is dialed until Run.
func NewManager(cfg Config, header http.Header, log logger.Logger) *Manager {
	cfg.SetDefaults()
	m := &Manager{
		cfg:    cfg,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutSeconds) * time.Second,
		},
		log:    logger.OrNop(log),
		state:  transport.StateIdle,
		retry:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	m.newBackOff = m.defaultBackOff
	return m
}

func (m *Manager) defaultBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.cfg.initialBackoff()
	exp.MaxInterval = m.cfg.maxBackoff()
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.2
	exp.MaxElapsedTime = 0
	return backoff.WithMaxRetries(exp, uint64(m.cfg.MaxAttempts))
}

// OnMessage registers the inbound callback. Frames are delivered one at a
// time, in arrival order, from the reader goroutine.
func (m *Manager) OnMessage(h transport.Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// OnStateChange registers a listener for state transitions.
func (m *Manager) OnStateChange(h transport.StateHandler) {
	m.mu.Lock()
	m.stateHandlers = append(m.stateHandlers, h)
	m.mu.Unlock()
}

// State returns the current channel state.
func (m *Manager) State() transport.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnect asks a failed channel to start a new round of attempts.
func (m *Manager) Reconnect() {
	select {
	case m.retry <- struct{}{}:
	default:
	}
}

// Run connects and keeps the channel alive until ctx is cancelled or Close
// is called.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	reconnect := false
	for {
		conn, err := m.dial(ctx, reconnect)
		if ctx.Err() != nil {
			m.setState(transport.StateClosed, nil)
			return nil
		}
		if err != nil {
			m.log.Errorf("police channel unavailable: %v", err)
			m.setState(transport.StateFailed, err)
			select {
			case <-m.retry:
				m.log.Infof("reconnect requested")
				reconnect = false
				continue
			case <-ctx.Done():
				m.setState(transport.StateClosed, nil)
				return nil
			}
		}

		m.attach(conn)
		err = m.readLoop(ctx, conn)
		m.detach(conn)
		if ctx.Err() != nil {
			m.setState(transport.StateClosed, nil)
			return nil
		}
		m.log.Warnf("police channel lost: %v", err)
		m.setState(transport.StateConnecting, err)
		reconnect = true
	}
}

// dial tries to open the socket. After a loss the first attempt waits for
// the initial backoff; the first connect of a round is immediate.
func (m *Manager) dial(ctx context.Context, reconnect bool) (*websocket.Conn, error) {
	b := m.newBackOff()
	b.Reset()
	attempts := 0
	var lastErr error
	for {
		if reconnect || attempts > 0 {
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				return nil, &transport.ConnectionError{URL: m.cfg.URL, Attempts: attempts, Err: lastErr}
			}
			m.log.Infof("reconnecting to police channel in %s", wait)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
		attempts++
		m.setState(transport.StateConnecting, nil)
		conn, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, m.header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			dialAttempts.WithLabelValues("success").Inc()
			return conn, nil
		}
		dialAttempts.WithLabelValues("failure").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.log.Warnf("dial attempt %d failed: %v", attempts, err)
		lastErr = err
	}
}

func (m *Manager) attach(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	channelOpen.Set(1)
	m.log.Infof("police channel connected to %s", m.cfg.URL)
	m.setState(transport.StateOpen, nil)
}

func (m *Manager) detach(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	channelOpen.Set(0)
	_ = conn.Close()
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			m.writeMu.Unlock()
			_ = conn.Close()
		case <-done:
		}
	}()

	conn.SetReadLimit(m.cfg.ReadLimitBytes)
	if ping := m.cfg.pingInterval(); ping > 0 {
		pongWait := ping * 2
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go m.pingLoop(conn, ping, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		framesReceived.Inc()
		m.mu.Lock()
		h := m.handler
		m.mu.Unlock()
		if h != nil {
			h(data)
		}
	}
}

func (m *Manager) pingLoop(conn *websocket.Conn, every time.Duration, done <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.cfg.writeTimeout())); err != nil {
				m.log.Warnf("ping failed: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}

// Send marshals msg and writes it as one text frame. While the channel is not
// open the message is dropped and transport.ErrNotConnected returned.
func (m *Manager) Send(msg any) error {
	select {
	case <-m.closed:
		framesSent.WithLabelValues("dropped").Inc()
		return transport.ErrClosed
	default:
	}
	m.mu.Lock()
	conn, state := m.conn, m.state
	m.mu.Unlock()
	if conn == nil || state != transport.StateOpen {
		framesSent.WithLabelValues("dropped").Inc()
		return transport.ErrNotConnected
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.cfg.writeTimeout()))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		framesSent.WithLabelValues("failed").Inc()
		return &transport.ConnectionError{URL: m.cfg.URL, Err: err}
	}
	framesSent.WithLabelValues("sent").Inc()
	return nil
}

// Close stops Run and releases the socket. It is safe to call repeatedly.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
	m.mu.Lock()
	idle := m.state == transport.StateIdle
	m.mu.Unlock()
	if idle {
		m.setState(transport.StateClosed, nil)
	}
	return nil
}

func (m *Manager) setState(s transport.State, err error) {
	m.mu.Lock()
	if m.state == s && err == nil {
		m.mu.Unlock()
		return
	}
	m.state = s
	hs := append([]transport.StateHandler(nil), m.stateHandlers...)
	m.mu.Unlock()
	if s != transport.StateOpen {
		channelOpen.Set(0)
	}
	for _, h := range hs {
		h(s, err)
	}
}

// IsConnectionError reports whether err came from the transport.
func IsConnectionError(err error) bool {
	var ce *transport.ConnectionError
	return errors.As(err, &ce)
}
