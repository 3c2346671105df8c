// Package transport defines the contract of the single persistent channel to
// the dispatch backend.
package transport

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by Send while the channel is not open. The
// message is dropped, not queued.
var ErrNotConnected = errors.New("transport: channel not open")

// ErrClosed is returned once the channel has been closed for good.
var ErrClosed = errors.New("transport: closed")

// State is the lifecycle state of the channel.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	// StateFailed means the reconnect ceiling was reached; only an explicit
	// Reconnect leaves this state.
	StateFailed State = "failed"
)

// Handler receives one inbound frame.
type Handler func(frame []byte)

// StateHandler is notified on every state change.
type StateHandler func(State, error)

// Sender is the outbound half of the channel. It is the only way components
// other than the channel owner may transmit.
type Sender interface {
	Send(msg any) error
}

// Channel is the persistent bidirectional connection.
type Channel interface {
	Sender
	OnMessage(Handler)
	OnStateChange(StateHandler)
	State() State
	Reconnect()
	Close() error
}

// ConnectionError reports an unreachable or closed transport.
type ConnectionError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("connection to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
