// Package socket implements the widget's two persistent channels: the
// per-conversation chat socket and the cross-conversation notification
// socket. Both share one reconnect policy (pkg/backoff) and differ only
// in their state machines and the events they dispatch.
package socket

import (
	"errors"

	"github.com/fasthttp/websocket"
)

// Conn is the subset of the websocket connection the wrappers need.
// *websocket.Conn satisfies it; tests inject fakes.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a websocket connection to url.
type DialFunc func(url string) (Conn, error)

// Dial is the production DialFunc on fasthttp/websocket.
func Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// State is the lifecycle position of a socket wrapper.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateOpen
	StateClosing
	StateFaulted
	StateReconnectWait
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateFaulted:
		return "faulted"
	case StateReconnectWait:
		return "reconnect-wait"
	default:
		return "unknown"
	}
}

// closeCode extracts the websocket close code from a read error. A
// received close frame carries its code; anything else (dial failure,
// connection reset) reports 0, which the backoff policy treats as
// retryable network loss.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
