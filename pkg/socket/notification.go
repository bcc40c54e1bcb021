package socket

import (
	"fmt"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"tpchat/pkg/backoff"
	"tpchat/pkg/logger"
	"tpchat/pkg/metrics"
	"tpchat/pkg/protocol"
)

// NotificationHandlers receive events from a NotificationSocket.
type NotificationHandlers struct {
	OnUnreadCount func(int)
	OnConnect     func()
	OnDisconnect  func()
}

// NotificationOptions configures a NotificationSocket.
type NotificationOptions struct {
	WSBase            string
	TeamSlug          string
	Token             string
	HeartbeatInterval time.Duration
	Reconnect         backoff.Policy
	Dial              DialFunc
}

// NotificationSocket is the long-lived, conversation-independent channel.
// It delivers exactly one event upward: the aggregate unread count. Losing
// it degrades to a stale badge, so permanent reconnect failure is only
// logged, never surfaced.
type NotificationSocket struct {
	opts     NotificationOptions
	handlers NotificationHandlers

	mu             sync.Mutex
	state          State
	conn           Conn
	attempts       int
	gen            int
	reconnectTimer *time.Timer
	stopHeartbeat  chan struct{}
}

// NewNotification builds the wrapper; call Connect to open it.
func NewNotification(opts NotificationOptions, handlers NotificationHandlers) *NotificationSocket {
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	return &NotificationSocket{opts: opts, handlers: handlers, state: StateIdle}
}

// Connect opens the notification channel.
func (s *NotificationSocket) Connect() {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateReconnectWait && s.state != StateFaulted {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.dialAndRun(gen)
}

func (s *NotificationSocket) url() string {
	return fmt.Sprintf("%s/ws/notifications/%s/", s.opts.WSBase, s.opts.TeamSlug)
}

func (s *NotificationSocket) dialAndRun(gen int) {
	conn, err := s.opts.Dial(s.url())

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		logger.Warn("notification_socket_dial_failed", "error", err)
		s.fault(gen, 0)
		return
	}
	s.conn = conn
	s.state = StateOpen
	s.attempts = 0
	stop := make(chan struct{})
	s.stopHeartbeat = stop
	s.mu.Unlock()

	s.write(protocol.NewAuth(s.opts.Token))
	// the badge should be right as soon as the channel is up
	s.RequestUnreadCount()

	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}

	go s.heartbeat(stop)
	s.readLoop(conn, gen)
}

func (s *NotificationSocket) readLoop(conn Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			stale := gen != s.gen
			s.mu.Unlock()
			if stale {
				return
			}
			code := closeCode(err)
			logger.Info("notification_socket_closed", "code", code, "error", err)
			if s.handlers.OnDisconnect != nil {
				s.handlers.OnDisconnect()
			}
			s.fault(gen, code)
			return
		}
		s.dispatch(raw)
	}
}

func (s *NotificationSocket) dispatch(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		logger.Warn("notification_socket_bad_frame", "error", err)
		return
	}
	switch ev := ev.(type) {
	case protocol.UnreadCount:
		if s.handlers.OnUnreadCount != nil {
			s.handlers.OnUnreadCount(ev.Count)
		}
	case protocol.Pong, protocol.AuthSuccess:
		// no action
	default:
		logger.Debug("notification_socket_ignored_frame")
	}
}

// RequestUnreadCount asks the server for the current aggregate count.
func (s *NotificationSocket) RequestUnreadCount() bool {
	return s.write(protocol.GetUnreadCount{Type: protocol.TypeGetUnreadCount})
}

// Disconnect closes the channel cleanly; no reconnect follows. Idempotent.
func (s *NotificationSocket) Disconnect() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.gen++
	conn := s.conn
	s.conn = nil
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.stopHeartbeat != nil {
		close(s.stopHeartbeat)
		s.stopHeartbeat = nil
	}
	s.state = StateIdle
	s.attempts = 0
	s.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
	}
}

// IsOpen reports whether the channel is live.
func (s *NotificationSocket) IsOpen() bool { return s.CurrentState() == StateOpen }

// CurrentState returns the socket's state.
func (s *NotificationSocket) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *NotificationSocket) fault(gen int, code int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	if s.stopHeartbeat != nil {
		close(s.stopHeartbeat)
		s.stopHeartbeat = nil
	}

	if !s.opts.Reconnect.Retryable(code) || s.opts.Reconnect.Exhausted(s.attempts) {
		if s.opts.Reconnect.Exhausted(s.attempts) {
			logger.Error("notification_socket_reconnect_exhausted")
		}
		s.state = StateIdle
		s.attempts = 0
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	s.state = StateFaulted
	s.attempts++
	attempt := s.attempts
	delay := s.opts.Reconnect.Delay(attempt)
	s.state = StateReconnectWait
	s.reconnectTimer = time.AfterFunc(delay, s.Connect)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	metrics.SocketReconnects.WithLabelValues("notification").Inc()
	logger.Info("notification_socket_reconnect_scheduled", "attempt", attempt, "delay", delay)
}

func (s *NotificationSocket) heartbeat(stop chan struct{}) {
	t := time.NewTicker(s.opts.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if s.CurrentState() == StateOpen {
				s.write(protocol.Ping{Type: protocol.TypePing})
			}
		}
	}
}

func (s *NotificationSocket) write(v any) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}
	data, err := protocol.Encode(v)
	if err != nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Warn("notification_socket_write_failed", "error", err)
		return false
	}
	return true
}
