package socket

import (
	"fmt"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"tpchat/pkg/backoff"
	"tpchat/pkg/errdefs"
	"tpchat/pkg/logger"
	"tpchat/pkg/metrics"
	"tpchat/pkg/models"
	"tpchat/pkg/protocol"
)

const typingAutoStop = 3 * time.Second

// ConversationHandlers receive events from a ConversationSocket. All are
// optional; nil handlers are skipped. Handlers run on the socket's read
// goroutine and must not block.
type ConversationHandlers struct {
	OnSessionState   func(protocol.SessionState)
	OnMessage        func(models.Message)
	OnMessageHistory func(protocol.MessageHistory)
	OnTyping         func(protocol.TypingIndicator)
	OnAgentStatus    func(protocol.AgentStatus)
	OnConnect        func()
	OnDisconnect     func()
	OnError          func(error)
}

// ConversationOptions configures a ConversationSocket.
type ConversationOptions struct {
	WSBase            string
	TeamSlug          string
	Token             string // empty = anonymous
	HeartbeatInterval time.Duration
	Reconnect         backoff.Policy
	Dial              DialFunc
}

// ConversationSocket is the single-conversation realtime channel. Its
// state machine: idle -> connecting -> authenticating -> open ->
// {closing -> idle | faulted -> reconnect-wait -> connecting}. The
// authenticating stage ends when the server's session_state bootstrap
// arrives.
type ConversationSocket struct {
	opts     ConversationOptions
	handlers ConversationHandlers

	mu        sync.Mutex
	state     State
	conn      Conn
	sessionID string
	attempts  int
	gen       int // bumps on connect/disconnect; stale goroutines check it

	reconnectTimer *time.Timer
	typingTimer    *time.Timer
	stopHeartbeat  chan struct{}
}

// NewConversation builds a socket wrapper; call Connect to open it.
func NewConversation(opts ConversationOptions, handlers ConversationHandlers) *ConversationSocket {
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	return &ConversationSocket{opts: opts, handlers: handlers, state: StateIdle}
}

// Connect opens the socket for the given session id; empty means "ask the
// server for a fresh session". Safe to call from idle only; a live socket
// must be disconnected first.
func (s *ConversationSocket) Connect(sessionID string) {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateReconnectWait && s.state != StateFaulted {
		s.mu.Unlock()
		logger.Warn("conversation_socket_connect_ignored", "state", s.state.String())
		return
	}
	s.sessionID = sessionID
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.dialAndRun(gen)
}

func (s *ConversationSocket) url() string {
	if s.sessionID == "" {
		return fmt.Sprintf("%s/ws/chat/%s/", s.opts.WSBase, s.opts.TeamSlug)
	}
	return fmt.Sprintf("%s/ws/chat/%s/%s/", s.opts.WSBase, s.opts.TeamSlug, s.sessionID)
}

func (s *ConversationSocket) dialAndRun(gen int) {
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
		logger.Warn("conversation_socket_dial_failed", "error", err)
		s.emitError(&errdefs.NetworkError{Op: "ws_dial", Err: err})
		s.fault(gen, 0)
		return
	}
	s.conn = conn
	s.state = StateAuthenticating
	stop := make(chan struct{})
	s.stopHeartbeat = stop
	s.mu.Unlock()

	// first client frame is always auth
	if !s.write(protocol.NewAuth(s.opts.Token)) {
		s.fault(gen, 0)
		return
	}

	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}

	go s.heartbeat(stop)
	s.readLoop(conn, gen)
}

func (s *ConversationSocket) readLoop(conn Conn, gen int) {
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
			logger.Info("conversation_socket_closed", "code", code, "error", err)
			if s.handlers.OnDisconnect != nil {
				s.handlers.OnDisconnect()
			}
			s.fault(gen, code)
			return
		}
		s.dispatch(raw)
	}
}

func (s *ConversationSocket) dispatch(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		// unknown or malformed frames never take the socket down
		logger.Warn("conversation_socket_bad_frame", "error", err)
		if errdefs.IsProtocol(err) {
			s.emitError(err)
		}
		return
	}

	switch ev := ev.(type) {
	case protocol.SessionState:
		s.mu.Lock()
		s.sessionID = ev.SessionID
		s.state = StateOpen
		s.attempts = 0
		s.mu.Unlock()
		if s.handlers.OnSessionState != nil {
			s.handlers.OnSessionState(ev)
		}
	case protocol.LiveMessage:
		metrics.MessagesReceived.Inc()
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(ev.Message)
		}
	case protocol.MessageHistory:
		if s.handlers.OnMessageHistory != nil {
			s.handlers.OnMessageHistory(ev)
		}
	case protocol.TypingIndicator:
		if s.handlers.OnTyping != nil {
			s.handlers.OnTyping(ev)
		}
	case protocol.AgentStatus:
		if s.handlers.OnAgentStatus != nil {
			s.handlers.OnAgentStatus(ev)
		}
	case protocol.AuthSuccess:
		logger.Debug("conversation_socket_auth_ok")
	case protocol.AuthFailed:
		logger.Error("conversation_socket_auth_failed", "reason", ev.Reason)
		s.emitError(&errdefs.AuthError{Status: 0, Err: fmt.Errorf("socket auth failed: %s", ev.Reason)})
		s.Disconnect()
	case protocol.UnreadCount, protocol.Pong:
		// pong needs no action; unread counts belong to the notification socket
	case protocol.ErrorEvent:
		s.emitError(fmt.Errorf("server error: %s", ev.Message))
	}
}

// Send delivers a user message if the socket is open. Returns false
// otherwise so the caller can fall back to REST.
func (s *ConversationSocket) Send(m models.Message) bool {
	if s.CurrentState() != StateOpen {
		return false
	}
	return s.write(protocol.NewUserMessage(m))
}

// SendMarkRead sends a best-effort read receipt; failures are ignored.
func (s *ConversationSocket) SendMarkRead(sessionID string) bool {
	if s.CurrentState() != StateOpen {
		return false
	}
	return s.write(protocol.MarkRead{Type: protocol.TypeMarkRead, SessionID: sessionID})
}

// SendTypingStart emits typing_start and arms a 3s auto-stop. Repeated
// calls re-arm the timer, which debounces a fast typist.
func (s *ConversationSocket) SendTypingStart() {
	s.mu.Lock()
	sessionID := s.sessionID
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(typingAutoStop, s.SendTypingStop)
	s.mu.Unlock()

	if s.CurrentState() == StateOpen {
		s.write(protocol.Typing{Type: protocol.TypeTypingStart, SessionID: sessionID})
	}
}

// SendTypingStop cancels the auto-stop timer and emits typing_stop.
func (s *ConversationSocket) SendTypingStop() {
	s.mu.Lock()
	sessionID := s.sessionID
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.mu.Unlock()

	if s.CurrentState() == StateOpen {
		s.write(protocol.Typing{Type: protocol.TypeTypingStop, SessionID: sessionID})
	}
}

// Disconnect closes the socket cleanly (code 1000). A clean close never
// schedules a reconnect. Idempotent.
func (s *ConversationSocket) Disconnect() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.gen++
	conn := s.conn
	s.conn = nil
	s.cancelTimersLocked()
	s.state = StateIdle
	s.attempts = 0
	s.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
	}
}

// IsOpen reports whether the bootstrap completed and the channel is live.
func (s *ConversationSocket) IsOpen() bool { return s.CurrentState() == StateOpen }

// CurrentState returns the socket's state.
func (s *ConversationSocket) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the session this socket is scoped to (set by the
// bootstrap for fresh conversations).
func (s *ConversationSocket) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// fault handles an abnormal end of the connection: close the conn, and
// either schedule a reconnect per the policy or give up into idle.
func (s *ConversationSocket) fault(gen int, code int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	s.cancelTimersLocked()

	if !s.opts.Reconnect.Retryable(code) {
		s.state = StateIdle
		s.attempts = 0
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if s.opts.Reconnect.Exhausted(s.attempts) {
		s.state = StateIdle
		s.attempts = 0
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		logger.Error("conversation_socket_reconnect_exhausted")
		s.emitError(&errdefs.NetworkError{Op: "ws_reconnect", Err: fmt.Errorf("max reconnection attempts reached")})
		return
	}

	s.state = StateFaulted
	s.attempts++
	attempt := s.attempts
	delay := s.opts.Reconnect.Delay(attempt)
	s.state = StateReconnectWait
	s.reconnectTimer = time.AfterFunc(delay, func() { s.Connect(s.SessionID()) })
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	metrics.SocketReconnects.WithLabelValues("conversation").Inc()
	logger.Info("conversation_socket_reconnect_scheduled", "attempt", attempt, "delay", delay)
}

func (s *ConversationSocket) cancelTimersLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	if s.stopHeartbeat != nil {
		close(s.stopHeartbeat)
		s.stopHeartbeat = nil
	}
}

func (s *ConversationSocket) heartbeat(stop chan struct{}) {
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

func (s *ConversationSocket) write(v any) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}
	data, err := protocol.Encode(v)
	if err != nil {
		logger.Error("conversation_socket_encode_failed", "error", err)
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Warn("conversation_socket_write_failed", "error", err)
		return false
	}
	return true
}

func (s *ConversationSocket) emitError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}
