// Package protocol defines the wire payloads exchanged over the chat and
// notification sockets. Server frames decode into a closed set of variants
// discriminated by the "type" field; unknown types surface as ProtocolError
// so a misbehaving server cannot crash a socket state machine.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"tpchat/pkg/errdefs"
	"tpchat/pkg/models"
)

// Client -> server frame types.
const (
	TypeAuth           = "auth"
	TypeUserMessage    = "user_message"
	TypeTypingStart    = "typing_start"
	TypeTypingStop     = "typing_stop"
	TypePing           = "ping"
	TypeMarkRead       = "mark_read"
	TypeGetUnreadCount = "get_unread_count"
)

// Server -> client frame types.
const (
	TypeSessionState    = "session_state"
	TypeMessage         = "message"
	TypeMessageHistory  = "message_history"
	TypeTypingIndicator = "typing_indicator"
	TypeAgentStatus     = "agent_status"
	TypeAuthSuccess     = "auth_success"
	TypeAuthFailed      = "auth_failed"
	TypeUnreadCount     = "unread_count"
	TypePong            = "pong"
	TypeError           = "error"
)

// Auth is the first client frame on any socket. An empty Token means
// anonymous auth.
type Auth struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// NewAuth builds an auth frame for the given token (empty = anonymous).
func NewAuth(token string) Auth {
	if token == "" {
		return Auth{Type: TypeAuth, Anonymous: true}
	}
	return Auth{Type: TypeAuth, Token: token}
}

// UserMessage carries an outbound user message.
type UserMessage struct {
	Type        string                 `json:"type"`
	SessionID   string                 `json:"sessionId"`
	MessageID   string                 `json:"messageId,omitempty"`
	Sender      models.Sender          `json:"sender"`
	MessageText string                 `json:"messageText"`
	Created     time.Time              `json:"created"`
	File        *models.FileAttachment `json:"file,omitempty"`
}

// NewUserMessage wraps a model message for the wire.
func NewUserMessage(m models.Message) UserMessage {
	return UserMessage{
		Type:        TypeUserMessage,
		SessionID:   m.SessionID,
		MessageID:   m.ID,
		Sender:      m.Sender,
		MessageText: m.MessageText,
		Created:     m.Created,
		File:        m.File,
	}
}

// Typing is the typing_start / typing_stop client frame.
type Typing struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// MarkRead is the best-effort read receipt for a conversation.
type MarkRead struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// Ping is the heartbeat frame, shared by both sockets.
type Ping struct {
	Type string `json:"type"`
}

// GetUnreadCount asks the notification socket for the current aggregate
// unread count.
type GetUnreadCount struct {
	Type string `json:"type"`
}

// ServerEvent is the closed set of frames a server may send.
type ServerEvent interface{ serverEvent() }

// SessionState is the bootstrap frame: the first server frame on a
// conversation socket, carrying the resolved session id.
type SessionState struct {
	SessionID string    `json:"sessionId"`
	Created   time.Time `json:"created"`
}

// LiveMessage is a message delivered in real time.
type LiveMessage struct {
	models.Message
}

// MessageHistory is the full backfill for a conversation.
type MessageHistory struct {
	SessionID string           `json:"sessionId"`
	Created   time.Time        `json:"created"`
	Messages  []models.Message `json:"messages"`
}

// TypingIndicator reports agent typing state for a conversation.
type TypingIndicator struct {
	SessionID string `json:"sessionId"`
	Typing    bool   `json:"typing"`
}

// AgentStatus reports agent presence ("online" / "offline").
type AgentStatus struct {
	Status string `json:"status"`
}

// AuthSuccess acknowledges socket authentication.
type AuthSuccess struct{}

// AuthFailed rejects socket authentication; the socket will be closed.
type AuthFailed struct {
	Reason string `json:"reason,omitempty"`
}

// UnreadCount is the notification socket's aggregate unread count.
type UnreadCount struct {
	Count int `json:"count"`
}

// Pong answers a heartbeat ping.
type Pong struct{}

// ErrorEvent is a server-reported error.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (SessionState) serverEvent()    {}
func (LiveMessage) serverEvent()     {}
func (MessageHistory) serverEvent()  {}
func (TypingIndicator) serverEvent() {}
func (AgentStatus) serverEvent()     {}
func (AuthSuccess) serverEvent()     {}
func (AuthFailed) serverEvent()      {}
func (UnreadCount) serverEvent()     {}
func (Pong) serverEvent()            {}
func (ErrorEvent) serverEvent()      {}

// Decode parses a raw server frame into its variant. Unknown types return
// a ProtocolError; callers log and ignore those.
func Decode(raw []byte) (ServerEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch head.Type {
	case TypeSessionState:
		var ev SessionState
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeMessage:
		var ev LiveMessage
		if err := json.Unmarshal(raw, &ev.Message); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeMessageHistory:
		var ev MessageHistory
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeTypingIndicator:
		var ev TypingIndicator
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeAgentStatus:
		var ev AgentStatus
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeAuthSuccess:
		return AuthSuccess{}, nil
	case TypeAuthFailed:
		var ev AuthFailed
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypeUnreadCount:
		var ev UnreadCount
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	case TypePong:
		return Pong{}, nil
	case TypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("bad %s frame: %w", head.Type, err)
		}
		return ev, nil
	default:
		return nil, &errdefs.ProtocolError{Type: head.Type}
	}
}

// Encode marshals any frame for the wire.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
