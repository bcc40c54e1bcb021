package models

import "time"

// Conversation is a single support thread. Messages are ordered oldest
// first and are append-only on the client; they are never reordered or
// deleted locally.
type Conversation struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	Summary   string    `json:"summary,omitempty"`
	// Unread is the backend's per-conversation unread flag as of the last
	// list refresh. It is a snapshot, not live state; the synchronizer's
	// unread set is authoritative between refreshes.
	Unread bool `json:"unread,omitempty"`
}

// Append adds a message and bumps Modified.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
	c.Modified = time.Now().UTC()
}

// LastMessage returns the newest message, or a zero Message when empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// UserIdentity is the optional identified visitor. Absence means
// anonymous mode.
type UserIdentity struct {
	ID      string `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	UserJWT string `json:"userJWT,omitempty"`
}

// Anonymous reports whether the identity carries no usable token.
func (u UserIdentity) Anonymous() bool { return u.UserJWT == "" }
