package models

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "USER"
	SenderAgent  Sender = "AGENT"
	SenderSystem Sender = "SYSTEM"
)

// FileAttachment references an uploaded file linked to a message.
type FileAttachment struct {
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Message is a single entry in a conversation. MessageText and MessageHTML
// are alternatives; servers send at most one of them.
type Message struct {
	ID          string          `json:"messageId,omitempty"`
	SessionID   string          `json:"sessionId"`
	Sender      Sender          `json:"sender"`
	MessageText string          `json:"messageText,omitempty"`
	MessageHTML string          `json:"messageHtml,omitempty"`
	Created     time.Time       `json:"created"`
	File        *FileAttachment `json:"file,omitempty"`
}

// Text returns the plain-text body, falling back to the HTML body when no
// plain text was sent.
func (m Message) Text() string {
	if m.MessageText != "" {
		return m.MessageText
	}
	return m.MessageHTML
}
