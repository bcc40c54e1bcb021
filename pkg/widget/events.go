package widget

import (
	"time"

	"tpchat/pkg/backoff"
	"tpchat/pkg/logger"
	"tpchat/pkg/models"
	"tpchat/pkg/protocol"
	"tpchat/pkg/socket"
	"tpchat/pkg/store"
)

func backoffPolicy(attempts int, baseDelay time.Duration) backoff.Policy {
	return backoff.Policy{MaxAttempts: attempts, BaseDelay: baseDelay}
}

// chatHandlers binds conversation socket events to the synchronizer.
// Each handler carries the chat generation it was created under; events
// arriving after the channel was replaced or torn down are dropped.
func (s *Synchronizer) chatHandlers(gen int) socket.ConversationHandlers {
	return socket.ConversationHandlers{
		OnSessionState: func(ev protocol.SessionState) {
			s.handleSessionState(gen, ev)
		},
		OnMessage: func(m models.Message) {
			s.handleLiveMessage(gen, m)
		},
		OnMessageHistory: func(ev protocol.MessageHistory) {
			s.handleMessageHistory(gen, ev)
		},
		OnTyping: func(ev protocol.TypingIndicator) {
			if s.staleChat(gen) {
				return
			}
			if s.hooks.RenderTyping != nil {
				s.hooks.RenderTyping(ev.SessionID, ev.Typing)
			}
		},
		OnAgentStatus: func(ev protocol.AgentStatus) {
			if s.staleChat(gen) {
				return
			}
			if s.hooks.RenderAgentStatus != nil {
				s.hooks.RenderAgentStatus(ev.Status)
			}
		},
		OnDisconnect: func() {
			s.handleChatDisconnect(gen)
		},
		OnError: func(err error) {
			if s.staleChat(gen) {
				return
			}
			s.emitError(err)
		},
	}
}

func (s *Synchronizer) notifyHandlers(epoch int) socket.NotificationHandlers {
	return socket.NotificationHandlers{
		OnUnreadCount: func(n int) {
			s.handleUnreadCount(epoch, n)
		},
	}
}

func (s *Synchronizer) staleChat(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed || gen != s.chatGen
}

// handleSessionState is the bootstrap: the channel is live once the
// server has confirmed the session.
func (s *Synchronizer) handleSessionState(gen int, ev protocol.SessionState) {
	s.mu.Lock()
	if s.destroyed || gen != s.chatGen {
		s.mu.Unlock()
		return
	}
	started := false
	if ev.SessionID != "" {
		if _, ok := s.conversations[ev.SessionID]; !ok {
			created := ev.Created
			if created.IsZero() {
				created = time.Now().UTC()
			}
			s.conversations[ev.SessionID] = &models.Conversation{SessionID: ev.SessionID, Created: created}
			started = true
		}
		s.active = ev.SessionID
	}
	s.live = true
	if s.bootstrapped != nil {
		close(s.bootstrapped)
		s.bootstrapped = nil
	}
	chat := s.chat
	var flush []string
	for id := range s.pendingReads {
		flush = append(flush, id)
	}
	s.mu.Unlock()

	// receipts queued while the channel was down go out now
	if chat != nil {
		for _, id := range flush {
			if chat.SendMarkRead(id) {
				s.mu.Lock()
				delete(s.pendingReads, id)
				s.mu.Unlock()
			}
		}
	}

	if started && s.hooks.OnConversationStarted != nil {
		s.hooks.OnConversationStarted(ev.SessionID)
	}
	s.renderConnection(true)
	s.renderList()
}

// handleLiveMessage appends a realtime message unless it is a replay of
// one already held (the echo of an optimistic send, or overlap with a
// history backfill).
func (s *Synchronizer) handleLiveMessage(gen int, m models.Message) {
	s.mu.Lock()
	if s.destroyed || gen != s.chatGen {
		s.mu.Unlock()
		return
	}
	conv := s.ensureLocked(m.SessionID)
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if s.sameMessage(conv.Messages[i], m) {
			s.mu.Unlock()
			return
		}
	}
	conv.Append(m)
	snapshot := *conv
	viewing := s.open && s.active == m.SessionID
	if !viewing && m.Sender != models.SenderUser {
		s.unread[m.SessionID] = struct{}{}
	}
	s.mu.Unlock()

	if err := store.SaveConversation(snapshot); err != nil {
		logger.Warn("conversation_cache_write_failed", "error", err)
	}
	if s.hooks.OnMessageReceived != nil && m.Sender != models.SenderUser {
		s.hooks.OnMessageReceived(m)
	}
	if viewing {
		s.renderMessages(m.SessionID)
	} else {
		s.renderList()
		s.renderBadge()
	}
}

// handleMessageHistory reconciles a full backfill: the server's list
// becomes the base, then locally echoed messages the server has not yet
// acknowledged are re-appended so an optimistic send never disappears.
func (s *Synchronizer) handleMessageHistory(gen int, ev protocol.MessageHistory) {
	s.mu.Lock()
	if s.destroyed || gen != s.chatGen {
		s.mu.Unlock()
		return
	}
	conv := s.ensureLocked(ev.SessionID)
	local := conv.Messages
	merged := append([]models.Message(nil), ev.Messages...)
	for _, lm := range local {
		found := false
		for _, sm := range ev.Messages {
			if s.sameMessage(lm, sm) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, lm)
		}
	}
	conv.Messages = merged
	if !ev.Created.IsZero() && conv.Created.IsZero() {
		conv.Created = ev.Created
	}
	if last, ok := conv.LastMessage(); ok && last.Created.After(conv.Modified) {
		conv.Modified = last.Created
	}
	snapshot := *conv
	s.mu.Unlock()

	if err := store.SaveConversation(snapshot); err != nil {
		logger.Warn("conversation_cache_write_failed", "error", err)
	}
	s.renderMessages(ev.SessionID)
}

func (s *Synchronizer) handleChatDisconnect(gen int) {
	s.mu.Lock()
	if s.destroyed || gen != s.chatGen {
		s.mu.Unlock()
		return
	}
	s.live = false
	s.mu.Unlock()
	s.renderConnection(false)
}

// handleUnreadCount takes the server's aggregate badge value. While the
// window is open the badge stays cleared; the count is reflected in the
// per-conversation flags on the next refresh instead.
func (s *Synchronizer) handleUnreadCount(epoch int, n int) {
	s.mu.Lock()
	if s.destroyed || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if s.open {
		s.badge = 0
	} else {
		s.badge = n
	}
	s.mu.Unlock()
	s.renderBadge()
}
