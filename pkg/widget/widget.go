// Package widget is the conversation synchronizer: the in-memory
// authority for conversations, unread state and the active realtime
// channel. It reconciles three sources (durable cache, REST backend,
// live sockets) and pushes render snapshots outward through hooks.
package widget

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tpchat/pkg/config"
	"tpchat/pkg/errdefs"
	"tpchat/pkg/logger"
	"tpchat/pkg/metrics"
	"tpchat/pkg/models"
	"tpchat/pkg/socket"
	"tpchat/pkg/store"
	"tpchat/pkg/transport"
)

const listPageSize = 50

// Transport is the request/response surface the synchronizer needs.
// *transport.Client satisfies it; tests inject fakes.
type Transport interface {
	ListConversations(ctx context.Context, limit, offset int) (transport.ListResult, error)
	SendMessage(ctx context.Context, m models.Message) error
	CreateSession(ctx context.Context) (transport.Session, error)
	UploadFile(ctx context.Context, sessionID, filename string, content []byte) (string, error)
	ChatToken(ctx context.Context) (string, error)
	SetUserJWT(jwt string)
}

// ConversationChannel is the realtime chat channel for one conversation.
type ConversationChannel interface {
	Connect(sessionID string)
	Disconnect()
	Send(m models.Message) bool
	SendMarkRead(sessionID string) bool
	SendTypingStart()
	SendTypingStop()
	IsOpen() bool
	SessionID() string
}

// NotificationChannel is the long-lived unread-count channel.
type NotificationChannel interface {
	Connect()
	Disconnect()
	IsOpen() bool
	RequestUnreadCount() bool
}

// ConversationFactory builds a chat channel authenticated with token.
type ConversationFactory func(token string, h socket.ConversationHandlers) ConversationChannel

// NotificationFactory builds a notification channel authenticated with token.
type NotificationFactory func(token string, h socket.NotificationHandlers) NotificationChannel

// Hooks are the synchronizer's outward surface: lifecycle callbacks plus
// render instructions. All are optional and must not call back into the
// synchronizer while handling an event.
type Hooks struct {
	OnReady               func()
	OnOpen                func()
	OnClose               func()
	OnMessageSent         func(models.Message)
	OnMessageReceived     func(models.Message)
	OnConversationStarted func(sessionID string)
	OnError               func(error)

	RenderConversationList func([]models.Conversation)
	RenderMessages         func(sessionID string, msgs []DisplayMessage)
	RenderUnreadBadge      func(count int)
	RenderTyping           func(sessionID string, typing bool)
	RenderAgentStatus      func(status string)
	RenderConnection       func(live bool)
}

// Options wires a Synchronizer. Nil factories fall back to the production
// socket wrappers derived from the config.
type Options struct {
	Config    *config.Config
	Transport Transport
	Hooks     Hooks
	NewChat   ConversationFactory
	NewNotify NotificationFactory
}

// Synchronizer owns all conversation state. Mutations are serialized on
// one mutex. Async completions carry the counter they were started
// under and are dropped when it has moved on: epoch tracks identity
// changes, chatGen tracks the conversation channel's lifetime.
type Synchronizer struct {
	cfg   *config.Config
	tp    Transport
	hooks Hooks

	newChat   ConversationFactory
	newNotify NotificationFactory

	mu            sync.Mutex
	conversations map[string]*models.Conversation
	unread        map[string]struct{}
	pendingReads  map[string]struct{}
	user          models.UserIdentity
	deviceID      string
	active        string
	chat          ConversationChannel
	notify        NotificationChannel
	bootstrapped  chan struct{}
	epoch         int
	chatGen       int
	badge         int
	open          bool
	live          bool
	ready         bool
	destroyed     bool
}

// New builds a Synchronizer. Call Initialize before anything else.
func New(opts Options) *Synchronizer {
	s := &Synchronizer{
		cfg:           opts.Config,
		tp:            opts.Transport,
		hooks:         opts.Hooks,
		newChat:       opts.NewChat,
		newNotify:     opts.NewNotify,
		conversations: map[string]*models.Conversation{},
		unread:        map[string]struct{}{},
		pendingReads:  map[string]struct{}{},
	}
	if s.newChat == nil {
		s.newChat = s.defaultChatFactory
	}
	if s.newNotify == nil {
		s.newNotify = s.defaultNotifyFactory
	}
	return s
}

func (s *Synchronizer) defaultChatFactory(token string, h socket.ConversationHandlers) ConversationChannel {
	return socket.NewConversation(socket.ConversationOptions{
		WSBase:            s.cfg.WSBase,
		TeamSlug:          s.cfg.TeamSlug,
		Token:             token,
		HeartbeatInterval: s.cfg.Socket.HeartbeatInterval.Std(),
		Reconnect: backoffPolicy(
			s.cfg.Socket.Reconnect.Attempts,
			s.cfg.Socket.Reconnect.BaseDelay.Std(),
		),
	}, h)
}

func (s *Synchronizer) defaultNotifyFactory(token string, h socket.NotificationHandlers) NotificationChannel {
	return socket.NewNotification(socket.NotificationOptions{
		WSBase:            s.cfg.WSBase,
		TeamSlug:          s.cfg.TeamSlug,
		Token:             token,
		HeartbeatInterval: s.cfg.Socket.HeartbeatInterval.Std(),
		Reconnect: backoffPolicy(
			s.cfg.Notify.Reconnect.Attempts,
			s.cfg.Notify.Reconnect.BaseDelay.Std(),
		),
	}, h)
}

// Initialize validates the config, loads the durable cache, refreshes
// from the backend when identified, and opens the notification channel.
// Config problems fail synchronously before any network use; everything
// network-side is recoverable and only logged.
func (s *Synchronizer) Initialize(ctx context.Context) error {
	if s.cfg == nil {
		return &errdefs.ConfigurationError{Fields: []string{"config"}}
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return &errdefs.ValidationError{Reason: "synchronizer destroyed"}
	}
	s.deviceID = store.GetOrCreateDeviceID()

	if u, ok := store.GetUser(); ok {
		s.user = u
	}
	if s.cfg.UserJWT != "" {
		// config identity wins over whatever was cached
		s.user.UserJWT = s.cfg.UserJWT
	}
	if !s.user.Anonymous() {
		s.tp.SetUserJWT(s.user.UserJWT)
	}

	cached, err := store.ListConversations()
	if err != nil {
		logger.Warn("conversation_cache_load_failed", "error", err)
	}
	for i := range cached {
		c := cached[i]
		s.conversations[c.SessionID] = &c
		if c.Unread {
			s.unread[c.SessionID] = struct{}{}
		}
	}
	identified := !s.user.Anonymous()
	epoch := s.epoch
	s.mu.Unlock()

	if identified {
		// cache gives an instant paint; the server list is authoritative
		s.refreshConversations(ctx, epoch)
	}

	token := s.socketToken(ctx)

	s.mu.Lock()
	if s.destroyed || epoch != s.epoch {
		s.mu.Unlock()
		return nil
	}
	s.notify = s.newNotify(token, s.notifyHandlers(epoch))
	notify := s.notify
	s.ready = true
	s.mu.Unlock()

	notify.Connect()

	s.emitReady()
	s.renderList()
	s.renderBadge()
	return nil
}

// socketToken fetches the chat token for socket auth; anonymous visitors
// get an empty token and failures degrade to anonymous rather than
// blocking startup.
func (s *Synchronizer) socketToken(ctx context.Context) string {
	token, err := s.tp.ChatToken(ctx)
	if err != nil {
		logger.Warn("chat_token_unavailable", "error", err)
		return ""
	}
	return token
}

// refreshConversations pulls the authoritative list and reconciles it
// into memory and the durable cache. The unread set is rebuilt from the
// backend flags, never merged additively.
func (s *Synchronizer) refreshConversations(ctx context.Context, epoch int) {
	res, err := s.tp.ListConversations(ctx, listPageSize, 0)
	if err != nil {
		logger.Warn("conversation_refresh_failed", "error", err)
		return
	}

	s.mu.Lock()
	if s.destroyed || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.unread = map[string]struct{}{}
	merged := make([]models.Conversation, 0, len(res.Results))
	seen := map[string]bool{}
	for _, sc := range res.Results {
		sc := sc
		seen[sc.SessionID] = true
		if local, ok := s.conversations[sc.SessionID]; ok && local.Modified.After(sc.Modified) {
			// keep newer local messages, take the server's unread flag
			sc.Messages = local.Messages
			sc.Modified = local.Modified
		}
		s.conversations[sc.SessionID] = &sc
		if sc.Unread {
			s.unread[sc.SessionID] = struct{}{}
		}
		merged = append(merged, sc)
	}
	// locally created conversations the server does not know yet survive
	for id, c := range s.conversations {
		if !seen[id] {
			merged = append(merged, *c)
		}
	}
	metrics.UnreadConversations.Set(float64(len(s.unread)))
	s.mu.Unlock()

	if err := store.ReplaceConversations(merged); err != nil {
		logger.Warn("conversation_cache_write_failed", "error", err)
	}
	s.renderList()
	s.renderBadge()
}

// OpenConversation opens a realtime channel for the given session id, or
// creates a fresh conversation when id is "new" or empty. At most one
// conversation channel exists at a time; any previous one is closed
// cleanly first. The call resolves after the server bootstrap or after
// the connect timeout, whichever comes first, so a slow socket never
// blocks the UI past the timeout.
func (s *Synchronizer) OpenConversation(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return "", &errdefs.ValidationError{Reason: "synchronizer destroyed"}
	}
	if s.chat != nil {
		s.chat.Disconnect()
		s.chat = nil
	}
	s.live = false
	s.chatGen++
	gen := s.chatGen
	s.mu.Unlock()

	if id == "" || id == "new" {
		sess, err := s.tp.CreateSession(ctx)
		if err != nil {
			s.emitError(err)
			return "", err
		}
		id = sess.SessionID
		created := sess.Created
		if created.IsZero() {
			created = time.Now().UTC()
		}
		s.mu.Lock()
		s.conversations[id] = &models.Conversation{SessionID: id, Created: created}
		conv := *s.conversations[id]
		s.mu.Unlock()
		if err := store.SaveConversation(conv); err != nil {
			logger.Warn("conversation_cache_write_failed", "error", err)
		}
		if s.hooks.OnConversationStarted != nil {
			s.hooks.OnConversationStarted(id)
		}
	}

	token := s.socketToken(ctx)

	s.mu.Lock()
	if s.destroyed || gen != s.chatGen {
		s.mu.Unlock()
		return id, nil
	}
	if _, ok := s.conversations[id]; !ok {
		s.conversations[id] = &models.Conversation{SessionID: id, Created: time.Now().UTC()}
	}
	s.active = id
	s.bootstrapped = make(chan struct{})
	bootstrapped := s.bootstrapped
	s.chat = s.newChat(token, s.chatHandlers(gen))
	chat := s.chat
	s.mu.Unlock()

	chat.Connect(id)

	timeout := s.cfg.Socket.ConnectTimeout.Std()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-bootstrapped:
	case <-time.After(timeout):
		logger.Warn("conversation_socket_open_timeout", "session", id)
	case <-ctx.Done():
	}

	s.MarkConversationRead(id)
	s.renderMessages(id)
	return id, nil
}

// CloseActiveConversation shuts the realtime channel down cleanly and
// clears the active pointer. Idempotent.
func (s *Synchronizer) CloseActiveConversation() {
	s.mu.Lock()
	if s.chat == nil && s.active == "" {
		s.mu.Unlock()
		return
	}
	if s.chat != nil {
		s.chat.Disconnect()
		s.chat = nil
	}
	s.active = ""
	s.live = false
	s.chatGen++
	s.mu.Unlock()

	s.renderConnection(false)
	s.renderList()
}

// SendMessage validates, echoes the message locally, then delivers it
// over the socket or falls back to REST. The local echo is never rolled
// back on delivery failure; the next history replay reconciles.
func (s *Synchronizer) SendMessage(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, &errdefs.ValidationError{Reason: "empty message"}
	}
	if max := s.cfg.Limits.MaxMessageLength; max > 0 && len(text) > max {
		return models.Message{}, &errdefs.ValidationError{Reason: "message too long"}
	}
	return s.send(ctx, text, nil)
}

// SendAttachment uploads a file and sends a message referencing it.
func (s *Synchronizer) SendAttachment(ctx context.Context, filename, mimeType string, content []byte) (models.Message, error) {
	if max := s.cfg.Limits.MaxFileSize; max > 0 && int64(len(content)) > max {
		return models.Message{}, &errdefs.ValidationError{Reason: "file too large"}
	}
	if !s.allowedType(mimeType) {
		return models.Message{}, &errdefs.ValidationError{Reason: "file type not allowed"}
	}

	s.mu.Lock()
	active := s.active
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed || active == "" {
		return models.Message{}, &errdefs.ValidationError{Reason: "no active conversation"}
	}

	url, err := s.tp.UploadFile(ctx, active, filename, content)
	if err != nil {
		s.emitError(err)
		return models.Message{}, err
	}
	file := &models.FileAttachment{
		Filename: filename,
		Filepath: url,
		Size:     int64(len(content)),
		MimeType: mimeType,
	}
	return s.send(ctx, "📎 "+filename, file)
}

func (s *Synchronizer) allowedType(mimeType string) bool {
	allowed := s.cfg.Limits.AllowedFileTypes
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == mimeType {
			return true
		}
	}
	return false
}

func (s *Synchronizer) send(ctx context.Context, text string, file *models.FileAttachment) (models.Message, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return models.Message{}, &errdefs.ValidationError{Reason: "synchronizer destroyed"}
	}
	if s.active == "" {
		s.mu.Unlock()
		return models.Message{}, &errdefs.ValidationError{Reason: "no active conversation"}
	}
	m := models.Message{
		ID:          uuid.NewString(),
		SessionID:   s.active,
		Sender:      models.SenderUser,
		MessageText: text,
		Created:     time.Now().UTC(),
		File:        file,
	}
	conv := s.ensureLocked(m.SessionID)
	conv.Append(m)
	snapshot := *conv
	chat := s.chat
	s.mu.Unlock()

	if err := store.SaveConversation(snapshot); err != nil {
		logger.Warn("conversation_cache_write_failed", "error", err)
	}
	if s.hooks.OnMessageSent != nil {
		s.hooks.OnMessageSent(m)
	}
	s.renderMessages(m.SessionID)

	if chat != nil && chat.Send(m) {
		metrics.MessagesSent.WithLabelValues("socket").Inc()
		return m, nil
	}
	if err := s.tp.SendMessage(ctx, m); err != nil {
		s.emitError(err)
		return m, err
	}
	metrics.MessagesSent.WithLabelValues("rest").Inc()
	return m, nil
}

// MarkConversationRead clears local unread state and sends a best-effort
// read receipt; when the channel is down the receipt is queued and
// flushed on the next connection.
func (s *Synchronizer) MarkConversationRead(sessionID string) {
	s.mu.Lock()
	if s.destroyed || sessionID == "" {
		s.mu.Unlock()
		return
	}
	delete(s.unread, sessionID)
	var snapshot *models.Conversation
	if conv, ok := s.conversations[sessionID]; ok && conv.Unread {
		conv.Unread = false
		c := *conv
		snapshot = &c
	}
	chat := s.chat
	notify := s.notify
	sent := false
	if chat != nil && chat.IsOpen() && chat.SessionID() == sessionID {
		sent = chat.SendMarkRead(sessionID)
	}
	if !sent {
		s.pendingReads[sessionID] = struct{}{}
	} else {
		delete(s.pendingReads, sessionID)
	}
	metrics.UnreadConversations.Set(float64(len(s.unread)))
	s.mu.Unlock()

	if snapshot != nil {
		if err := store.SaveConversation(*snapshot); err != nil {
			logger.Warn("conversation_cache_write_failed", "error", err)
		}
	}
	if notify != nil {
		notify.RequestUnreadCount()
	}
	s.renderList()
	s.renderBadge()
}

// StartTyping forwards a typing signal to the active channel; the socket
// handles debounce and auto-stop.
func (s *Synchronizer) StartTyping() {
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat != nil {
		chat.SendTypingStart()
	}
}

// StopTyping forwards an explicit stop to the active channel.
func (s *Synchronizer) StopTyping() {
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat != nil {
		chat.SendTypingStop()
	}
}

// Identify upgrades the visitor to an identified user: persists the
// identity, swaps the transport credential, resyncs conversation state
// and rebuilds both sockets under the new identity. An identity without
// a token is ignored; the widget stays anonymous rather than failing.
func (s *Synchronizer) Identify(ctx context.Context, u models.UserIdentity) error {
	if u.Anonymous() {
		logger.Warn("identify_without_token_ignored")
		return nil
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return &errdefs.ValidationError{Reason: "synchronizer destroyed"}
	}
	s.user = u
	s.epoch++
	s.chatGen++
	epoch := s.epoch
	gen := s.chatGen
	active := s.active
	if s.chat != nil {
		s.chat.Disconnect()
		s.chat = nil
	}
	if s.notify != nil {
		s.notify.Disconnect()
		s.notify = nil
	}
	s.live = false
	s.mu.Unlock()

	if err := store.SaveUser(u); err != nil {
		logger.Warn("identity_persist_failed", "error", err)
	}
	s.tp.SetUserJWT(u.UserJWT)

	s.refreshConversations(ctx, epoch)
	token := s.socketToken(ctx)

	s.mu.Lock()
	if s.destroyed || epoch != s.epoch {
		s.mu.Unlock()
		return nil
	}
	s.notify = s.newNotify(token, s.notifyHandlers(epoch))
	notify := s.notify
	var chat ConversationChannel
	if active != "" {
		s.bootstrapped = make(chan struct{})
		s.chat = s.newChat(token, s.chatHandlers(gen))
		chat = s.chat
	}
	s.mu.Unlock()

	notify.Connect()
	if chat != nil {
		chat.Connect(active)
	}
	return nil
}

// Open marks the widget window open: the badge clears and the list is
// refreshed in the background.
func (s *Synchronizer) Open() {
	s.mu.Lock()
	if s.destroyed || s.open {
		s.mu.Unlock()
		return
	}
	s.open = true
	s.badge = 0
	epoch := s.epoch
	identified := !s.user.Anonymous()
	s.mu.Unlock()

	if s.hooks.OnOpen != nil {
		s.hooks.OnOpen()
	}
	s.renderBadge()
	if identified {
		go s.refreshConversations(context.Background(), epoch)
	}
}

// Close marks the window closed and drops the realtime channel; the
// active conversation id is kept so reopening resumes it.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.destroyed || !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	if s.chat != nil {
		s.chat.Disconnect()
		s.chat = nil
	}
	s.live = false
	s.chatGen++
	s.mu.Unlock()

	if s.hooks.OnClose != nil {
		s.hooks.OnClose()
	}
	s.renderConnection(false)
}

// Destroy tears everything down: timers stop, both sockets close
// cleanly, and every late async completion becomes a no-op.
func (s *Synchronizer) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.epoch++
	s.chatGen++
	chat := s.chat
	notify := s.notify
	s.chat = nil
	s.notify = nil
	s.active = ""
	s.live = false
	s.mu.Unlock()

	if chat != nil {
		chat.Disconnect()
	}
	if notify != nil {
		notify.Disconnect()
	}
}

// Conversations returns a snapshot of all known conversations, most
// recently active first.
func (s *Synchronizer) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationListLocked()
}

// ActiveConversation returns the currently open conversation, if any.
func (s *Synchronizer) ActiveConversation() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return models.Conversation{}, false
	}
	conv, ok := s.conversations[s.active]
	if !ok {
		return models.Conversation{}, false
	}
	return *conv, true
}

// UnreadTotal is the badge value: the live server aggregate when the
// notification channel has reported one, otherwise the local set size.
func (s *Synchronizer) UnreadTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.badge > len(s.unread) {
		return s.badge
	}
	return len(s.unread)
}

// IsUnread reports the local unread flag for one conversation.
func (s *Synchronizer) IsUnread(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unread[sessionID]
	return ok
}

// IsLive reports whether the active conversation's channel completed its
// bootstrap and is currently open.
func (s *Synchronizer) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// DisplayMessages derives render-ready messages for one conversation.
func (s *Synchronizer) DisplayMessages(sessionID string) []DisplayMessage {
	s.mu.Lock()
	conv, ok := s.conversations[sessionID]
	var msgs []models.Message
	if ok {
		msgs = append(msgs, conv.Messages...)
	}
	s.mu.Unlock()
	return BuildDisplay(msgs, time.Now(), time.Local)
}

func (s *Synchronizer) ensureLocked(sessionID string) *models.Conversation {
	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &models.Conversation{SessionID: sessionID, Created: time.Now().UTC()}
		s.conversations[sessionID] = conv
	}
	return conv
}

func (s *Synchronizer) conversationListLocked() []models.Conversation {
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		cc := *c
		_, cc.Unread = s.unread[cc.SessionID]
		out = append(out, cc)
	}
	sortConversations(out)
	return out
}

func sortConversations(convs []models.Conversation) {
	for i := 1; i < len(convs); i++ {
		for j := i; j > 0 && activity(convs[j]).After(activity(convs[j-1])); j-- {
			convs[j], convs[j-1] = convs[j-1], convs[j]
		}
	}
}

func activity(c models.Conversation) time.Time {
	if !c.Modified.IsZero() {
		return c.Modified
	}
	return c.Created
}

func (s *Synchronizer) emitReady() {
	if s.hooks.OnReady != nil {
		s.hooks.OnReady()
	}
}

func (s *Synchronizer) emitError(err error) {
	logger.Warn("widget_error", "error", err)
	if s.hooks.OnError != nil {
		s.hooks.OnError(err)
	}
}

func (s *Synchronizer) renderList() {
	if s.hooks.RenderConversationList == nil {
		return
	}
	s.mu.Lock()
	list := s.conversationListLocked()
	s.mu.Unlock()
	s.hooks.RenderConversationList(list)
}

func (s *Synchronizer) renderMessages(sessionID string) {
	if s.hooks.RenderMessages == nil {
		return
	}
	s.hooks.RenderMessages(sessionID, s.DisplayMessages(sessionID))
}

func (s *Synchronizer) renderBadge() {
	if s.hooks.RenderUnreadBadge == nil {
		return
	}
	s.hooks.RenderUnreadBadge(s.UnreadTotal())
}

func (s *Synchronizer) renderConnection(live bool) {
	if s.hooks.RenderConnection != nil {
		s.hooks.RenderConnection(live)
	}
}

func (s *Synchronizer) dedupeKey(m models.Message) string {
	return m.SessionID + "|" + m.Created.UTC().Format(time.RFC3339Nano) + "|" + string(m.Sender) + "|" + m.MessageText
}

func (s *Synchronizer) sameMessage(a, b models.Message) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return s.dedupeKey(a) == s.dedupeKey(b)
}
