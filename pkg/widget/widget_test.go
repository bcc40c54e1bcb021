package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tpchat/pkg/config"
	"tpchat/pkg/errdefs"
	"tpchat/pkg/models"
	"tpchat/pkg/protocol"
	"tpchat/pkg/socket"
	"tpchat/pkg/store"
	"tpchat/pkg/transport"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AppID = "app-1"
	cfg.TeamSlug = "acme"
	return cfg
}

type fakeTransport struct {
	mu           sync.Mutex
	listResult   transport.ListResult
	listErr      error
	listCalls    int
	sent         []models.Message
	sendErr      error
	sessionID    string
	sessionCalls int
	jwt          string
	token        string
}

func (f *fakeTransport) ListConversations(ctx context.Context, limit, offset int) (transport.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.listResult, f.listErr
}

func (f *fakeTransport) SendMessage(ctx context.Context, m models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeTransport) CreateSession(ctx context.Context) (transport.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	id := f.sessionID
	if id == "" {
		id = "s-new"
	}
	return transport.Session{SessionID: id, Created: time.Now().UTC()}, nil
}

func (f *fakeTransport) UploadFile(ctx context.Context, sessionID, filename string, content []byte) (string, error) {
	return "https://files.test/" + filename, nil
}

func (f *fakeTransport) ChatToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTransport) SetUserJWT(jwt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jwt = jwt
}

func (f *fakeTransport) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeChat struct {
	h    socket.ConversationHandlers
	auto bool

	mu          sync.Mutex
	open        bool
	session     string
	connects    int
	disconnects int
	sent        []models.Message
	markReads   []string
}

func (c *fakeChat) Connect(sessionID string) {
	c.mu.Lock()
	c.session = sessionID
	c.connects++
	auto := c.auto
	c.mu.Unlock()
	if auto {
		go func() {
			c.mu.Lock()
			c.open = true
			c.mu.Unlock()
			if c.h.OnSessionState != nil {
				c.h.OnSessionState(protocol.SessionState{SessionID: sessionID, Created: time.Now().UTC()})
			}
		}()
	}
}

func (c *fakeChat) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.disconnects++
}

func (c *fakeChat) Send(m models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.sent = append(c.sent, m)
	return true
}

func (c *fakeChat) SendMarkRead(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.markReads = append(c.markReads, sessionID)
	return true
}

func (c *fakeChat) SendTypingStart() {}
func (c *fakeChat) SendTypingStop()  {}

func (c *fakeChat) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChat) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

type fakeNotify struct {
	h socket.NotificationHandlers

	mu          sync.Mutex
	connects    int
	disconnects int
	requests    int
}

func (n *fakeNotify) Connect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connects++
}

func (n *fakeNotify) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnects++
}

func (n *fakeNotify) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connects > n.disconnects
}

func (n *fakeNotify) RequestUnreadCount() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	return true
}

// harness bundles a synchronizer with its fakes.
type harness struct {
	sync *Synchronizer
	tp   *fakeTransport

	mu      sync.Mutex
	chats   []*fakeChat
	notifys []*fakeNotify
	auto    bool
}

func newHarness(cfg *config.Config, tp *fakeTransport, hooks Hooks) *harness {
	h := &harness{tp: tp, auto: true}
	h.sync = New(Options{
		Config:    cfg,
		Transport: tp,
		Hooks:     hooks,
		NewChat: func(token string, handlers socket.ConversationHandlers) ConversationChannel {
			h.mu.Lock()
			defer h.mu.Unlock()
			c := &fakeChat{h: handlers, auto: h.auto}
			h.chats = append(h.chats, c)
			return c
		},
		NewNotify: func(token string, handlers socket.NotificationHandlers) NotificationChannel {
			h.mu.Lock()
			defer h.mu.Unlock()
			n := &fakeNotify{h: handlers}
			h.notifys = append(h.notifys, n)
			return n
		},
	})
	return h
}

func (h *harness) chat() *fakeChat {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.chats) == 0 {
		return nil
	}
	return h.chats[len(h.chats)-1]
}

func (h *harness) notify() *fakeNotify {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notifys) == 0 {
		return nil
	}
	return h.notifys[len(h.notifys)-1]
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	tp := &fakeTransport{}
	h := newHarness(config.Default(), tp, Hooks{}) // no app_id / team_slug

	err := h.sync.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errdefs.IsConfiguration(err) {
		t.Fatalf("got %T, want ConfigurationError", err)
	}
	if tp.lists() != 0 {
		t.Fatal("invalid config must fail before any network call")
	}
}

func TestInitializeAnonymousUsesCacheOnly(t *testing.T) {
	openTestStore(t)
	seed := models.Conversation{SessionID: "cached-1", Created: time.Now().UTC(), Modified: time.Now().UTC()}
	if err := store.SaveConversation(seed); err != nil {
		t.Fatal(err)
	}

	tp := &fakeTransport{}
	ready := false
	h := newHarness(testConfig(), tp, Hooks{OnReady: func() { ready = true }})
	if err := h.sync.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !ready {
		t.Fatal("OnReady not fired")
	}
	if tp.lists() != 0 {
		t.Fatal("anonymous init must not hit the list endpoint")
	}
	convs := h.sync.Conversations()
	if len(convs) != 1 || convs[0].SessionID != "cached-1" {
		t.Fatalf("cache not loaded: %+v", convs)
	}
	if n := h.notify(); n == nil || n.connects != 1 {
		t.Fatal("notification channel not connected")
	}
}

func TestInitializeIdentifiedRefreshesAndRebuildsUnread(t *testing.T) {
	openTestStore(t)

	// stale local state: "a" unread, "b" unknown
	_ = store.SaveConversation(models.Conversation{SessionID: "a", Unread: true, Modified: time.Now().UTC()})

	cfg := testConfig()
	cfg.UserJWT = "user-jwt"
	tp := &fakeTransport{
		listResult: transport.ListResult{
			Results: []models.Conversation{
				{SessionID: "a", Unread: false, Modified: time.Now().UTC()},
				{SessionID: "b", Unread: true, Modified: time.Now().UTC()},
			},
			Total: 2,
		},
	}
	h := newHarness(cfg, tp, Hooks{})
	if err := h.sync.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if tp.lists() != 1 {
		t.Fatalf("list calls = %d, want 1", tp.lists())
	}
	// unread is rebuilt from the backend flags, never merged additively
	if h.sync.IsUnread("a") {
		t.Fatal("a should have been cleared by the refresh")
	}
	if !h.sync.IsUnread("b") {
		t.Fatal("b should be unread per the backend")
	}
	// the durable cache now matches the server list
	cached, err := store.ListConversations()
	if err != nil || len(cached) != 2 {
		t.Fatalf("cache after refresh: %v err=%v", cached, err)
	}
}

func TestSendMessageWithoutConversation(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{}
	h := newHarness(testConfig(), tp, Hooks{})
	if err := h.sync.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := h.sync.SendMessage(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errdefs.IsValidation(err) {
		t.Fatalf("got %T, want ValidationError", err)
	}
	if tp.sentCount() != 0 {
		t.Fatal("validation failure must not reach the network")
	}
}

func TestSendMessageValidation(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	_, _ = h.sync.OpenConversation(context.Background(), "new")

	if _, err := h.sync.SendMessage(context.Background(), "   "); !errdefs.IsValidation(err) {
		t.Fatalf("blank message: got %v", err)
	}
	long := make([]byte, 5001)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := h.sync.SendMessage(context.Background(), string(long)); !errdefs.IsValidation(err) {
		t.Fatalf("oversized message: got %v", err)
	}
}

func TestOpenConversationNewAndSendOverSocket(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-9"}
	var started string
	var sentHook models.Message
	h := newHarness(testConfig(), tp, Hooks{
		OnConversationStarted: func(id string) { started = id },
		OnMessageSent:         func(m models.Message) { sentHook = m },
	})
	if err := h.sync.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	id, err := h.sync.OpenConversation(context.Background(), "new")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if id != "s-9" {
		t.Fatalf("session = %q", id)
	}
	if started != "s-9" {
		t.Fatalf("OnConversationStarted = %q", started)
	}
	if !h.sync.IsLive() {
		t.Fatal("bootstrap should mark the channel live")
	}

	m, err := h.sync.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sentHook.ID != m.ID {
		t.Fatal("OnMessageSent not fired with the echoed message")
	}
	chat := h.chat()
	chat.mu.Lock()
	socketSends := len(chat.sent)
	chat.mu.Unlock()
	if socketSends != 1 {
		t.Fatalf("socket sends = %d, want 1", socketSends)
	}
	if tp.sentCount() != 0 {
		t.Fatal("socket path must not fall back to REST")
	}
	conv, ok := h.sync.ActiveConversation()
	if !ok || len(conv.Messages) != 1 {
		t.Fatalf("optimistic echo missing: %+v", conv)
	}
}

func TestSendMessageRESTFallback(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{}
	h := newHarness(testConfig(), tp, Hooks{})
	h.auto = false // channel never bootstraps, stays closed
	_ = h.sync.Initialize(context.Background())

	cfg := h.sync.cfg
	cfg.Socket.ConnectTimeout = config.Duration(20 * time.Millisecond)

	if _, err := h.sync.OpenConversation(context.Background(), "new"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if h.sync.IsLive() {
		t.Fatal("channel should not be live without a bootstrap")
	}

	if _, err := h.sync.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if tp.sentCount() != 1 {
		t.Fatalf("rest sends = %d, want 1", tp.sentCount())
	}
}

func TestOptimisticEchoSurvivesSendFailure(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sendErr: errors.New("backend down")}
	h := newHarness(testConfig(), tp, Hooks{})
	h.auto = false
	_ = h.sync.Initialize(context.Background())
	h.sync.cfg.Socket.ConnectTimeout = config.Duration(20 * time.Millisecond)
	id, _ := h.sync.OpenConversation(context.Background(), "new")

	_, err := h.sync.SendMessage(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected delivery failure")
	}
	// no rollback: the echo stays in memory and in the cache
	conv, ok := h.sync.ActiveConversation()
	if !ok || len(conv.Messages) != 1 {
		t.Fatalf("echo rolled back: %+v", conv)
	}
	cached, cerr := store.GetConversation(id)
	if cerr != nil || len(cached.Messages) != 1 {
		t.Fatalf("echo not cached: %+v err=%v", cached, cerr)
	}
}

func TestLiveMessageDedupeAndUnread(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	var received []models.Message
	var mu sync.Mutex
	h := newHarness(testConfig(), tp, Hooks{
		OnMessageReceived: func(m models.Message) {
			mu.Lock()
			received = append(received, m)
			mu.Unlock()
		},
	})
	_ = h.sync.Initialize(context.Background())
	h.sync.Open()
	id, _ := h.sync.OpenConversation(context.Background(), "new")

	m, _ := h.sync.SendMessage(context.Background(), "hello")

	chat := h.chat()
	// the server echoes our own message back; it must not duplicate
	chat.h.OnMessage(m)
	conv, _ := h.sync.ActiveConversation()
	if len(conv.Messages) != 1 {
		t.Fatalf("echo duplicated: %d messages", len(conv.Messages))
	}

	reply := models.Message{ID: "srv-1", SessionID: id, Sender: models.SenderAgent, MessageText: "hi!", Created: time.Now().UTC()}
	chat.h.OnMessage(reply)
	conv, _ = h.sync.ActiveConversation()
	if len(conv.Messages) != 2 {
		t.Fatalf("agent reply missing: %d messages", len(conv.Messages))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].ID != "srv-1" {
		t.Fatalf("OnMessageReceived = %+v", received)
	}
	// viewing the conversation keeps it read
	if h.sync.IsUnread(id) {
		t.Fatal("active viewed conversation must not go unread")
	}
}

func TestLiveMessageForOtherConversationMarksUnread(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	_, _ = h.sync.OpenConversation(context.Background(), "new")

	chat := h.chat()
	other := models.Message{ID: "srv-2", SessionID: "s-other", Sender: models.SenderAgent, MessageText: "psst", Created: time.Now().UTC()}
	chat.h.OnMessage(other)

	if !h.sync.IsUnread("s-other") {
		t.Fatal("message for a background conversation must mark it unread")
	}
}

func TestHistoryMergePreservesLocalEcho(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	id, _ := h.sync.OpenConversation(context.Background(), "new")

	local, _ := h.sync.SendMessage(context.Background(), "just sent")

	history := protocol.MessageHistory{
		SessionID: id,
		Messages: []models.Message{
			{ID: "h-1", SessionID: id, Sender: models.SenderUser, MessageText: "earlier", Created: time.Now().Add(-time.Hour).UTC()},
			{ID: "h-2", SessionID: id, Sender: models.SenderAgent, MessageText: "reply", Created: time.Now().Add(-59 * time.Minute).UTC()},
		},
	}
	h.chat().h.OnMessageHistory(history)

	conv, _ := h.sync.ActiveConversation()
	if len(conv.Messages) != 3 {
		t.Fatalf("merged = %d messages, want 3", len(conv.Messages))
	}
	found := false
	for _, m := range conv.Messages {
		if m.ID == local.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("local echo lost in history merge")
	}
}

func TestIdentifyTeardownAndResync(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	_, _ = h.sync.OpenConversation(context.Background(), "new")

	oldChat := h.chat()
	oldNotify := h.notify()

	u := models.UserIdentity{ID: "u-1", Email: "ada@acme.test", UserJWT: "fresh-jwt"}
	if err := h.sync.Identify(context.Background(), u); err != nil {
		t.Fatalf("identify: %v", err)
	}

	tp.mu.Lock()
	jwt := tp.jwt
	tp.mu.Unlock()
	if jwt != "fresh-jwt" {
		t.Fatalf("transport jwt = %q", jwt)
	}
	if tp.lists() != 1 {
		t.Fatalf("identify must resync: list calls = %d", tp.lists())
	}

	oldChat.mu.Lock()
	chatDown := oldChat.disconnects
	oldChat.mu.Unlock()
	if chatDown != 1 {
		t.Fatal("old chat channel not torn down")
	}
	oldNotify.mu.Lock()
	notifyDown := oldNotify.disconnects
	oldNotify.mu.Unlock()
	if notifyDown != 1 {
		t.Fatal("old notification channel not torn down")
	}

	newChat := h.chat()
	newChat.mu.Lock()
	newConnects := newChat.connects
	newChat.mu.Unlock()
	if newChat == oldChat || newConnects != 1 {
		t.Fatal("conversation channel not recreated under the new identity")
	}
	if got, ok := store.GetUser(); !ok || got.UserJWT != "fresh-jwt" {
		t.Fatalf("identity not persisted: %+v ok=%v", got, ok)
	}
}

func TestIdentifyWithoutTokenIgnored(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	notify := h.notify()

	if err := h.sync.Identify(context.Background(), models.UserIdentity{Email: "no-jwt@acme.test"}); err != nil {
		t.Fatalf("identify: %v", err)
	}
	notify.mu.Lock()
	down := notify.disconnects
	notify.mu.Unlock()
	if down != 0 {
		t.Fatal("anonymous identify must be a no-op")
	}
}

func TestUnreadBadgeLifecycle(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{}
	var badges []int
	var mu sync.Mutex
	h := newHarness(testConfig(), tp, Hooks{
		RenderUnreadBadge: func(n int) {
			mu.Lock()
			badges = append(badges, n)
			mu.Unlock()
		},
	})
	_ = h.sync.Initialize(context.Background())

	// server reports unread while the window is closed
	h.notify().h.OnUnreadCount(3)
	if got := h.sync.UnreadTotal(); got != 3 {
		t.Fatalf("badge = %d, want 3", got)
	}

	// opening the window clears the badge
	h.sync.Open()
	if got := h.sync.UnreadTotal(); got != 0 {
		t.Fatalf("badge after open = %d, want 0", got)
	}

	// counts arriving while open stay suppressed
	h.notify().h.OnUnreadCount(5)
	if got := h.sync.UnreadTotal(); got != 0 {
		t.Fatalf("badge while open = %d, want 0", got)
	}
}

func TestMarkConversationRead(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	id, _ := h.sync.OpenConversation(context.Background(), "new")

	chat := h.chat()
	chat.h.OnMessage(models.Message{ID: "x", SessionID: "s-bg", Sender: models.SenderAgent, MessageText: "bg", Created: time.Now().UTC()})
	if !h.sync.IsUnread("s-bg") {
		t.Fatal("setup: background conversation should be unread")
	}

	h.sync.MarkConversationRead("s-bg")
	if h.sync.IsUnread("s-bg") {
		t.Fatal("mark read did not clear the flag")
	}

	// receipt for the active open channel goes out directly
	h.sync.MarkConversationRead(id)
	chat.mu.Lock()
	reads := len(chat.markReads)
	chat.mu.Unlock()
	if reads == 0 {
		t.Fatal("no read receipt sent on the open channel")
	}
}

func TestQueuedReadReceiptsFlushOnBootstrap(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	h.auto = false
	_ = h.sync.Initialize(context.Background())
	h.sync.cfg.Socket.ConnectTimeout = config.Duration(20 * time.Millisecond)
	id, _ := h.sync.OpenConversation(context.Background(), "new")

	chat := h.chat()
	// the channel is down; receipts must queue, not drop
	h.sync.MarkConversationRead("s-bg")
	chat.mu.Lock()
	early := len(chat.markReads)
	chat.mu.Unlock()
	if early != 0 {
		t.Fatal("receipt sent on a closed channel")
	}

	// late bootstrap: everything queued goes out now
	chat.mu.Lock()
	chat.open = true
	chat.mu.Unlock()
	chat.h.OnSessionState(protocol.SessionState{SessionID: id, Created: time.Now().UTC()})

	chat.mu.Lock()
	defer chat.mu.Unlock()
	flushed := map[string]bool{}
	for _, r := range chat.markReads {
		flushed[r] = true
	}
	if !flushed["s-bg"] || !flushed[id] {
		t.Fatalf("queued receipts not flushed: %v", chat.markReads)
	}
}

func TestCloseActiveConversationIdempotent(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	_, _ = h.sync.OpenConversation(context.Background(), "new")

	h.sync.CloseActiveConversation()
	h.sync.CloseActiveConversation()

	chat := h.chat()
	chat.mu.Lock()
	down := chat.disconnects
	chat.mu.Unlock()
	if down != 1 {
		t.Fatalf("disconnects = %d, want 1", down)
	}
	if _, ok := h.sync.ActiveConversation(); ok {
		t.Fatal("active conversation not cleared")
	}
}

func TestDestroyDropsLateEvents(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	_ = h.sync.Initialize(context.Background())
	id, _ := h.sync.OpenConversation(context.Background(), "new")
	chat := h.chat()

	h.sync.Destroy()
	h.sync.Destroy() // idempotent

	// a stale read completing after teardown must be a no-op
	chat.h.OnMessage(models.Message{ID: "late", SessionID: id, Sender: models.SenderAgent, MessageText: "too late", Created: time.Now().UTC()})
	if h.sync.IsUnread(id) {
		t.Fatal("late event mutated destroyed state")
	}
	if _, err := h.sync.SendMessage(context.Background(), "hello"); !errdefs.IsValidation(err) {
		t.Fatalf("send after destroy: got %v", err)
	}
}

func TestOpenConversationTimeoutResolves(t *testing.T) {
	openTestStore(t)
	tp := &fakeTransport{sessionID: "s-1"}
	h := newHarness(testConfig(), tp, Hooks{})
	h.auto = false
	_ = h.sync.Initialize(context.Background())
	h.sync.cfg.Socket.ConnectTimeout = config.Duration(30 * time.Millisecond)

	start := time.Now()
	id, err := h.sync.OpenConversation(context.Background(), "new")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if id == "" {
		t.Fatal("open must resolve with the session id even without a bootstrap")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("open blocked for %v", elapsed)
	}
	if h.sync.IsLive() {
		t.Fatal("channel must not report live without a bootstrap")
	}
}
