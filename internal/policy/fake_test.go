package policy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/moderation"
	"github.com/whisper/groupguard/internal/platform"
)

var errPlatform = errors.New("platform: request failed")

// call is one recorded platform operation.
type call struct {
	op        string
	chatID    int64
	userID    int64
	messageID int
	text      string
	opts      platform.SendOptions
}

// fakeClient records every platform call. Operations listed in fail return
// errPlatform.
type fakeClient struct {
	mu       sync.Mutex
	calls    []call
	admins   map[int64]bool
	adminErr error
	staff    []platform.User
	fail     map[string]bool
	nextID   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		admins: make(map[int64]bool),
		fail:   make(map[string]bool),
		nextID: 1000,
		staff: []platform.User{
			{ID: 900, Username: "owner"},
			{ID: 901, Username: "guard_bot", IsBot: true},
		},
	}
}

func (f *fakeClient) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.fail[c.op] {
		return errPlatform
	}
	return nil
}

func (f *fakeClient) SendMessage(_ context.Context, chatID int64, text string, opts platform.SendOptions) (int, error) {
	if err := f.record(call{op: "send", chatID: chatID, text: text, opts: opts}); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID, nil
}

func (f *fakeClient) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	return f.record(call{op: "delete", chatID: chatID, messageID: messageID})
}

func (f *fakeClient) BanMember(_ context.Context, chatID, userID int64) error {
	return f.record(call{op: "ban", chatID: chatID, userID: userID})
}

func (f *fakeClient) IsAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return f.admins[userID], nil
}

func (f *fakeClient) Administrators(_ context.Context, chatID int64) ([]platform.User, error) {
	if err := f.record(call{op: "administrators", chatID: chatID}); err != nil {
		return nil, err
	}
	return f.staff, nil
}

func (f *fakeClient) AnswerCallback(_ context.Context, callbackID, text string) error {
	return f.record(call{op: "answer", text: text})
}

// ops returns the recorded calls with the given op.
func (f *fakeClient) ops(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// sentTo returns the texts sent to chatID.
func (f *fakeClient) sentTo(chatID int64) []string {
	var out []string
	for _, c := range f.ops("send") {
		if c.chatID == chatID {
			out = append(out, c.text)
		}
	}
	return out
}

func (f *fakeClient) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// manualScheduler queues delayed tasks until run is called.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
	delay []time.Duration
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, f)
	s.delay = append(s.delay, d)
}

func (s *manualScheduler) run() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, f := range tasks {
		f()
	}
}

// harness bundles an Engine with its fakes.
type harness struct {
	engine *Engine
	client *fakeClient
	store  *enforcement.MemoryStore
	events *events.Recorder
	sched  *manualScheduler
	cfg    *config.Config
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	h := &harness{
		client: newFakeClient(),
		store:  enforcement.NewMemoryStore(),
		events: events.NewRecorder(),
		sched:  &manualScheduler{},
		cfg:    &cfg,
	}
	h.engine = New(Deps{
		Client:     h.client,
		Store:      h.store,
		Classifier: moderation.NewDefaultClassifier(),
		Groups:     h.cfg,
		Scheduler:  h.sched,
		Events:     h.events,
		Log:        zap.NewNop(),
	}, OptionsFromConfig(h.cfg))
	return h
}

const testChat int64 = -1001

var member = platform.User{ID: 7, Username: "spammer"}

func groupChat() platform.Chat {
	return platform.Chat{ID: testChat, Type: platform.ChatSupergroup, Title: "Mercedes Owners"}
}

func textMsg(id int, from platform.User, text string) *platform.Message {
	return &platform.Message{ID: id, Chat: groupChat(), From: from, Text: text}
}

func videoMsg(id int, from platform.User, v platform.Video) *platform.Message {
	return &platform.Message{ID: id, Chat: groupChat(), From: from, Video: &v}
}

func (h *harness) warnings(t *testing.T, userID int64) int {
	t.Helper()
	n, err := h.store.Warnings(context.Background(), testChat, userID)
	if err != nil {
		t.Fatalf("Warnings() error: %v", err)
	}
	return n
}
