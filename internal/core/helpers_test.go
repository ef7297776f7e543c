package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/cryptox"
	"github.com/andresthedesigner/videodaddychat/internal/llm"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

type fakeBlobs struct {
	mu      sync.Mutex
	n       int
	deleted []string
}

func (f *fakeBlobs) PresignUpload(_ context.Context, _ string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	key := fmt.Sprintf("attachments/test/%d", f.n)
	return key, "https://blobs.test/put/" + key, nil
}

func (f *fakeBlobs) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://blobs.test/get/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// stubProvider answers title requests (MaxTokens 20) with a title and
// everything else with a fixed reply.
type stubProvider struct {
	name string
	err  error

	mu   sync.Mutex
	reqs []llm.Request
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if req.MaxTokens == 20 {
		return &llm.Response{Text: "\"Channel Growth Tips\""}, nil
	}
	return &llm.Response{Text: "Post consistently."}, nil
}

func (p *stubProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.reqs...)
}

type envKeys map[string]string

func (e envKeys) ProviderKey(provider string) string { return e[provider] }

type testEnv struct {
	store      store.Store
	blobs      *fakeBlobs
	openai     *stubProvider
	anthropic  *stubProvider
	env        envKeys
	users      *UserService
	usage      *UsageService
	keys       *KeyService
	chats      *ChatService
	messages   *MessageService
	projects   *ProjectService
	prefs      *PreferencesService
	feedback   *FeedbackService
	files      *FileService
	completion *CompletionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	cipher, err := cryptox.NewKeyCipher("test-secret")
	require.NoError(t, err)

	log := logging.Nop()
	e := &testEnv{
		store:     s,
		blobs:     &fakeBlobs{},
		openai:    &stubProvider{name: catalog.ProviderOpenAI},
		anthropic: &stubProvider{name: catalog.ProviderAnthropic},
		env:       envKeys{catalog.ProviderOpenAI: "sk-env-openai"},
	}
	e.users = NewUserService(s, log)
	e.keys = NewKeyService(s, cipher, e.env, log)
	e.usage = NewUsageService(s, nil, e.keys, log)
	e.chats = NewChatService(s, e.usage, e.blobs, log)
	e.messages = NewMessageService(s, e.chats)
	e.projects = NewProjectService(s, e.blobs, log)
	e.prefs = NewPreferencesService(s)
	e.feedback = NewFeedbackService(s)
	e.files = NewFileService(s, e.blobs, e.chats, log)
	e.completion = NewCompletionService(s, e.usage, e.chats, e.keys,
		catalog.New(catalog.StaticLoader), llm.NewRegistry(e.openai, e.anthropic), log)
	return e
}

func callerFor(subject string) Caller {
	return Caller{Identity: &auth.Identity{Subject: subject, Email: subject + "@example.com"}}
}

func (e *testEnv) user(t *testing.T, subject string) (*store.User, Caller) {
	t.Helper()
	c := callerFor(subject)
	u, err := e.users.EnsureUser(context.Background(), c.Identity)
	require.NoError(t, err)
	return u, c
}

func (e *testEnv) chat(t *testing.T, u *store.User, c Caller) *store.Chat {
	t.Helper()
	chat, err := e.chats.Create(context.Background(), c, u.ID, CreateChatInput{})
	require.NoError(t, err)
	return chat
}
