package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/andresthedesigner/videodaddychat/internal/agents"
	"github.com/andresthedesigner/videodaddychat/internal/auth"
	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/core"
	"github.com/andresthedesigner/videodaddychat/internal/cryptox"
	"github.com/andresthedesigner/videodaddychat/internal/llm"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

const testWebhookSecret = "hook-secret"

type memBlobs struct {
	mu sync.Mutex
	n  int
}

func (b *memBlobs) PresignUpload(_ context.Context, _ string) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	key := fmt.Sprintf("attachments/api/%d", b.n)
	return key, "https://blobs.test/put/" + key, nil
}

func (b *memBlobs) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://blobs.test/get/" + key, nil
}

func (b *memBlobs) Delete(context.Context, string) error { return nil }

type echoProvider struct{}

func (echoProvider) Name() string { return catalog.ProviderOpenAI }

func (echoProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	if req.MaxTokens == 20 {
		return &llm.Response{Text: "Upload Schedule Ideas"}, nil
	}
	return &llm.Response{Text: "Post consistently."}, nil
}

type envKeys map[string]string

func (e envKeys) ProviderKey(p string) string { return e[p] }

type testServer struct {
	*httptest.Server
	store   store.Store
	tm      *auth.TokenManager
	svc     Services
	handler *APIHandler
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	s, err := store.NewSQLiteStore("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	cipher, err := cryptox.NewKeyCipher("api-test-secret")
	require.NoError(t, err)

	log := logging.Nop()
	blobs := &memBlobs{}
	keys := core.NewKeyService(s, cipher, envKeys{catalog.ProviderOpenAI: "sk-env"}, log)
	usage := core.NewUsageService(s, nil, keys, log)
	chats := core.NewChatService(s, usage, blobs, log)
	svc := Services{
		Users:        core.NewUserService(s, log),
		Usage:        usage,
		Chats:        chats,
		Messages:     core.NewMessageService(s, chats),
		Projects:     core.NewProjectService(s, blobs, log),
		Keys:         keys,
		Preferences:  core.NewPreferencesService(s),
		Feedback:     core.NewFeedbackService(s),
		Files:        core.NewFileService(s, blobs, chats, log),
		Catalog:      catalog.New(catalog.StaticLoader),
		Orchestrator: agents.NewOrchestrator(),
	}
	svc.Completion = core.NewCompletionService(s, usage, chats, keys, svc.Catalog, llm.NewRegistry(echoProvider{}), log)
	t.Cleanup(svc.Completion.Wait)

	if limiter == nil {
		limiter = NewRateLimiter(1000, 1000)
	}
	tm := auth.NewTokenManager("jwt-test-secret")
	h := NewAPIHandler(svc, log, testWebhookSecret)
	srv := httptest.NewServer(NewRouter(h, tm, limiter))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: s, tm: tm, svc: svc, handler: h}
}

func (ts *testServer) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := ts.tm.GenerateJWT(auth.Identity{Subject: subject, Email: subject + "@example.com", Name: subject})
	require.NoError(t, err)
	return tok
}

type response struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(buf)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	out := response{Status: res.StatusCode, Raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

// createChat makes a chat through the API and returns its id.
func (ts *testServer) createChat(t *testing.T, token string, body map[string]any) string {
	t.Helper()
	if body == nil {
		body = map[string]any{}
	}
	res := ts.do(t, http.MethodPost, "/api/create-chat", token, body)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Raw))
	return res.Body["chat"].(map[string]any)["id"].(string)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(buf)
}
