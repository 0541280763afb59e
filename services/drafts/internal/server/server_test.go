package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdkit/internal/apitoken"
	"prdkit/internal/ratelimit"
	"prdkit/pkg/ai"
	"prdkit/pkg/drafts"
	"prdkit/pkg/prompts"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
	system string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	f.prompt, f.system = prompt, systemPrompt
	return f.text, f.err
}

func (f *fakeGenerator) Provider() ai.Provider { return ai.ProviderOpenAI }
func (f *fakeGenerator) Model() string         { return "gpt-test" }

func newTestServer(t *testing.T, gen Generator, mutate ...func(*Config)) *httptest.Server {
	t.Helper()
	store, err := drafts.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cfg := Config{
		Drafts: drafts.NewService(store, drafts.WithClock(func() time.Time {
			return time.UnixMilli(1700000000000)
		})),
		Generator: gen,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header ...string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestDraftLifecycle(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	draft := `{"module":"登录","sections":{"background":"x"}}`

	resp, body := do(t, http.MethodPost, srv.URL+"/save", draft)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var saved saveResponse
	require.NoError(t, json.Unmarshal([]byte(body), &saved))
	assert.True(t, saved.Success)
	assert.Equal(t, "prd-登录-1700000000000.json", saved.Filename)

	resp, body = do(t, http.MethodGet, srv.URL+"/list", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["prd-登录-1700000000000.json"]`, body)

	path := "/" + strings.ReplaceAll(saved.Filename, "登录", "%E7%99%BB%E5%BD%95")
	resp, body = do(t, http.MethodGet, srv.URL+"/load"+path, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, draft, body)

	resp, body = do(t, http.MethodPost, srv.URL+"/update"+path, `{"module":"登录","v":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)
	_, body = do(t, http.MethodGet, srv.URL+"/load"+path, "")
	assert.Equal(t, `{"module":"登录","v":2}`, body)

	resp, body = do(t, http.MethodDelete, srv.URL+"/delete"+path, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)

	resp, _ = do(t, http.MethodGet, srv.URL+"/load"+path, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/delete"+path, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/list", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)
}

func TestSaveWithoutModuleIsUntitled(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	_, body := do(t, http.MethodPost, srv.URL+"/save", `{"title":"x"}`)
	assert.JSONEq(t, `{"success":true,"filename":"prd-untitled-1700000000000.json"}`, body)
}

func TestUpdateCreatesMissingDraft(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	resp, _ := do(t, http.MethodPost, srv.URL+"/update/prd-new-1.json", `{"a":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body := do(t, http.MethodGet, srv.URL+"/load/prd-new-1.json", "")
	assert.Equal(t, `{"a":1}`, body)
}

func TestInvalidJSONIsRejected(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	resp, body := do(t, http.MethodPost, srv.URL+"/save", `{"module":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"error"`)

	resp, _ = do(t, http.MethodPost, srv.URL+"/update/prd-a-1.json", `nope`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, http.MethodGet, srv.URL+"/list", "")
	assert.JSONEq(t, `[]`, body)
}

func TestUnsafeFilenamesAreRejected(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	for _, path := range []string{
		"/load/..%2F..%2Fetc%2Fpasswd",
		"/load/a%2Fb.json",
		"/load/..",
		"/delete/..%5Csecret.json",
		"/update/x..json",
	} {
		method := http.MethodGet
		body := ""
		switch {
		case strings.HasPrefix(path, "/delete"):
			method = http.MethodDelete
		case strings.HasPrefix(path, "/update"):
			method, body = http.MethodPost, `{}`
		}
		resp, _ := do(t, method, srv.URL+path, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestCORSOnEveryResponse(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp, body := do(t, http.MethodOptions, srv.URL+"/save", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))

	resp, _ = do(t, http.MethodGet, srv.URL+"/load/missing.json", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	resp, _ := do(t, http.MethodGet, srv.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/save", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, func(c *Config) { c.MaxBodyBytes = 16 })
	resp, _ := do(t, http.MethodPost, srv.URL+"/save", `{"module":"a","padding":"xxxxxxxxxxxxxxxx"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHealthAndTemplates(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	_, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body := do(t, http.MethodGet, srv.URL+"/templates", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var intents []prompts.Intent
	require.NoError(t, json.Unmarshal([]byte(body), &intents))
	assert.Len(t, intents, 7)
}

func TestGenerateWithIntent(t *testing.T) {
	gen := &fakeGenerator{text: "generated"}
	srv := newTestServer(t, gen)

	resp, body := do(t, http.MethodPost, srv.URL+"/generate", `{"intent":"background","args":{"keywords":"在线协作"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"provider":"openai","model":"gpt-test","content":"generated"}`, body)

	want := prompts.Background("在线协作")
	assert.Equal(t, want.User, gen.prompt)
	assert.Equal(t, want.System, gen.system)
}

func TestGenerateWithRawPrompt(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	srv := newTestServer(t, gen)

	resp, _ := do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"Summarize X","systemPrompt":"You are concise."}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Summarize X", gen.prompt)
	assert.Equal(t, "You are concise.", gen.system)
}

func TestGenerateRequestErrors(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{text: "ok"})
	for _, body := range []string{
		`{"intent":"nope"}`,
		`{"intent":"userStory","args":{"role":"运营"}}`,
		`not json`,
	} {
		resp, _ := do(t, http.MethodPost, srv.URL+"/generate", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		want    int
		message string
	}{
		{ai.ErrEmptyPrompt, http.StatusBadRequest, ai.ErrEmptyPrompt.Error()},
		{&ai.MissingCredentialError{Provider: ai.ProviderOpenAI}, http.StatusPreconditionFailed, "openai api key is not configured"},
		{&ai.UnsupportedProviderError{Provider: "x"}, http.StatusInternalServerError, "generation unavailable"},
		{&ai.BackendError{Provider: ai.ProviderOpenAI, StatusCode: 401, Message: "bad key"}, http.StatusBadGateway, "provider request failed"},
		{&ai.DecodeError{Provider: ai.ProviderOpenAI, Reason: "no choices"}, http.StatusBadGateway, "provider request failed"},
		{&ai.TimeoutError{Provider: ai.ProviderOpenAI, Timeout: time.Second}, http.StatusGatewayTimeout, "provider timed out"},
		{fmt.Errorf("local request: post: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "provider timed out"},
		{fmt.Errorf("openai request: %w", io.ErrUnexpectedEOF), http.StatusBadGateway, "provider request failed"},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			srv := newTestServer(t, &fakeGenerator{err: tc.err})
			resp, body := do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"x"}`)
			assert.Equal(t, tc.want, resp.StatusCode)
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &payload))
			assert.Equal(t, tc.message, payload["error"])
		})
	}
}

func TestGenerateFailureDoesNotExposeProviderKey(t *testing.T) {
	const key = "gm-secret-0123456789"
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	closed := httptest.NewServer(http.NotFoundHandler())
	endpoint := closed.URL + "/v1beta/models/gemini-pro:generateContent"
	closed.Close()

	cfg := ai.DefaultConfig()
	cfg.Provider = ai.ProviderGemini
	cfg.Credentials[ai.ProviderGemini] = key
	cfg.Endpoints[ai.ProviderGemini] = endpoint
	svc, err := ai.New(cfg)
	require.NoError(t, err)
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"provider request failed"}`, body)
	assert.NotContains(t, logs.String(), key)
	assert.Contains(t, logs.String(), "generate failed")
}

func TestGenerateWithMockService(t *testing.T) {
	svc, err := ai.New(ai.DefaultConfig(), ai.WithMockDelay(0))
	require.NoError(t, err)
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, srv.URL+"/generate", `{"intent":"interactionFlow"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var out generateResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "mock", out.Provider)
	assert.Equal(t, ai.MockResponse, out.Content)
}

func TestGenerateRequiresTokenWhenConfigured(t *testing.T) {
	tokens, err := apitoken.NewManager(apitoken.Options{Secret: strings.Repeat("s", 32), Issuer: "prdkit"})
	require.NoError(t, err)
	srv := newTestServer(t, &fakeGenerator{text: "ok"}, func(c *Config) { c.Tokens = tokens })

	resp, _ := do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := tokens.Sign("alice")
	require.NoError(t, err)
	resp, _ = do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"x"}`, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/list", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "draft routes stay open")
}

func TestGenerateRateLimited(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test", 1, time.Minute)
	require.NoError(t, err)
	srv := newTestServer(t, &fakeGenerator{text: "ok"}, func(c *Config) { c.Limiter = limiter })

	resp, _ := do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/save", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
