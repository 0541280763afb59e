package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

// errCallTimeout is the cancel cause set when Params.Timeout elapses.
var errCallTimeout = errors.New("provider call timeout")

// request describes the single outbound call an adapter makes.
type request struct {
	provider Provider
	url      string
	headers  map[string]string
	timeout  time.Duration
	// errorMessage extracts the provider's message from a non-2xx body.
	errorMessage func(body []byte) string
}

// doJSON POSTs payload and decodes a 2xx body into out. The call is bound to
// a context that expires after r.timeout, which aborts the request.
func doJSON(ctx context.Context, client *http.Client, r request, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s encode request: %w", r.provider, err)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.timeout, errCallTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s build request: %w", r.provider, withoutURL(err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return r.transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return r.transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if r.errorMessage != nil {
			msg = strings.TrimSpace(r.errorMessage(data))
		}
		if msg == "" {
			msg = resp.Status
		}
		return &BackendError{Provider: r.provider, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Provider: r.provider, Reason: "invalid JSON body", Err: err}
	}
	return nil
}

// transportError classifies a failed round trip. Only our own timer yields a
// TimeoutError; a caller deadline or cancellation is passed through. Gemini
// keys travel in the query string, so the URL is stripped.
func (r request) transportError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errCallTimeout) {
		return &TimeoutError{Provider: r.provider, Timeout: r.timeout}
	}
	return fmt.Errorf("%s request: %w", r.provider, withoutURL(err))
}

// withoutURL unwraps a *url.Error so the request URL never reaches a message.
func withoutURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", strings.ToLower(uerr.Op), uerr.Err)
	}
	return err
}

// nestedErrorMessage reads {"error":{"message":"..."}} (OpenAI, Anthropic, Google).
func nestedErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)
	return errResp.Error.Message
}

// flatErrorMessage reads {"error":"..."} (Ollama).
func flatErrorMessage(body []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)
	return errResp.Error
}

// joinPrompts folds the system prompt into the user prompt for backends that
// have no system channel.
func joinPrompts(systemPrompt, prompt string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		return prompt
	}
	return systemPrompt + "\n\n" + prompt
}
