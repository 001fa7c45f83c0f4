// File: internal/llm/client_test.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordedRequest captures what the fake backend saw for one round trip.
type recordedRequest struct {
	model   string
	payload geminiRequestPayload
}

// fakeBackend scripts per-attempt status codes and records every request.
type fakeBackend struct {
	t        *testing.T
	statuses []int // consumed in order; last value repeats
	reply    string
	requests []recordedRequest
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload geminiRequestPayload
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&payload))

		// Path shape is /{model}:generateContent.
		model := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ":generateContent")
		f.requests = append(f.requests, recordedRequest{model: model, payload: payload})

		idx := len(f.requests) - 1
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status := f.statuses[idx]
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"scripted failure"}}`)
			return
		}

		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":1,"totalTokenCount":2}}`, f.reply)
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(config.LLMConfig{
		APIKey:      "test-key",
		Endpoint:    endpoint,
		TextModel:   "text-model",
		VisionModel: "vision-model",
		APITimeout:  5 * time.Second,
		MaxHistory:  10,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.httpClient.CloseIdleConnections)
	// Real pacing would stall the suite.
	c.retryInitial = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.LLMConfig{TextModel: "m"}, zap.NewNop())
	assert.Error(t, err, "missing API key must fail fast")

	_, err = NewClient(config.LLMConfig{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err, "missing text model must fail fast")
}

func TestAskRetriesTransientFailures(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK},
		reply:    "recovered",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	reply, err := c.Ask(context.Background(), "try hard", AskOptions{})

	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Len(t, backend.requests, 3, "two transient failures then success")
}

func TestAskGivesUpAfterThreeAttempts(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusInternalServerError},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Ask(context.Background(), "doomed", AskOptions{})

	require.Error(t, err)
	assert.Len(t, backend.requests, 3, "retry budget is three attempts total")
	assert.Zero(t, c.History().Len(), "failed exchanges never enter the transcript")
}

func TestAskBadRequestWithoutImageIsPermanent(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusBadRequest},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Ask(context.Background(), "malformed", AskOptions{})

	require.Error(t, err)
	assert.Len(t, backend.requests, 1, "permanent errors are not retried")
	assert.NotErrorIs(t, err, ErrModalityRejected)
}

func TestAskModalityFallback(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusBadRequest, http.StatusOK},
		reply:    "text-only answer",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	reply, err := c.Ask(context.Background(), "what is on screen", AskOptions{
		SystemPrompt: "be brief",
		ImageJPEG:    []byte{0xFF, 0xD8, 0xFF},
	})

	require.NoError(t, err)
	assert.Equal(t, "text-only answer", reply)
	require.Len(t, backend.requests, 2, "one multimodal attempt, one fallback, no retries in between")

	first, second := backend.requests[0], backend.requests[1]
	assert.Equal(t, "vision-model", first.model)
	assert.Equal(t, "text-model", second.model, "fallback reissues against the text model")

	lastTurn := second.payload.Contents[len(second.payload.Contents)-1]
	for _, part := range lastTurn.Parts {
		assert.Nil(t, part.InlineData, "fallback payload must carry no image")
	}
	assert.Contains(t, lastTurn.Parts[0].Text, fallbackNote)
	require.NotNil(t, second.payload.SystemInstruction, "system prompt survives the fallback")
}

func TestAskFallbackFailureIsNotRetried(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Ask(context.Background(), "fragile", AskOptions{ImageJPEG: []byte{0x01}})

	require.Error(t, err)
	assert.Len(t, backend.requests, 2, "the text-only reissue is single-shot")
}

func TestAskRecordsHistoryWithImageMarker(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusOK},
		reply:    "a desktop with two windows",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Ask(context.Background(), "describe the screen", AskOptions{ImageJPEG: []byte{0x01, 0x02}})
	require.NoError(t, err)

	entries := c.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "describe the screen"+imageSentMarker, entries[0].Content)
	assert.Equal(t, RoleModel, entries[1].Role)

	// The stored turn is the marker form, never the payload.
	assert.NotContains(t, entries[0].Content, "inline_data")
}

func TestAskSendsHistoryAsContext(t *testing.T) {
	backend := &fakeBackend{
		t:        t,
		statuses: []int{http.StatusOK},
		reply:    "second reply",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.History().Append("first question", "first reply")

	_, err := c.Ask(context.Background(), "second question", AskOptions{})
	require.NoError(t, err)

	require.Len(t, backend.requests, 1)
	contents := backend.requests[0].payload.Contents
	require.Len(t, contents, 3, "two prior turns plus the new user turn")
	assert.Equal(t, "first question", contents[0].Parts[0].Text)
	assert.Equal(t, RoleModel, contents[1].Role)
	assert.Equal(t, "second question", contents[2].Parts[0].Text)
}
