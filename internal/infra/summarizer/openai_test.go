package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAI_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIReply("```json\n{\"headline\":\"Chip exports rise\",\"body\":\"Exports grew.\"}\n```"))
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", testConfig(srv.URL+"/v1"))
	speedUp(o.guard)

	got, err := o.Summarize(context.Background(), "post", "https://x.example")

	require.NoError(t, err)
	assert.Equal(t, "Chip exports rise", got.Headline)
	assert.Equal(t, "Exports grew.", got.Body)
}

func TestOpenAI_RateLimitedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openAIReply(`{"headline":"H","body":"B"}`))
	}))
	defer srv.Close()

	o := NewOpenAI("k", testConfig(srv.URL+"/v1"))
	speedUp(o.guard)

	got, err := o.Summarize(context.Background(), "post", "")

	require.NoError(t, err)
	assert.Equal(t, "H", got.Headline)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reply := openAIReply("")
		reply["choices"] = []map[string]any{}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	o := NewOpenAI("k", testConfig(srv.URL+"/v1"))
	speedUp(o.guard)

	_, err := o.Summarize(context.Background(), "post", "")

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_PlainTextReplyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIReply("Markets rally\n\nStocks closed higher on Friday."))
	}))
	defer srv.Close()

	o := NewOpenAI("k", testConfig(srv.URL+"/v1"))
	rec := speedUp(o.guard)

	got, err := o.Summarize(context.Background(), "post", "")

	require.NoError(t, err)
	assert.Equal(t, "Markets rally", got.Headline)
	assert.Equal(t, "Stocks closed higher on Friday.", got.Body)
	assert.Equal(t, []string{"unstructured"}, rec.outcomes)
}
