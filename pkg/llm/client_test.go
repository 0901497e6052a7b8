package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"tutor-smart-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req capturedRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req capturedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "tutor-model",
		Generation: config.LLMGenerationConfig{
			Temperature: 0.5,
			MaxTokens:   256,
		},
	}
}

func TestComplete(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, func(w http.ResponseWriter, req capturedRequest) {
		got = req
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"tutor-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Xin chào!"},"finish_reason":"stop"}]}`))
	})

	client := NewClient(testConfig(srv.URL))
	out, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hello"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Xin chào!", out)
	assert.Equal(t, "tutor-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	assert.InDelta(t, 0.5, got.Temperature, 0.0001)
	assert.Equal(t, 256, got.MaxTokens)
	assert.False(t, got.Stream)
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	client := NewClient(testConfig(srv.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

type recordingWriter struct {
	chunks []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestStreamChatMessages(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req capturedRequest) {
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Your ", "class ", "starts at 9."} {
			fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	client := NewClient(testConfig(srv.URL))
	writer := &recordingWriter{}
	err := client.StreamChatMessages(context.Background(), []Message{{Role: RoleUser, Content: "when?"}}, nil, writer)
	require.NoError(t, err)
	assert.Equal(t, "Your class starts at 9.", strings.Join(writer.chunks, ""))
}

func TestParamsFromConfig(t *testing.T) {
	assert.Nil(t, ParamsFromConfig(config.LLMGenerationConfig{}))

	gp := ParamsFromConfig(config.LLMGenerationConfig{TopP: 0.9})
	require.NotNil(t, gp)
	assert.Nil(t, gp.Temperature)
	assert.Nil(t, gp.MaxTokens)
	require.NotNil(t, gp.TopP)
	assert.InDelta(t, 0.9, *gp.TopP, 0.0001)
}
