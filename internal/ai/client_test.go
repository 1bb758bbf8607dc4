package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/sotopia-chat/internal/ai"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestClient_Complete(t *testing.T) {
	var (
		got           completionRequest
		authorization string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		authorization = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant",` +
			`"content":"{\"action_type\": \"speak\", \"argument\": \"Hello there.\"}"}}]}`))
	}))
	defer server.Close()

	client := ai.NewClient(server.URL+"/v1", "test-key")
	reply, err := client.Complete(context.Background(), "test-model", "Say hello.")
	require.NoError(t, err)
	require.Equal(t, `{"action_type": "speak", "argument": "Hello there."}`, reply)

	require.Equal(t, "Bearer test-key", authorization)
	require.Equal(t, "test-model", got.Model)
	require.Equal(t, 1024, got.MaxTokens)
	require.EqualValues(t, 1, got.TopP)
	// Greedy sampling: the temperature on the wire is as close to zero as the
	// client can send.
	require.Greater(t, float64(got.Temperature), 0.0)
	require.Less(t, float64(got.Temperature), 1e-6)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "user", got.Messages[0].Role)
	require.Equal(t, "Say hello.", got.Messages[0].Content)
}

func TestClient_Complete_errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error": {"message": "model is loading"}}`, http.StatusInternalServerError)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := ai.NewClient(server.URL+"/v1", "test-key")
			_, err := client.Complete(context.Background(), "test-model", "Say hello.")
			require.Error(t, err)
		})
	}
}
