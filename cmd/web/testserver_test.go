package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/myrjola/sotopia-chat/internal/e2etest"
	"github.com/stretchr/testify/require"
)

// inferenceStub fakes an OpenAI-compatible chat completion endpoint. The
// reply and failure mode can be changed between requests, and the prompt of
// the latest request is kept for assertions.
type inferenceStub struct {
	server *httptest.Server

	mu         sync.Mutex
	reply      string
	failing    bool
	lastPrompt string
}

func newInferenceStub(t *testing.T) *inferenceStub {
	t.Helper()
	stub := &inferenceStub{} //nolint:exhaustruct // zero values are the defaults
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

// URL is the value for SOTOPIA_INFERENCE_URL.
func (s *inferenceStub) URL() string {
	return s.server.URL + "/v1"
}

// respond makes the stub answer with the given raw completion text.
func (s *inferenceStub) respond(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
}

// speak makes the stub answer with a well-formed speak action.
func (s *inferenceStub) speak(t *testing.T, text string) {
	t.Helper()
	action, err := json.Marshal(map[string]string{
		"action_type": "speak",
		"argument":    text,
	})
	require.NoError(t, err)
	s.respond(string(action))
}

// fail toggles whether requests are answered with an HTTP 500.
func (s *inferenceStub) fail(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// prompt returns the prompt of the latest completion request.
func (s *inferenceStub) prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

func (s *inferenceStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		http.Error(w, "inference backend unavailable", http.StatusInternalServerError)
		return
	}

	var request struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(request.Messages) > 0 {
		s.lastPrompt = request.Messages[len(request.Messages)-1].Content
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": s.reply}},
		},
	})
}

// testLookupEnv configures the server for tests: a dynamically allocated
// port, an in-memory database, and a single model. The overrides take
// precedence, e.g. to point SOTOPIA_INFERENCE_URL at an inference stub.
func testLookupEnv(overrides map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value, ok := overrides[key]; ok {
			return value, true
		}
		switch key {
		case "SOTOPIA_ADDR":
			return "localhost:0", true
		case "SOTOPIA_SQLITE_URL":
			return ":memory:", true
		case "SOTOPIA_INFERENCE_API_KEY":
			return "test-key", true
		case "SOTOPIA_MODELS":
			return "test-model", true
		default:
			return "", false
		}
	}
}

// startTestServer starts the real server and waits for it to be ready.
func startTestServer(t *testing.T, overrides map[string]string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv(overrides), run)
	require.NoError(t, err)
	return server
}
