package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	t.Run("round trips a prompt", func(t *testing.T) {
		var gotAuth, gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req["model"])

			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": "You should rest."}},
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-model", "secret", time.Second)
		reply, err := client.Send(context.Background(), "what next?")
		require.NoError(t, err)
		assert.Equal(t, "You should rest.", reply)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "/v1/chat/completions", gotPath)
	})

	t.Run("no auth header without key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": "ok"}},
				},
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "m", "", 0).Send(context.Background(), "p")
		assert.NoError(t, err)
	})

	t.Run("non-200 surfaces status and body excerpt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "m", "", 0).Send(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		_, err := NewClient(server.URL, "m", "", 0).Send(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no choices")
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "m", "", 200*time.Millisecond)
		_, err := client.Send(context.Background(), "p")
		assert.Error(t, err)
	})
}
