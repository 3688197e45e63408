package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/bridge"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslator_JoinsSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "auto", r.URL.Query().Get("sl"))
		assert.Equal(t, "es", r.URL.Query().Get("tl"))
		assert.Equal(t, "Hello. How are you?", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `[[["Hola. ","Hello. ",null,null,10],["¿Cómo estás?","How are you?",null,null,10]],null,"en"]`)
	}))
	defer srv.Close()

	tr := bridge.NewTranslator(bridge.WithEndpoint(srv.URL))
	out, err := tr.Translate(context.Background(), "Hello. How are you?", "", "es")
	require.NoError(t, err)
	assert.Equal(t, "Hola. ¿Cómo estás?", out)
}

func TestTranslator_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad status" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	tr := bridge.NewTranslator(bridge.WithEndpoint(srv.URL))
	for _, text := range []string{"bad status", "bad body"} {
		_, err := tr.Translate(context.Background(), text, "auto", "en")
		var ext *domain.ExternalCallError
		require.True(t, errors.As(err, &ext), text)
		assert.Equal(t, "translate", ext.Service)
	}
}

func completionServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefiner_Refine(t *testing.T) {
	srv := completionServer(t, "  Good afternoon, thank you for waiting.  ", http.StatusOK)

	r, err := bridge.NewRefiner(bridge.RefinerConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	out, err := r.Refine(context.Background(), "hey thx 4 waiting")
	require.NoError(t, err)
	assert.Equal(t, "Good afternoon, thank you for waiting.", out)
}

func TestRefiner_APIError(t *testing.T) {
	srv := completionServer(t, "", http.StatusTooManyRequests)

	r, err := bridge.NewRefiner(bridge.RefinerConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = r.Refine(context.Background(), "hello")
	var ext *domain.ExternalCallError
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "refine", ext.Service)
}

func TestRefiner_NoAutomaticRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	// No BaseURL in the config: the client resolves the endpoint on its own.
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/")
	r, err := bridge.NewRefiner(bridge.RefinerConfig{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = r.Refine(context.Background(), "hello")
	var ext *domain.ExternalCallError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, int32(1), calls.Load(), "a failed refine must be sent exactly once")
}

func TestRefiner_Config(t *testing.T) {
	_, err := bridge.NewRefiner(bridge.RefinerConfig{})
	assert.ErrorIs(t, err, bridge.ErrMissingAPIKey)

	r, err := bridge.NewRefiner(bridge.RefinerConfig{APIKey: "k"})
	require.NoError(t, err)
	_, err = r.Refine(context.Background(), "   ")
	assert.Error(t, err)
}
