package megaapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "error", "json")
}

func TestSendTextNormalizesRecipient(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"error":false}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "token-123", "inst-1", testLogger())
	err := c.SendText(context.Background(), "5511999998888", "Olá!")
	require.NoError(t, err)

	assert.Equal(t, "/rest/sendMessage/inst-1/text", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "5511999998888@s.whatsapp.net", gotBody.MessageData.To)
	assert.Equal(t, "Olá!", gotBody.MessageData.Text)
}

func TestSendTextKeepsFullJID(t *testing.T) {
	var gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body sendTextRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotTo = body.MessageData.To
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", "i", testLogger())
	require.NoError(t, c.SendText(context.Background(), "123@g.us", "oi grupo"))
	assert.Equal(t, "123@g.us", gotTo)
}

func TestSendTextNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", "i", testLogger())
	err := c.SendText(context.Background(), "123", "oi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendTextErrorInsideSuccessBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		fail bool
	}{
		{"error true", `{"error":true}`, true},
		{"error message", `{"error":"instance disconnected"}`, true},
		{"error object", `{"error":{"code":500}}`, true},
		{"error false", `{"error":false}`, false},
		{"error null", `{"error":null}`, false},
		{"no error field", `{"messageId":"abc"}`, false},
		{"non-json body", `OK`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, "t", "i", testLogger())
			err := c.SendText(context.Background(), "123", "oi")
			if tc.fail {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInstanceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/instance/inst-1/status", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"connected": true})
	}))
	defer srv.Close()

	c := New(srv.URL, "token-123", "inst-1", testLogger())
	status, err := c.InstanceStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, status["connected"])
}

func TestInstanceStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "t", "missing", testLogger())
	_, err := c.InstanceStatus(context.Background())
	assert.Error(t, err)
}
