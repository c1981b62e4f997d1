package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubConfig struct {
	path    string
	timeout time.Duration
}

func (c stubConfig) GetServerConfig() (string, time.Duration) { return c.path, c.timeout }

type stubDispatcher struct {
	updates []tgbotapi.Update
}

func (d *stubDispatcher) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	d.updates = append(d.updates, update)
}

func newTestServer(t *testing.T) (*httptest.Server, *stubDispatcher) {
	t.Helper()
	dispatcher := &stubDispatcher{}
	srv := New(stubConfig{path: "/webhook", timeout: 5 * time.Second}, dispatcher, "127.0.0.1:0", "test", false)
	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return ts, dispatcher
}

func TestServer_WebhookDispatch(t *testing.T) {
	ts, dispatcher := newTestServer(t)

	update := tgbotapi.Update{
		UpdateID: 42,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Text:      "/start",
			Chat:      &tgbotapi.Chat{ID: 100},
		},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/webhook", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, dispatcher.updates, 1)
	assert.Equal(t, 42, dispatcher.updates[0].UpdateID)
	assert.Equal(t, "/start", dispatcher.updates[0].Message.Text)
}

func TestServer_WebhookInvalidPayload(t *testing.T) {
	ts, dispatcher := newTestServer(t)

	resp, err := http.Post(ts.URL+"/webhook", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, dispatcher.updates)
}

func TestServer_WebhookWrongMethod(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/webhook")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Status(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "test", status["version"])
}

func TestServer_Ping(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "pong", string(body))
}

func TestServer_RunAndShutdown(t *testing.T) {
	dispatcher := &stubDispatcher{}
	srv := New(stubConfig{path: "/webhook", timeout: 5 * time.Second}, dispatcher, "127.0.0.1:0", "test", false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	// wait for the listener to come up on its ephemeral port
	require.Eventually(t, func() bool {
		addr := srv.Addr()
		if addr == "" {
			return false
		}
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
