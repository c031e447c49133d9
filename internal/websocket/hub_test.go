package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/internal/middleware"
	"backoffice/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]uuid.UUID

func (t tokenTable) Authenticate(ctx context.Context, raw string) (*middleware.Principal, error) {
	id, ok := t[raw]
	if !ok {
		return nil, errors.New("invalid credentials")
	}
	return &middleware.Principal{User: &model.User{ID: id}}, nil
}

func startHub(t *testing.T, tokens tokenTable) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(tokens, nil, nil)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", hub.Serve(ctx))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *gorilla.Conn {
	t.Helper()
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_DeliversOnlyToTargetUsers(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	hub, url := startHub(t, tokenTable{"a": alice, "b": bob})

	connA := dial(t, url+"?token=a")
	connB := dial(t, url+"?token=b")
	require.Eventually(t, func() bool {
		return hub.Connected(alice) == 1 && hub.Connected(bob) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.NotifyUsers([]uuid.UUID{alice}, "permissions_changed", map[string]string{"role_id": "r1"})

	var msg Message
	require.NoError(t, connA.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, connA.ReadJSON(&msg))
	assert.Equal(t, "permissions_changed", msg.Event)
	assert.Equal(t, map[string]any{"role_id": "r1"}, msg.Payload)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "bob receives nothing")
}

func TestHub_RejectsWithoutValidToken(t *testing.T) {
	_, url := startHub(t, tokenTable{})

	for _, target := range []string{url, url + "?token=nope"} {
		_, resp, err := gorilla.DefaultDialer.Dial(target, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	alice := uuid.New()
	hub, url := startHub(t, tokenTable{"a": alice})

	conn := dial(t, url+"?token=a")
	require.Eventually(t, func() bool { return hub.Connected(alice) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connected(alice) == 0 }, 2*time.Second, 10*time.Millisecond)

	// nobody listening is not an error
	hub.NotifyUsers([]uuid.UUID{alice}, "account_disabled", nil)
}
