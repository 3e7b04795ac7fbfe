package websocket

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/pipeline"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	registry *runtime.Registry
	hub      *Hub
	issuer   *auth.Issuer
	url      string
}

func newHubFixture(t *testing.T, opts ...Option) hubFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry(4)

	p := pipeline.New(log)
	require.NoError(t, pipeline.Register(p, func(_ context.Context, cmd chat.OpenChat) (domain.Result[domain.Unit], error) {
		return domain.Ok(domain.Unit{}), registry.Join(cmd.ConnectionID, domain.ChatGroup(cmd.ChatID))
	}))
	require.NoError(t, pipeline.Register(p, func(_ context.Context, cmd chat.CloseChat) (domain.Result[domain.Unit], error) {
		return domain.Ok(domain.Unit{}), registry.Leave(cmd.ConnectionID, domain.ChatGroup(cmd.ChatID))
	}))
	require.NoError(t, p.Seal())

	hub, err := NewHub(log, registry, p, opts...)
	require.NoError(t, err)
	issuer := auth.NewIssuer("ws-secret", time.Minute)

	server := httptest.NewServer(auth.Middleware(log, issuer)(hub))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return hubFixture{
		registry: registry,
		hub:      hub,
		issuer:   issuer,
		url:      "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

func (f hubFixture) dial(t *testing.T, userID uuid.UUID) (*ws.Conn, domain.ConnectionID) {
	token, _, err := f.issuer.Generate(userID, []string{"user"})
	require.NoError(t, err)

	conn, _, err := ws.DefaultDialer.Dial(f.url+"?"+auth.TokenQueryParam+"="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return len(f.registry.ConnectionsOf(userID)) == 1 }, time.Second, 5*time.Millisecond)
	return conn, f.registry.ConnectionsOf(userID)[0]
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]any {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestHub_Connection_Lifecycle_Drives_Registry(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	userID := uuid.New()

	// Given a connected user
	conn, connID := f.dial(t, userID)
	snapshot, ok := f.registry.Lookup(connID)
	req.True(ok)
	req.Equal(userID, snapshot.UserID)

	// When the socket is closed by the client
	req.NoError(conn.Close())

	// Then the connection leaves the registry
	req.Eventually(func() bool { return f.registry.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_Send_Pushes_Frame(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	conn, connID := f.dial(t, uuid.New())

	err := f.hub.Send(context.Background(), connID, "MessageSent", map[string]string{"text": "hello"})

	req.NoError(err)
	req.Equal(map[string]any{"event": "MessageSent", "payload": map[string]any{"text": "hello"}}, readFrame(t, conn))
}

func TestHub_Send_To_Unknown_Connection(t *testing.T) {
	f := newHubFixture(t)

	err := f.hub.Send(context.Background(), "nope", "MessageSent", nil)

	require.ErrorIs(t, err, errors.ErrConnectionGone)
}

func TestHub_OpenChat_Frame_Joins_Group(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	conn, connID := f.dial(t, uuid.New())
	chatID := uuid.New()

	// When the client opens a chat
	req.NoError(conn.WriteJSON(Inbound{Type: FrameOpenChat, ChatID: chatID}))

	// Then it is acknowledged and the connection belongs to the chat group
	req.Equal(map[string]any{"event": FrameOpenChat, "payload": map[string]any{"ok": true, "value": map[string]any{}}}, readFrame(t, conn))
	req.Equal([]domain.ConnectionID{connID}, f.registry.MembersOf(domain.ChatGroup(chatID)))

	// When it closes the chat
	req.NoError(conn.WriteJSON(Inbound{Type: FrameCloseChat, ChatID: chatID}))
	readFrame(t, conn)
	req.Empty(f.registry.MembersOf(domain.ChatGroup(chatID)))
}

func TestHub_Unknown_Frame_Is_Answered_With_Error(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	conn, _ := f.dial(t, uuid.New())

	req.NoError(conn.WriteMessage(ws.TextMessage, []byte(`{"type":"dance"}`)))

	frame := readFrame(t, conn)
	req.Equal(FrameError, frame["event"])
	payload := frame["payload"].(map[string]any)
	req.Equal(false, payload["ok"])
	req.Equal("INVALID_VALUE", payload["errors"].([]any)[0].(map[string]any)["code"])
}

func TestHub_Rejects_Missing_Token(t *testing.T) {
	f := newHubFixture(t)

	_, resp, err := ws.DefaultDialer.Dial(f.url, nil)

	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClient_Enqueue_Is_Bounded(t *testing.T) {
	req := require.New(t)
	c := newClient("conn", uuid.New(), nil, logs.GetLoggerFromLevel(slog.LevelDebug), 1)

	req.NoError(c.enqueue([]byte("first")))
	req.ErrorIs(c.enqueue([]byte("second")), errors.ErrSendQueueFull)

	c.close()
	req.ErrorIs(c.enqueue([]byte("third")), errors.ErrConnectionGone)
}

func TestNewHub_Requires_Chat_Handlers(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	p := pipeline.New(log)
	require.NoError(t, p.Seal())

	_, err := NewHub(log, runtime.NewRegistry(1), p)

	require.ErrorIs(t, err, errors.ErrMissingHandler)
}

func TestHub_Rejects_Foreign_Origin(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, WithCheckOrigin(AllowOrigins("https://chat.example.com")))
	token, _, err := f.issuer.Generate(uuid.New(), []string{"user"})
	req.NoError(err)
	target := f.url + "?" + auth.TokenQueryParam + "=" + token

	// When a page of another site opens the socket
	_, resp, err := ws.DefaultDialer.Dial(target, http.Header{"Origin": {"https://evil.example.com"}})

	// Then the upgrade is refused
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// And an allowed origin still connects
	conn, _, err := ws.DefaultDialer.Dial(target, http.Header{"Origin": {"https://CHAT.example.com"}})
	req.NoError(err)
	_ = conn.Close()
}

func TestAllowOrigins_Empty_Keeps_Default(t *testing.T) {
	require.Nil(t, AllowOrigins())
}
