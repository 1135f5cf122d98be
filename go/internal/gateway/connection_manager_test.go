package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/cardclash/go/internal/game/deck"
	"github.com/mcdev12/cardclash/go/internal/game/events"
	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/game/session"
	"github.com/mcdev12/cardclash/go/internal/game/timer"
)

type testServer struct {
	url     string
	cm      *ConnectionManager
	pub     *fakePublisher
	cleanup func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := clockwork.NewRealClock()
	pub := &fakePublisher{}
	cm := NewConnectionManager(DefaultConnectionConfig(), clock, NewMirror(pub, "test"))

	timers := timer.NewManager(clock, time.Second)
	decks := deck.NewBuilder()
	reg := registry.New(clock, decks, timers, registry.DefaultConfig())
	svc := session.NewService(reg, timers, decks, cm, clock, session.Config{})

	mux := http.NewServeMux()
	NewWebSocketHandler(cm, NewRouter(svc, cm)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	ts := &testServer{
		url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		cm:  cm,
		pub: pub,
		cleanup: func() {
			cancel()
			srv.Close()
			timers.StopAll()
		},
	}
	t.Cleanup(ts.cleanup)
	return ts
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T) *client {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(actionType ActionType, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Action{Type: actionType, Data: raw}))
}

type received struct {
	GameID string          `json:"gameId"`
	Type   events.Type     `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// await reads until an event of the wanted type arrives.
func (c *client) await(want events.Type) received {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %s", want)
		if msg.Type == want {
			return msg
		}
	}
}

func TestGameOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	host := ts.dial(t)
	player := ts.dial(t)

	host.send(ActionCreateGame, CreateGamePayload{Title: "Friday", PlayerCount: 4, HostName: "Hank"})
	var created events.GameCreatedPayload
	require.NoError(t, json.Unmarshal(host.await(events.TypeGameCreated).Data, &created))
	require.Len(t, created.GameID, registry.CodeLength)

	player.send(ActionJoinGame, JoinGamePayload{GameID: created.GameID, Name: "Ann"})
	player.await(events.TypeJoinSuccess)

	for {
		chat := host.await(events.TypeChatMessage)
		assert.Equal(t, created.GameID, chat.GameID)
		if strings.Contains(string(chat.Data), "Ann joined the game.") {
			break
		}
	}

	player.send(ActionStartGame, GamePayload{GameID: created.GameID})
	var rejected events.ErrorPayload
	require.NoError(t, json.Unmarshal(player.await(events.TypeGameError).Data, &rejected))
	assert.Equal(t, "Only the host can start the game.", rejected.Message)

	stats := ts.cm.GetConnectionStats()
	assert.Equal(t, 2, stats.TotalConnections)
	assert.Equal(t, 2, stats.GameConnections[created.GameID])

	require.NoError(t, host.conn.Close())
	var ended events.GameEndedPayload
	require.NoError(t, json.Unmarshal(player.await(events.TypeGameEnded).Data, &ended))
	assert.Equal(t, "Host disconnected.", ended.Message)

	assert.Eventually(t, func() bool {
		return ts.cm.GetConnectionStats().ActiveGames == 0
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, m := range ts.pub.all() {
			if m.subject == "test."+created.GameID+".gameEnded" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestGetGameUnknownOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t)

	c.send(ActionGetGame, GamePayload{GameID: "NOPE00"})
	msg := c.await(events.TypeGameData)
	assert.JSONEq(t, `{"game":null,"role":null}`, string(msg.Data))
	assert.Empty(t, msg.GameID)
}

func TestConnectionStatsEndpoint(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), clockwork.NewFakeClock(), nil)
	h := NewWebSocketHandler(cm, NewRouter(&fakeGames{}, cm))

	rec := httptest.NewRecorder()
	h.HandleConnectionStats(rec, httptest.NewRequest(http.MethodGet, "/ws/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"total_connections":0,"active_games":0,"game_connections":{}}`, rec.Body.String())
}

func TestPingsFollowManagerClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	cm := NewConnectionManager(DefaultConnectionConfig(), clock, nil)
	mux := http.NewServeMux()
	NewWebSocketHandler(cm, NewRouter(&fakeGames{}, cm)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "write pump ticker not armed")

	select {
	case <-pinged:
		t.Fatal("ping sent before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(DefaultConnectionConfig().PingInterval)
	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("no ping after advancing the clock")
	}
}
