package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/relicroom/broadcast"
	"github.com/wfunc/relicroom/game"
	"github.com/wfunc/relicroom/identity"
	"github.com/wfunc/relicroom/monitor"
	"github.com/wfunc/relicroom/network"
	"github.com/wfunc/relicroom/persistence"
	"github.com/wfunc/relicroom/room"
	"github.com/wfunc/relicroom/session"
)

type firstDraw struct{}

func (firstDraw) IntN(int) int               { return 0 }
func (firstDraw) Shuffle(int, func(i, j int)) {}

func newTestServer(t *testing.T, opts Options) (*GameServer, *httptest.Server) {
	t.Helper()
	sessions := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessions)
	mon := monitor.NewMonitor("relicroom_test")
	rooms := room.NewRoomManager(persistence.NewMemoryStore(), broadcaster, room.Options{
		Observer: mon,
		Deps:     game.Deps{Random: firstDraw{}},
	})
	gs := NewGameServer(opts, rooms, sessions, broadcaster, identity.HeaderResolver{}, mon)
	ts := httptest.NewServer(gs.Handler())
	t.Cleanup(func() {
		ts.Close()
		gs.timers.Stop()
		rooms.Close()
	})
	return gs, ts
}

type testClient struct {
	t       *testing.T
	conn    *websocket.Conn
	replies chan network.Reply
	events  chan network.EventFrame
	nextID  int
}

func dial(t *testing.T, ts *httptest.Server, account string) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Set(identity.HeaderAccountID, account)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	c := &testClient{
		t:       t,
		conn:    conn,
		replies: make(chan network.Reply, 32),
		events:  make(chan network.EventFrame, 64),
	}
	go c.read()
	t.Cleanup(func() { conn.Close() })
	return c
}

func (c *testClient) read() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		packet, err := network.Decode(data)
		if err != nil {
			continue
		}
		switch packet.MsgID {
		case network.MsgTypeReply:
			var rep network.Reply
			if json.Unmarshal(packet.Data, &rep) == nil {
				c.replies <- rep
			}
		case network.MsgTypeEvent:
			var ev network.EventFrame
			if json.Unmarshal(packet.Data, &ev) == nil {
				c.events <- ev
			}
		}
	}
}

func (c *testClient) call(op, gameID, code string, args any) network.Reply {
	c.t.Helper()
	c.nextID++
	raw, err := json.Marshal(args)
	require.NoError(c.t, err)
	body, err := json.Marshal(network.Request{
		ID: strconv.Itoa(c.nextID), Op: op, GameID: gameID, RoomCode: code, Args: raw,
	})
	require.NoError(c.t, err)
	packet, err := network.Encode(network.MsgTypeRequest, body)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, packet))

	select {
	case rep := <-c.replies:
		return rep
	case <-time.After(2 * time.Second):
		c.t.Fatalf("no reply to %s", op)
		return network.Reply{}
	}
}

func (c *testClient) waitEvent(kind string) network.EventFrame {
	c.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			c.t.Fatalf("no %s event", kind)
			return network.EventFrame{}
		}
	}
}

func resultInto(t *testing.T, rep network.Reply, v any) {
	t.Helper()
	require.True(t, rep.OK, "reply error: %+v", rep.Error)
	raw, err := json.Marshal(rep.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestHTTPRoutes(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateJoinAndEvents(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	host := dial(t, ts, "acct-1")
	guest := dial(t, ts, "acct-2")

	var seat room.Seat
	resultInto(t, host.call("create", "", "", map[string]string{}), &seat)
	require.NotEmpty(t, seat.Code)

	var joined room.Seat
	resultInto(t, guest.call("join", "", seat.Code, nil), &joined)
	assert.Equal(t, seat.GameID, joined.GameID)

	ev := host.waitEvent(string(game.EventPlayerJoined))
	assert.Equal(t, seat.GameID, ev.GameID)

	rep := guest.call("start_selection", seat.GameID, "", nil)
	require.False(t, rep.OK)
	assert.Equal(t, "NOT_HOST", rep.Error.Code)

	rep = guest.call("nope", seat.GameID, "", nil)
	require.False(t, rep.OK)
	assert.Equal(t, "VALIDATION", rep.Error.Code)
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, Options{RequestsPerSecond: 0.001, RequestBurst: 1})
	c := dial(t, ts, "acct-1")

	assert.True(t, c.call("create", "", "", nil).OK)
	rep := c.call("create", "", "", nil)
	require.False(t, rep.OK)
	assert.Equal(t, "CAPACITY", rep.Error.Code)
}

func seatCount(t *testing.T, c *testClient, gameID string) game.PlayersView {
	t.Helper()
	var view game.PlayersView
	resultInto(t, c.call("view_players", gameID, "", nil), &view)
	return view
}

func TestDisconnectGraceRemovesSeat(t *testing.T) {
	gs, ts := newTestServer(t, Options{DisconnectGrace: 50 * time.Millisecond})
	host := dial(t, ts, "acct-1")
	guest := dial(t, ts, "acct-2")

	var seat room.Seat
	resultInto(t, host.call("create", "", "", nil), &seat)
	require.True(t, guest.call("join", seat.GameID, "", nil).OK)

	guest.conn.Close()
	host.waitEvent(string(game.EventPresenceChanged))
	host.waitEvent(string(game.EventPlayerLeft))

	assert.Len(t, seatCount(t, host, seat.GameID).Players, 1)
	assert.Equal(t, 0, gs.pendingGrace())
}

func TestReconnectKeepsSeat(t *testing.T) {
	gs, ts := newTestServer(t, Options{DisconnectGrace: time.Hour})
	host := dial(t, ts, "acct-1")
	guest := dial(t, ts, "acct-2")

	var seat room.Seat
	resultInto(t, host.call("create", "", "", nil), &seat)
	require.True(t, guest.call("join", seat.GameID, "", nil).OK)

	guest.conn.Close()
	host.waitEvent(string(game.EventPresenceChanged))
	assert.Eventually(t, func() bool { return gs.pendingGrace() == 1 }, time.Second, 10*time.Millisecond)

	back := dial(t, ts, "acct-2")
	host.waitEvent(string(game.EventPresenceChanged))
	assert.Equal(t, 0, gs.pendingGrace())

	view := seatCount(t, back, seat.GameID)
	require.Len(t, view.Players, 2)
	assert.True(t, view.Players[1].Online)
}

func TestSeatOutlivesTheConnectionThatTookIt(t *testing.T) {
	gs, ts := newTestServer(t, Options{DisconnectGrace: time.Hour})
	host := dial(t, ts, "acct-1")
	first := dial(t, ts, "acct-2")
	second := dial(t, ts, "acct-2")

	var seat room.Seat
	resultInto(t, host.call("create", "", "", nil), &seat)
	require.True(t, first.call("join", seat.GameID, "", nil).OK)

	// The joining connection goes away while another one stays open.
	first.conn.Close()
	assert.Eventually(t, func() bool {
		return len(gs.sessionManager.GetByAccount("acct-2")) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, gs.pendingGrace())

	// The last connection never joined, yet the seat still goes offline.
	second.conn.Close()
	ev := host.waitEvent(string(game.EventPresenceChanged))
	assert.Equal(t, seat.GameID, ev.GameID)
	assert.Eventually(t, func() bool { return gs.pendingGrace() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{seat.GameID}, gs.seatedIn("acct-2"))
}
