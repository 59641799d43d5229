package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	srv      *httptest.Server
	received chan Message
	conns    chan *websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		received: make(chan Message, 100),
		conns:    make(chan *websocket.Conn, 10),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ts.received <- msg
		}
	}))
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
		return nil
	}
}

func (ts *testServer) nextMessage(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-ts.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
		return Message{}
	}
}

func waitFor(t *testing.T, c *Client, typ EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
			return Event{}
		}
	}
}

func setupClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c := New(url, zap.NewNop(), opts...)
	t.Cleanup(c.Close)
	return c
}

func TestClient_SendsFrames(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url())

	require.NoError(t, c.Connect(context.Background()))
	waitFor(t, c, EventConnected)
	ts.nextConn(t)

	require.NoError(t, c.Subscribe("auc-1"))
	msg := ts.nextMessage(t)
	assert.Equal(t, "subscribe", msg.Type)
	assert.Equal(t, "auc-1", msg.Payload)

	require.NoError(t, c.Unsubscribe("auc-1"))
	msg = ts.nextMessage(t)
	assert.Equal(t, "unsubscribe", msg.Type)
	assert.Equal(t, "auc-1", msg.Payload)

	require.NoError(t, c.PlaceBid(BidMessage{AuctionID: "auc-1", WalletID: "w1", Amount: 2000}))
	msg = ts.nextMessage(t)
	assert.Equal(t, "bid", msg.Type)
	assert.Equal(t, map[string]interface{}{"auction_id": "auc-1", "wallet_id": "w1", "amount": float64(2000)}, msg.Payload)
}

func TestClient_DecodesIncoming(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url())

	require.NoError(t, c.Connect(context.Background()))
	waitFor(t, c, EventConnected)
	conn := ts.nextConn(t)

	frames := []string{
		`{"type":"welcome","payload":{"client_id":"x"}}`,
		`not json`,
		`{"type":"mystery","payload":1}`,
		`{"type":"auction_update","payload":{"auction_id":"auc-1","start_price":1000,"current_bid":1500,"status":"active"}}`,
		`{"type":"bid_placed","payload":{"id":"b1","auction_id":"auc-1","amount":1500}}`,
		`{"type":"error","payload":{"message":"bid too low"}}`,
	}
	for _, f := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	ev := waitFor(t, c, EventWelcome)
	assert.JSONEq(t, `{"client_id":"x"}`, string(ev.Payload))

	ev = waitFor(t, c, EventAuctionUpdate)
	require.NotNil(t, ev.Auction)
	assert.Equal(t, "auc-1", ev.Auction.AuctionID)
	require.NotNil(t, ev.Auction.CurrentBid)
	assert.Equal(t, int64(1500), *ev.Auction.CurrentBid)

	ev = waitFor(t, c, EventBidPlaced)
	require.NotNil(t, ev.Bid)
	assert.Equal(t, "b1", ev.Bid.ID)

	ev = waitFor(t, c, EventError)
	assert.Equal(t, "bid too low", ev.Message)
}

func TestClient_NotConnected(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url())

	assert.ErrorIs(t, c.Unsubscribe("auc-1"), ErrNotConnected)

	assert.ErrorIs(t, c.PlaceBid(BidMessage{AuctionID: "auc-1"}), ErrNotConnected)
	ev := waitFor(t, c, EventError)
	assert.Equal(t, "WebSocket not connected. Cannot place bid.", ev.Message)

	// Subscribe kicks off a connection in the background.
	assert.ErrorIs(t, c.Subscribe("auc-1"), ErrNotConnected)
	waitFor(t, c, EventConnected)
	assert.True(t, c.Connected())
}

func TestClient_Heartbeat(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url(), WithHeartbeat(20*time.Millisecond))

	require.NoError(t, c.Connect(context.Background()))
	msg := ts.nextMessage(t)
	assert.Equal(t, "ping", msg.Type)
	assert.Nil(t, msg.Payload)
}

func TestClient_NormalCloseDoesNotReconnect(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url(), WithReconnect(time.Millisecond, 5*time.Millisecond, 5))

	require.NoError(t, c.Connect(context.Background()))
	waitFor(t, c, EventConnected)
	conn := ts.nextConn(t)

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)))

	ev := waitFor(t, c, EventDisconnected)
	assert.Equal(t, websocket.CloseNormalClosure, ev.Code)

	select {
	case <-ts.conns:
		t.Fatal("client reconnected after a normal close")
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, c.Connected())
}

func TestClient_AbnormalCloseReconnects(t *testing.T) {
	ts := newTestServer(t)
	defer ts.srv.Close()
	c := setupClient(t, ts.url(), WithReconnect(time.Millisecond, 5*time.Millisecond, 5))

	require.NoError(t, c.Connect(context.Background()))
	waitFor(t, c, EventConnected)
	conn := ts.nextConn(t)
	require.NoError(t, conn.Close())

	ev := waitFor(t, c, EventDisconnected)
	assert.Equal(t, websocket.CloseAbnormalClosure, ev.Code)
	waitFor(t, c, EventConnected)
	ts.nextConn(t)
}

func TestClient_ReconnectGivesUp(t *testing.T) {
	c := setupClient(t, "ws://127.0.0.1:1/ws", WithReconnect(time.Millisecond, 5*time.Millisecond, 5))

	assert.Error(t, c.Connect(context.Background()))

	errorsSeen := 0
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			switch ev.Type {
			case EventError:
				errorsSeen++
			case EventReconnectFailed:
				// The first dial plus five retries.
				assert.Equal(t, 6, errorsSeen)
				return
			}
		case <-timeout:
			t.Fatal("no reconnect_failed event")
		}
	}
}

func TestReconnectSchedule(t *testing.T) {
	c := New("ws://unused", zap.NewNop())
	var delays []time.Duration
	for d := c.policy.NextBackOff(); d != backoff.Stop; d = c.policy.NextBackOff() {
		delays = append(delays, d)
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}, delays)

	c.policy.Reset()
	assert.Equal(t, 2*time.Second, c.policy.NextBackOff())
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "plain", errorText(json.RawMessage(`"plain"`)))
	assert.Equal(t, "from error", errorText(json.RawMessage(`{"error":"from error"}`)))
	assert.Equal(t, `[1]`, errorText(json.RawMessage(`[1]`)))
}
