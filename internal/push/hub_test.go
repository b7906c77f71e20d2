package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

type hubFixture struct {
	hub    *Hub
	server *httptest.Server
	snap   *snapFixture
	cancel context.CancelFunc
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	snap := newSnapFixture()
	hub := NewHub(snap.assembler, 0, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.registryLoop(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &hubFixture{hub: hub, server: server, snap: snap, cancel: cancel}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame Frame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func subscribe(t *testing.T, conn *websocket.Conn, wallet string) {
	t.Helper()
	writeFrame(t, conn, NewFrame(KindSubscribeWallet, SubscribePayload{WalletAddress: wallet}))

	frame := readFrame(t, conn)
	require.Equal(t, KindSubscribeWallet, frame.Type)

	var ack AckPayload
	require.NoError(t, json.Unmarshal(frame.Data, &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, wallet, ack.WalletAddress)
}

// collectFrames reads frames until the deadline passes, returning everything
// received.
func collectFrames(conn *websocket.Conn, d time.Duration) []Frame {
	var frames []Frame
	deadline := time.Now().Add(d)
	for {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			return frames
		}
		var frame Frame
		if json.Unmarshal(data, &frame) == nil {
			frames = append(frames, frame)
		}
	}
}

func kinds(frames []Frame) []Kind {
	out := make([]Kind, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}

func TestUsersListOnConnect(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	frame := readFrame(t, conn)
	require.Equal(t, KindUsersList, frame.Type)

	var snaps []Snapshot
	require.NoError(t, json.Unmarshal(frame.Data, &snaps))
	assert.Len(t, snaps, 2)
}

func TestSubscribeUnsubscribeAck(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn) // USERS_LIST

	subscribe(t, conn, walletOne)

	writeFrame(t, conn, NewFrame(KindUnsubscribeWallet, SubscribePayload{WalletAddress: walletOne}))
	frame := readFrame(t, conn)
	require.Equal(t, KindUnsubscribeWallet, frame.Type)

	var ack AckPayload
	require.NoError(t, json.Unmarshal(frame.Data, &ack))
	assert.True(t, ack.Success)
}

func TestMalformedJSONKeepsConnectionOpen(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn) // USERS_LIST

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	frame := readFrame(t, conn)
	require.Equal(t, KindError, frame.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "Invalid message format", payload.Message)

	// The connection still works.
	subscribe(t, conn, walletOne)
}

func TestUnknownKindProducesError(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn) // USERS_LIST

	writeFrame(t, conn, Frame{Type: Kind("BOGUS")})

	frame := readFrame(t, conn)
	assert.Equal(t, KindError, frame.Type)
}

func TestFanOutRespectsSubscriptions(t *testing.T) {
	f := newHubFixture(t)

	connA := f.dial(t)
	readFrame(t, connA) // USERS_LIST
	subscribe(t, connA, walletOne)

	connB := f.dial(t)
	readFrame(t, connB) // USERS_LIST
	subscribe(t, connB, walletOne)
	subscribe(t, connB, walletTwo)

	// A trade on walletTwo reaches B only; the USERS_UPDATE reaches both.
	f.hub.OnTrade(context.Background(), domain.TradeEvent{
		WalletAddress: walletTwo,
		Trade: domain.Trade{
			ID:            7,
			Signature:     "sig-w2",
			WalletAddress: walletTwo,
			Type:          domain.TradeTypeSell,
			TokenA:        mintOne,
			TokenB:        domain.NativeMint,
			AmountA:       10,
			AmountB:       0.5,
			TradePnl:      0.5,
		},
	})

	framesA := collectFrames(connA, 300*time.Millisecond)
	framesB := collectFrames(connB, 300*time.Millisecond)

	assert.NotContains(t, kinds(framesA), KindTradeUpdate)
	assert.Contains(t, kinds(framesA), KindUsersUpdate)
	assert.Contains(t, kinds(framesB), KindTradeUpdate)
	assert.Contains(t, kinds(framesB), KindUsersUpdate)
}

func TestPnlUpdateDelivered(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn) // USERS_LIST
	subscribe(t, conn, walletOne)

	f.hub.OnPnl(context.Background(), domain.PnlEvent{
		WalletAddress: walletOne,
		Pnl: domain.DailyPnl{
			WalletAddress: walletOne,
			StartBalance:  1.0,
			EndBalance:    0.9,
			RealizedPnl:   -0.1,
			TotalTrades:   1,
		},
	})

	frames := collectFrames(conn, 300*time.Millisecond)
	require.Contains(t, kinds(frames), KindPnlUpdate)

	for _, frame := range frames {
		if frame.Type != KindPnlUpdate {
			continue
		}
		var payload PnlUpdatePayload
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, "-0.1", payload.DailyPnl.RealizedPnl)
		assert.Equal(t, 1, payload.DailyPnl.TotalTrades)
	}
}

func TestBalanceUpdateDelivered(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn) // USERS_LIST
	subscribe(t, conn, walletOne)

	f.hub.OnBalance(context.Background(), domain.BalanceEvent{
		WalletAddress: walletOne,
		SolBalance:    0.9,
		Tokens:        []domain.TokenHolding{{Mint: mintOne, UIAmount: 500}},
		Timestamp:     time.Now(),
	})

	frames := collectFrames(conn, 300*time.Millisecond)
	require.Contains(t, kinds(frames), KindBalanceUpdate)
}
