package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/staff"
)

// loopback delivers published events to local subscribers, like Redis with one instance.
type loopback struct {
	mu       sync.Mutex
	handlers map[string]func(string, []byte)
	cancels  int
}

func newLoopback() *loopback {
	return &loopback{handlers: make(map[string]func(string, []byte))}
}

func (l *loopback) PublishRoomEvent(_ context.Context, room, event string, payload []byte) error {
	l.mu.Lock()
	h := l.handlers[room]
	l.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeRoom(room string, handler func(string, []byte)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[room] = handler
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, room)
		l.cancels++
	}, nil
}

func testClient(hub *Hub, room string) *Client {
	return &Client{ID: uuid.New().String(), Room: room, hub: hub, send: make(chan WSMessage, 4)}
}

func TestHubLocalBroadcast(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	a := testClient(hub, AdminRoom)
	other := testClient(hub, "other")
	hub.Register(a)
	hub.Register(other)

	require.NoError(t, hub.Publish(context.Background(), AdminRoom, "hello", map[string]int{"n": 1}))

	msg := <-a.send
	assert.Equal(t, "hello", msg.Event)
	assert.JSONEq(t, `{"n":1}`, string(msg.Data))
	assert.Empty(t, other.send)
}

func TestHubPublishesThroughSubscriber(t *testing.T) {
	bus := newLoopback()
	hub := NewHub(nil, bus, bus)
	a := testClient(hub, AdminRoom)
	b := testClient(hub, AdminRoom)
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.RoomSize(AdminRoom))

	require.NoError(t, hub.Publish(context.Background(), AdminRoom, "hello", nil))
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)

	hub.Unregister(a)
	hub.Unregister(b)
	assert.Equal(t, 0, hub.RoomSize(AdminRoom))
	assert.Equal(t, 1, bus.cancels)

	_, open := <-a.send
	assert.True(t, open)
	_, open = <-a.send
	assert.False(t, open)
}

func TestHubDropsForFullBuffer(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	c := testClient(hub, AdminRoom)
	hub.Register(c)
	for i := 0; i < cap(c.send)+2; i++ {
		hub.Broadcast(AdminRoom, "tick", i)
	}
	assert.Len(t, c.send, cap(c.send))
}

func TestBookingBroadcaster(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	c := testClient(hub, AdminRoom)
	hub.Register(c)

	b := &models.Booking{ID: uuid.New(), EventID: uuid.New(), SlotID: uuid.New(), PaymentID: "pay_9",
		PaymentStatus: models.PaymentStatusPaid,
		Persons: []models.Traveler{
			{FirstName: "Asha", Email: "asha@example.com"},
			{FirstName: "Ravi", Email: "ravi@example.com"},
		}}
	require.NoError(t, NewBookingBroadcaster(hub).BookingConfirmed(context.Background(), b))

	msg := <-c.send
	assert.Equal(t, EventBookingCreated, msg.Event)
	var got models.Booking
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.SlotID, got.SlotID)
	assert.Equal(t, "pay_9", got.PaymentID)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, b.Persons, got.Persons)
}

// gatedSub holds SubscribeRoom for one room until released, like a slow Redis.
type gatedSub struct {
	*loopback
	room    string
	entered chan struct{}
	release chan struct{}
}

func newGatedSub(room string) *gatedSub {
	return &gatedSub{loopback: newLoopback(), room: room, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSub) SubscribeRoom(room string, handler func(string, []byte)) (func(), error) {
	if room == g.room {
		close(g.entered)
		<-g.release
	}
	return g.loopback.SubscribeRoom(room, handler)
}

func TestHubServesOtherRoomsWhileSubscribing(t *testing.T) {
	bus := newGatedSub("slow")
	hub := NewHub(nil, bus, bus)
	fast := testClient(hub, "fast")
	hub.Register(fast)

	slow := testClient(hub, "slow")
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Register(slow)
	}()
	<-bus.entered

	hub.Broadcast("fast", "tick", 1)
	select {
	case msg := <-fast.send:
		assert.Equal(t, "tick", msg.Event)
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked behind a pending subscribe")
	}
	assert.Equal(t, 1, hub.RoomSize("slow"))

	close(bus.release)
	<-done
	require.NoError(t, hub.Publish(context.Background(), "slow", "hello", nil))
	msg := <-slow.send
	assert.Equal(t, "hello", msg.Event)
}

func TestHubCancelsSubscriptionOfEmptiedRoom(t *testing.T) {
	bus := newGatedSub("slow")
	hub := NewHub(nil, bus, bus)
	c := testClient(hub, "slow")

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Register(c)
	}()
	<-bus.entered
	hub.Unregister(c)
	close(bus.release)
	<-done

	assert.Equal(t, 0, hub.RoomSize("slow"))
	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Equal(t, 1, bus.cancels)
	assert.Empty(t, bus.handlers)
}

func TestServeAdminWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := staff.NewJWTService("secret", 1)
	hub := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/admin/ws", ServeAdminWs(hub, tokens, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws"

	userToken, err := tokens.Generate(models.User{ID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)
	_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+userToken, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	adminToken, err := tokens.Generate(models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+adminToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomSize(AdminRoom) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "ping"}))
	var msg WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Event)

	require.NoError(t, hub.Publish(context.Background(), AdminRoom, EventBookingCreated, &models.Booking{PaymentID: "pay_1"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventBookingCreated, msg.Event)

	conn.Close()
	require.Eventually(t, func() bool { return hub.RoomSize(AdminRoom) == 0 }, time.Second, 10*time.Millisecond)
}
