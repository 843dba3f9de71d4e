package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/haeun-dev/heartlink-backend/internal/config"
)

func testWSConfig() config.WSConfig {
	return config.WSConfig{
		WriteTimeout: time.Second,
		PingInterval: 50 * time.Millisecond,
		PongWait:     2 * time.Second,
	}
}

func dialHandler(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", Handler(hub, testWSConfig()))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHandler_RegisterHandshake(t *testing.T) {
	hub := NewHub(time.Second)
	conn := dialHandler(t, hub)

	if err := conn.WriteJSON(clientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	waitFor(t, func() bool { return hub.Lookup("u1") }, "session never registered")

	// Events addressed to the registered user arrive on the socket.
	if !hub.Send("u1", map[string]string{"type": "matched"}) {
		t.Fatal("Send after register must succeed")
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got["type"] != "matched" {
		t.Fatalf("unexpected event: %v", got)
	}
}

func TestHandler_IgnoresMalformedFrames(t *testing.T) {
	hub := NewHub(time.Second)
	conn := dialHandler(t, hub)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteJSON(clientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	waitFor(t, func() bool { return hub.Lookup("u1") }, "register after garbage must still work")
}

func TestHandler_UnregistersOnClose(t *testing.T) {
	hub := NewHub(time.Second)
	conn := dialHandler(t, hub)

	if err := conn.WriteJSON(clientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	waitFor(t, func() bool { return hub.Lookup("u1") }, "session never registered")

	_ = conn.Close()
	waitFor(t, func() bool { return !hub.Lookup("u1") }, "session never unregistered after close")
}

func TestHandler_KeepaliveSurvivesQuietClient(t *testing.T) {
	hub := NewHub(time.Second)
	conn := dialHandler(t, hub)

	if err := conn.WriteJSON(clientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	waitFor(t, func() bool { return hub.Lookup("u1") }, "session never registered")

	// The default client pong handler answers server pings. Idle well past
	// several ping intervals; the session must still be live.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	if !hub.Lookup("u1") {
		t.Fatal("keepalive must hold an idle session open")
	}
	_ = conn.Close()
	<-done
}
