package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/haeun-dev/heartlink-backend/internal/config"
)

// clientMessage is the inbound frame format. The only meaningful kind is the
// register handshake; anything else is ignored so protocol additions on the
// client side stay backward compatible.
type clientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// Handler returns the Gin endpoint that upgrades to a websocket and serves
// the session. The client must send a register frame
// ({"type":"register","user_id":"..."}) before any events are delivered to
// it; re-registering on the same connection switches the bound user.
//
// Keepalive: the server pings every cfg.PingInterval and expects a pong (or
// any frame) within cfg.PongWait, otherwise the read loop fails and the
// session is torn down.
func Handler(hub *Hub, cfg config.WSConfig) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Browser clients connect cross-origin from the app frontend; origin
		// enforcement happens in the CORS layer for the REST surface and is
		// intentionally open here.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		go serve(hub, conn, cfg)
	}
}

// serve runs the session: register handshake, read loop, keepalive.
func serve(hub *Hub, conn *websocket.Conn, cfg config.WSConfig) {
	defer func() {
		hub.Unregister(conn)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(conn, cfg, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket session ended")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "register" && msg.UserID != "" {
			hub.Register(msg.UserID, conn)
			log.Debug().Str("user_id", msg.UserID).Msg("realtime session registered")
		}
	}
}

// pingLoop keeps the connection alive until the read loop exits.
func pingLoop(conn *websocket.Conn, cfg config.WSConfig, stop <-chan struct{}) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
