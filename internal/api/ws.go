package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// The server only listens on loopback and the token guards the handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sessionWSHandler streams the current session and then every change to it.
func sessionWSHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acceptLanguage := r.Header.Get("Accept-Language")
		if lang := r.URL.Query().Get("lang"); lang != "" {
			acceptLanguage = lang
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			requestLogger(cfg, r).Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		updates, unsubscribe := cfg.Controller.Subscribe()
		defer unsubscribe()

		// Reads only detect the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(v SessionResponse) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(v); err != nil {
				cfg.Logger.Debug("websocket write failed", "error", err)
				return false
			}
			return true
		}

		if !send(sessionResponse(cfg, cfg.Controller.Snapshot(), acceptLanguage)) {
			return
		}

		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(time.Second))
					return
				}
				if !send(sessionResponse(cfg, snap, acceptLanguage)) {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
