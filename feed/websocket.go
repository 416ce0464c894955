package feed

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ServeWebSocket upgrades the connection and writes each event as a text
// frame. Anything the client sends is read and discarded.
func (f *Feed) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	sub, ok := f.subscribe(w)
	if !ok {
		return
	}
	defer f.wg.Done()
	defer sub.Unsubscribe()

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		f.logger.Debug("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	f.logger.Debug("websocket client connected", map[string]interface{}{"remote": r.RemoteAddr})
	defer f.logger.Debug("websocket client disconnected", map[string]interface{}{"remote": r.RemoteAddr})

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ping <-chan time.Time
	if f.config.PingInterval > 0 {
		ticker := time.NewTicker(f.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-f.done:
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			return
		case <-ping:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.config.WriteTimeout)); err != nil {
				return
			}
		case msg, ok := <-sub.Messages():
			if !ok {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second),
				)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}
		}
	}
}
