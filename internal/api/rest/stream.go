package rest

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// heartbeatInterval is the keep-alive ping cadence per connection,
// independent of hub activity.
const heartbeatInterval = 15 * time.Second

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamReconciliation handles GET /reconciliation/stream. The connection is
// registered as a hub subscriber for its lifetime and unregistered on
// disconnect; events missed while disconnected are recoverable from the
// audit log, not replayed here.
func (h *Handler) StreamReconciliation(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("reconciliation stream: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	// Drain inbound frames so close/pong control messages are processed;
	// a read error means the peer went away.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-disconnected:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("reconciliation stream: write failed: %v", err)
				return
			}
		}
	}
}
