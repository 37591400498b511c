package handler

import (
	"net/http"

	"sentrycore/internal/logger"
	"sentrycore/internal/wsview"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all
// origins, matching the teacher's local-network viewer assumption.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler handles one camera's viewer connections, registering
// them with that camera's wsview.Hub to receive broadcast frames.
func ViewWebsocketHandler(hubs map[string]*wsview.Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		hub, ok := hubs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.UnregisterByConn(connection)

		log.Info("Viewer connected to camera %q", id)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info("Viewer disconnected normally from camera %q", id)
				} else {
					log.Error("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
