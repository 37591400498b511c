// Package route wires the local operational HTTP surface (§6 EXPANDED):
// health, per-camera live snapshot, per-camera websocket viewer, and
// static asset serving.
package route

import (
	"net/http"

	"sentrycore/internal/buffer"
	"sentrycore/internal/bus"
	"sentrycore/internal/handler"
	"sentrycore/internal/logger"
	"sentrycore/internal/wsview"
)

// SetupRoutes registers the health, snapshot, websocket and static routes.
// cameras is used for health reporting; rings for on-demand JPEG snapshot;
// hubs for the live-viewer websocket feed.
func SetupRoutes(cameras []handler.CameraSource, rings map[string]*buffer.RingBuffer, hubs map[string]*wsview.Hub, b *bus.Bus, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	mux.HandleFunc("/healthz", handler.HealthHandler(cameras, b, log))
	mux.HandleFunc("/api/cameras/{id}/snapshot", handler.LiveSnapshotHandler(rings, log))
	mux.HandleFunc("/ws/{id}", handler.ViewWebsocketHandler(hubs, log))

	return mux
}
