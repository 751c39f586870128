package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"agrirank/internal/infrastructure"
)

// Handler upgrades requests to websocket connections subscribed to hub.
// Requests without an Origin header are accepted; otherwise the origin
// must be listed in allowedOrigins, or allowedOrigins must contain "*".
func Handler(hub *Hub, allowedOrigins []string, logger *slog.Logger) http.Handler {
	logger = infrastructure.WithComponent(logger, "websocket.handler")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logger.WarnContext(r.Context(), "websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response
			logger.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		client := NewClient(hub, conn, r.RemoteAddr, logger)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	})
}
