package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type PortSource interface {
	ListenPort() int
}

// Attach routes every WebSocket upgrade request reaching srv, whatever its path, to
// admission. Other requests keep going to the server's existing handler.
func Attach(srv *http.Server, admission http.Handler, ports PortSource, logger zerolog.Logger) {
	next := srv.Handler
	if next == nil {
		next = http.DefaultServeMux
	}
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			admission.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})

	logger.Info().Int("port", ports.ListenPort()).Msg("websocket server started")
}
