package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	// Same policy as the CORS wrapper: the UI is served from elsewhere.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream pushes the state snapshot on connect and after every change,
// so the web UI does not have to poll /api/status.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.state.Subscribe()
	defer s.state.Unsubscribe(sub)

	if err := conn.WriteJSON(s.state.Snapshot()); err != nil {
		return
	}

	// Drain reads so close frames and pings are processed; done closes when
	// the client goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case snap := <-sub:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
