package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const eventPollInterval = 150 * time.Millisecond

// handleJobEvents upgrades to a websocket and streams a job's event
// history since connect, then live events until the job reaches a
// terminal state or the client disconnects. The bus is polled rather than
// pushed to because entry.apply (the job's Observer) runs on a worker
// goroutine and must never block on a slow or absent reader.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown job id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go drainClient(conn, done)

	var lastSeq int64
	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	for {
		for _, event := range e.bus.Since(lastSeq) {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			lastSeq = event.Seq
			if event.Status.IsTerminal() {
				return
			}
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// drainClient discards inbound messages (this endpoint is server-push
// only) and closes done once the client disconnects.
func drainClient(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
