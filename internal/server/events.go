package server

import (
	"net/http"
	"time"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const eventWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by the cors handler in front of the router
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams the operations, conflicts and presence of a workspace
// over a websocket until the client goes away or the session closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	events, stop, err := sess.Watch()
	if err != nil {
		respondErr(w, err)
		return
	}
	defer stop()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		logrus.Warnf("event stream of workspace %s: %v", sess.WorkspaceID(), err)
		return
	}
	defer conn.Close()

	// the client sends nothing; reading surfaces its close frame
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				logrus.Warnf("event stream of workspace %s: %v", sess.WorkspaceID(), err)
				return
			}
		}
	}
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		ops := g.Operations()
		if ops == nil {
			ops = []conflict.Operation{}
		}
		return ops, nil
	})
}
