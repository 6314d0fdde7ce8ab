package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait   = 10 * time.Second
	watchPeriod = 250 * time.Millisecond
)

// watch streams the session's stats as JSON text messages whenever the
// number of steps changes. The first message is sent on connect.
func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Error("websocket accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	// Clients only listen; CloseRead cancels ctx when they hang up.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(watchPeriod)
	defer ticker.Stop()
	last := -1
	for {
		st := sess.Stats()
		if st.Steps != last {
			last = st.Steps
			data, err := json.Marshal(st)
			if err != nil {
				s.log.Error("marshal stats", "error", err)
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Debug("watch write", "error", err, "session", st.ID)
				return
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
