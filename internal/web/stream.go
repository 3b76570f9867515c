// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
}

// handleViewStream pushes a snapshot on connect and after every view
// change until the client goes away or the workspace is swept.
func (s *Server) handleViewStream(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // close after a failed write is expected

	updates, cancel := ws.View.Watch()
	defer cancel()

	// The read loop only services control frames and notices the client
	// going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("view stream read failed", "workspace", ws.ID, "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !s.send(conn, ws.View.Snapshot()) {
		return
	}
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "workspace closed"),
					time.Now().Add(writeWait))
				return
			}
			if !s.send(conn, snap) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, snap Snapshot) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := conn.WriteJSON(snap); err != nil {
		s.logger.Debug("view stream write failed", "error", err)
		return false
	}
	return true
}
