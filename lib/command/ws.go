// Copyright (C) 2026 tacoshell authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package command

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dodoflix/tacoshell/lib/runtime"
)

// wireEvent is the JSON shape of the unsolicited ssh-output event.
type wireEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
	EOF       bool   `json:"eof"`
}

// Hub fans runtime.OutputEvent out to every connected websocket client.
// It implements runtime.EventSink, so runtime.Spawn's caller passes a
// *Hub directly as the Options.Events field.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub returns an empty Hub. Origin checking is left permissive:
// this is same-machine UI<->core IPC for a desktop application, not a
// public-facing socket.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      log,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeWS upgrades the connection and registers it to receive every
// session's ssh-output events until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The client never sends anything meaningful on this socket; read
	// only to detect close/disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Emit implements runtime.EventSink: broadcast ev to every connected client.
func (h *Hub) Emit(ev runtime.OutputEvent) {
	msg := wireEvent{Type: "ssh-output", SessionID: ev.SessionID.String(), Data: ev.Data, EOF: ev.EOF}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug("dropping websocket client after write error", "error", err)
			go conn.Close()
			delete(h.clients, conn)
		}
	}
}
