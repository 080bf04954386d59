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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dodoflix/tacoshell/lib/runtime"
)

func TestHubBroadcastsOutputEventToConnectedClient(t *testing.T) {
	hub := NewHub(discardLog())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	sessionID := uuid.New()
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		return n == 1
	}, time.Second, time.Millisecond)

	hub.Emit(runtime.OutputEvent{SessionID: sessionID, Data: "hello", EOF: false})

	var msg wireEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "ssh-output", msg.Type)
	require.Equal(t, sessionID.String(), msg.SessionID)
	require.Equal(t, "hello", msg.Data)
	require.False(t, msg.EOF)
}
