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
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dodoflix/tacoshell/lib/registry"
	"github.com/dodoflix/tacoshell/lib/resolver"
	"github.com/dodoflix/tacoshell/lib/runtime"
	"github.com/dodoflix/tacoshell/lib/secretbox"
	"github.com/dodoflix/tacoshell/lib/store/memory"
	"github.com/dodoflix/tacoshell/lib/transport"
	"github.com/dodoflix/tacoshell/lib/transport/transporttest"
	"github.com/dodoflix/tacoshell/lib/types"
)

type fakeSink struct {
	mu     sync.Mutex
	events []runtime.OutputEvent
}

func (f *fakeSink) Emit(ev runtime.OutputEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func discardLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(t *testing.T, dial Dialer) (*Service, *memory.Store, *fakeSink) {
	t.Helper()
	repo := memory.New()
	enc := secretbox.New("test-master-key")
	res := resolver.New(repo, enc)
	reg := registry.New()
	sink := &fakeSink{}
	svc := New(repo, res, enc, reg, sink, dial, RuntimeOptions{
		ReadTimeout:       5 * time.Millisecond,
		KeepaliveInterval: time.Hour,
		IdleSleep:         time.Millisecond,
	}, discardLog())
	return svc, repo, sink
}

func fakeDialer(sess *transporttest.FakeSession) Dialer {
	return func(context.Context, string, int, string, types.AuthMethod) (transport.Session, error) {
		return sess, nil
	}
}

func TestAddServerValidatesAndNormalizesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	dto, err := svc.AddServer(context.Background(), AddServerRequest{
		Name: "h1", Host: "10.0.0.1", Port: 22, Username: "root",
	})
	require.NoError(t, err)
	require.Equal(t, "ssh", dto.Protocol)
	require.NotEmpty(t, dto.ID)
}

func TestAddServerRejectsBadPort(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.AddServer(context.Background(), AddServerRequest{Name: "h1", Host: "x", Port: 0, Username: "u"})
	require.Error(t, err)
}

func TestAddServerRejectsWhitespaceName(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.AddServer(context.Background(), AddServerRequest{Name: "   ", Host: "x", Port: 22, Username: "u"})
	require.Error(t, err)
}

func TestListServersSortedByName(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.AddServer(ctx, AddServerRequest{Name: "zeta", Host: "h", Port: 22, Username: "u"})
	require.NoError(t, err)
	_, err = svc.AddServer(ctx, AddServerRequest{Name: "alpha", Host: "h", Port: 22, Username: "u"})
	require.NoError(t, err)

	list, err := svc.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "alpha", list[0].Name)
	require.Equal(t, "zeta", list[1].Name)
}

func TestDeleteServerBadUUID(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	err := svc.DeleteServer(context.Background(), "not-a-uuid")
	require.Error(t, err)
	require.Equal(t, string(CodeInvalidUUID), toWireError(err).Code)
}

func TestAddSecretStripsPlaintextFromDTO(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	dto, err := svc.AddSecret(context.Background(), AddSecretRequest{Name: "p1", Kind: "password", Value: "s3cret"})
	require.NoError(t, err)
	require.Equal(t, "p1", dto.Name)
	require.Equal(t, "password", dto.Kind)

	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "s3cret")
}

func TestLinkAndResolvePasswordSecret(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()

	server, err := svc.AddServer(ctx, AddServerRequest{Name: "h1", Host: "10.0.0.1", Port: 22, Username: "u"})
	require.NoError(t, err)
	secret, err := svc.AddSecret(ctx, AddSecretRequest{Name: "p1", Kind: "password", Value: "s3cret"})
	require.NoError(t, err)
	require.NoError(t, svc.LinkSecretToServer(ctx, server.ID, secret.ID, 0))

	servers, err := repo.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)

	method, err := svc.resolver.Resolve(ctx, uuid.MustParse(server.ID), resolver.Overrides{})
	require.NoError(t, err)
	require.Equal(t, types.AuthPassword, method.Kind)
	require.Equal(t, "s3cret", method.Password)
}

func TestDisconnectUnknownSessionNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	err := svc.DisconnectSSH(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	require.Equal(t, string(CodeNotFound), toWireError(err).Code)
}

func TestConnectSendDisconnectLifecycle(t *testing.T) {
	sess := transporttest.NewFakeSession()
	svc, _, _ := newTestService(t, fakeDialer(sess))
	ctx := context.Background()

	server, err := svc.AddServer(ctx, AddServerRequest{Name: "h1", Host: "10.0.0.1", Port: 22, Username: "u"})
	require.NoError(t, err)

	conn, err := svc.ConnectSSH(ctx, ConnectRequest{ServerID: server.ID})
	require.NoError(t, err)
	require.True(t, conn.Connected)

	require.NoError(t, svc.SendSSHInput(ctx, conn.SessionID, "ls\n"))
	require.NoError(t, svc.ResizeTerminal(ctx, conn.SessionID, 100, 30))
	require.NoError(t, svc.DisconnectSSH(ctx, conn.SessionID))

	require.Eventually(t, func() bool {
		err := svc.SendSSHInput(ctx, conn.SessionID, "x")
		return err != nil && toWireError(err).Code == string(CodeNotFound)
	}, 200*time.Millisecond, time.Millisecond)
}

func TestConnectUnknownServerNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.ConnectSSH(context.Background(), ConnectRequest{ServerID: "11111111-1111-1111-1111-111111111111"})
	require.Error(t, err)
	require.Equal(t, string(CodeNotFound), toWireError(err).Code)
}
