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

// Package storetest is a substrate-agnostic contract test for
// store.Repository, run against both the memory and sqlite
// implementations so the two stay behaviorally identical.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dodoflix/tacoshell/lib/store"
	"github.com/dodoflix/tacoshell/lib/types"
)

// RunContract exercises every Repository operation family against repo.
func RunContract(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	h1 := &types.Server{ID: uuid.New(), Name: "h1", Host: "10.0.0.1", Port: 22, Username: "u", Protocol: types.ProtocolSSH, CreatedAt: now, UpdatedAt: now}
	h0 := &types.Server{ID: uuid.New(), Name: "a-first", Host: "10.0.0.2", Port: 22, Username: "u", Protocol: types.ProtocolSSH, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.StoreServer(ctx, h1))
	require.NoError(t, repo.StoreServer(ctx, h0))

	t.Run("list_servers_sorted_by_name", func(t *testing.T) {
		list, err := repo.ListServers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "a-first", list[0].Name)
		require.Equal(t, "h1", list[1].Name)
	})

	t.Run("get_server_not_found_is_nil_nil", func(t *testing.T) {
		got, err := repo.GetServer(ctx, uuid.New())
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("update_server_roundtrip", func(t *testing.T) {
		h1.Name = "h1-renamed"
		h1.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, repo.UpdateServer(ctx, h1))
		got, err := repo.GetServer(ctx, h1.ID)
		require.NoError(t, err)
		require.Equal(t, "h1-renamed", got.Name)
	})

	pA := &types.Secret{ID: uuid.New(), Name: "pA", Kind: types.SecretKindPassword, Ciphertext: []byte("ctA"), CreatedAt: now, UpdatedAt: now}
	pB := &types.Secret{ID: uuid.New(), Name: "pB", Kind: types.SecretKindPassword, Ciphertext: []byte("ctB"), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.StoreSecret(ctx, pA))
	require.NoError(t, repo.StoreSecret(ctx, pB))

	t.Run("link_priority_selection", func(t *testing.T) {
		require.NoError(t, repo.Link(ctx, h1.ID, pA.ID, 5))
		require.NoError(t, repo.Link(ctx, h1.ID, pB.ID, 1))
		secs, err := repo.SecretsFor(ctx, h1.ID)
		require.NoError(t, err)
		require.Len(t, secs, 2)
		require.Equal(t, pB.ID, secs[0].ID)
		require.Equal(t, pA.ID, secs[1].ID)
	})

	t.Run("relink_replaces_priority_not_membership", func(t *testing.T) {
		require.NoError(t, repo.Link(ctx, h1.ID, pA.ID, -10))
		secs, err := repo.SecretsFor(ctx, h1.ID)
		require.NoError(t, err)
		require.Len(t, secs, 2)
		require.Equal(t, pA.ID, secs[0].ID)
		require.Equal(t, pB.ID, secs[1].ID)
	})

	t.Run("unlink", func(t *testing.T) {
		require.NoError(t, repo.Unlink(ctx, h1.ID, pB.ID))
		secs, err := repo.SecretsFor(ctx, h1.ID)
		require.NoError(t, err)
		require.Len(t, secs, 1)
		require.Equal(t, pA.ID, secs[0].ID)
		// restore for later subtests
		require.NoError(t, repo.Link(ctx, h1.ID, pB.ID, 1))
	})

	t.Run("cascade_delete_server", func(t *testing.T) {
		require.NoError(t, repo.DeleteServer(ctx, h1.ID))
		secs, err := repo.SecretsFor(ctx, h1.ID)
		require.NoError(t, err)
		require.Empty(t, secs)
		all, err := repo.ListSecrets(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2) // secrets themselves survive
	})

	t.Run("cascade_delete_secret", func(t *testing.T) {
		require.NoError(t, repo.StoreServer(ctx, h1))
		require.NoError(t, repo.Link(ctx, h1.ID, pA.ID, 0))
		require.NoError(t, repo.DeleteSecret(ctx, pA.ID))
		secs, err := repo.SecretsFor(ctx, h1.ID)
		require.NoError(t, err)
		require.Empty(t, secs)
	})
}
