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

// Package store defines the repository contract: the capability set
// the rest of the core needs for servers, secrets and the links
// between them. The substrate behind it — embedded relational store
// or document store — is an implementation detail; concrete backends
// live in sub-packages (sqlite, memory).
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/dodoflix/tacoshell/lib/types"
)

// Repository is the full capability set consumed by the rest of the
// core. not-found is reported as a nil, nil return (an empty
// optional), never as an error — callers check for a nil pointer.
type Repository interface {
	ServerStore
	SecretStore
	LinkStore

	// Close releases any resources held by the underlying substrate.
	Close() error
}

// ServerStore is the servers operation family.
type ServerStore interface {
	StoreServer(ctx context.Context, s *types.Server) error
	GetServer(ctx context.Context, id uuid.UUID) (*types.Server, error)
	ListServers(ctx context.Context) ([]*types.Server, error)
	UpdateServer(ctx context.Context, s *types.Server) error
	DeleteServer(ctx context.Context, id uuid.UUID) error
}

// SecretStore is the secrets operation family.
type SecretStore interface {
	StoreSecret(ctx context.Context, s *types.Secret) error
	GetSecret(ctx context.Context, id uuid.UUID) (*types.Secret, error)
	ListSecrets(ctx context.Context) ([]*types.Secret, error)
	UpdateSecret(ctx context.Context, s *types.Secret) error
	DeleteSecret(ctx context.Context, id uuid.UUID) error
}

// LinkStore is the server<->secret link operation family.
type LinkStore interface {
	Link(ctx context.Context, serverID, secretID uuid.UUID, priority int32) error
	Unlink(ctx context.Context, serverID, secretID uuid.UUID) error
	SecretsFor(ctx context.Context, serverID uuid.UUID) ([]*types.Secret, error)
}
