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

// Package memory is an in-memory Repository substrate. It exists
// primarily so tests can exercise the core against an alternate
// backend to the sqlite one.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/dodoflix/tacoshell/lib/store"
	"github.com/dodoflix/tacoshell/lib/types"
)

type link struct {
	secretID uuid.UUID
	priority int32
	seq      uint64
}

// Store is a process-local Repository. Writers serialize through mu;
// the substrate has no concurrent-reader optimization to offer beyond
// Go's native RWMutex.
type Store struct {
	mu      sync.RWMutex
	servers map[uuid.UUID]*types.Server
	secrets map[uuid.UUID]*types.Secret
	links   map[uuid.UUID][]*link // serverID -> links, insertion order preserved until re-link
	seq     uint64
}

var _ store.Repository = (*Store)(nil)

// New returns an empty in-memory repository.
func New() *Store {
	return &Store{
		servers: make(map[uuid.UUID]*types.Server),
		secrets: make(map[uuid.UUID]*types.Secret),
		links:   make(map[uuid.UUID][]*link),
	}
}

func (s *Store) Close() error { return nil }

// --- servers ---

func (s *Store) StoreServer(_ context.Context, srv *types.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *srv
	s.servers[srv.ID] = &cp
	return nil
}

func (s *Store) GetServer(_ context.Context, id uuid.UUID) (*types.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[id]
	if !ok {
		return nil, nil
	}
	cp := *srv
	return &cp, nil
}

func (s *Store) ListServers(_ context.Context) ([]*types.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		cp := *srv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateServer(_ context.Context, srv *types.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[srv.ID]; !ok {
		return trace.NotFound("server %s not found", srv.ID)
	}
	cp := *srv
	s.servers[srv.ID] = &cp
	return nil
}

func (s *Store) DeleteServer(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, id)
	delete(s.links, id)
	return nil
}

// --- secrets ---

func (s *Store) StoreSecret(_ context.Context, sec *types.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sec
	s.secrets[sec.ID] = &cp
	return nil
}

func (s *Store) GetSecret(_ context.Context, id uuid.UUID) (*types.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[id]
	if !ok {
		return nil, nil
	}
	cp := *sec
	return &cp, nil
}

func (s *Store) ListSecrets(_ context.Context) ([]*types.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Secret, 0, len(s.secrets))
	for _, sec := range s.secrets {
		cp := *sec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateSecret(_ context.Context, sec *types.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[sec.ID]; !ok {
		return trace.NotFound("secret %s not found", sec.ID)
	}
	cp := *sec
	s.secrets[sec.ID] = &cp
	return nil
}

func (s *Store) DeleteSecret(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, id)
	for serverID, ls := range s.links {
		filtered := ls[:0]
		for _, l := range ls {
			if l.secretID != id {
				filtered = append(filtered, l)
			}
		}
		s.links[serverID] = filtered
	}
	return nil
}

// --- links ---

func (s *Store) Link(_ context.Context, serverID, secretID uuid.UUID, priority int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.links[serverID]
	for _, l := range ls {
		if l.secretID == secretID {
			l.priority = priority
			return nil
		}
	}
	s.seq++
	s.links[serverID] = append(ls, &link{secretID: secretID, priority: priority, seq: s.seq})
	return nil
}

func (s *Store) Unlink(_ context.Context, serverID, secretID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.links[serverID]
	filtered := ls[:0]
	for _, l := range ls {
		if l.secretID != secretID {
			filtered = append(filtered, l)
		}
	}
	s.links[serverID] = filtered
	return nil
}

func (s *Store) SecretsFor(_ context.Context, serverID uuid.UUID) ([]*types.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls := append([]*link(nil), s.links[serverID]...)
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].priority != ls[j].priority {
			return ls[i].priority < ls[j].priority
		}
		return ls[i].seq < ls[j].seq
	})
	out := make([]*types.Secret, 0, len(ls))
	for _, l := range ls {
		sec, ok := s.secrets[l.secretID]
		if !ok {
			continue
		}
		cp := *sec
		out = append(out, &cp)
	}
	return out, nil
}
