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

// Package registry is the process-wide session registry: a mapping
// from session id to the live worker's command endpoint, guarded by a
// single RWMutex. It is deliberately the one piece of global mutable
// state the core carries: one instance is created at boot and
// threaded explicitly into every consumer.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
)

// Entry is what the registry stores per session: the command endpoint
// and the stop flag a worker watches. Both are supplied by the
// runtime package at spawn time.
type Entry struct {
	Endpoint EndpointSender
	Stop     *atomic.Bool
}

// EndpointSender is the write side of a session's command queue; the
// runtime package's Endpoint type satisfies it.
type EndpointSender interface {
	Send(input any)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[uuid.UUID]Entry)}
}

// Add inserts entry under id. A collision is impossible by
// construction (ids are freshly minted random uuids) but is still
// treated as registry/duplicate if ever observed.
func (r *Registry) Add(id uuid.UUID, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return trace.AlreadyExists("registry/duplicate: session %s already registered", id)
	}
	r.entries[id] = entry
	return nil
}

// Remove deletes id's entry if present and returns it.
func (r *Registry) Remove(id uuid.UUID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return entry, ok
}

// With read-locks the registry, looks up id, and invokes f with the
// entry if present.
func (r *Registry) With(id uuid.UUID, f func(Entry)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	f(entry)
	return true
}

// Len reports how many sessions are currently registered (test/metrics use).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
