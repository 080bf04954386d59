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

package runtime

import "sync"

// Endpoint is the per-session command queue: unbounded, multi-producer
// single-consumer. It is backed by a mutex-protected
// slice rather than a Go channel so Send can never block the UI
// thread regardless of queue depth.
type Endpoint struct {
	mu    sync.Mutex
	queue []SshInput
}

// NewEndpoint returns an empty endpoint.
func NewEndpoint() *Endpoint {
	return &Endpoint{}
}

// Send enqueues input. It satisfies registry.EndpointSender, which
// takes `any` so the registry package need not import this one.
func (e *Endpoint) Send(input any) {
	in, ok := input.(SshInput)
	if !ok {
		return
	}
	e.mu.Lock()
	e.queue = append(e.queue, in)
	e.mu.Unlock()
}

// Drain removes and returns up to max queued messages, FIFO.
func (e *Endpoint) Drain(max int) []SshInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.queue)
	if n > max {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]SshInput, n)
	copy(out, e.queue[:n])
	e.queue = e.queue[n:]
	return out
}

// Len reports the current queue depth (test/metrics use).
func (e *Endpoint) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
