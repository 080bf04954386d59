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

package registry

import (
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingEndpoint struct{ sent []any }

func (r *recordingEndpoint) Send(input any) { r.sent = append(r.sent, input) }

func TestAddRemoveWith(t *testing.T) {
	r := New()
	id := uuid.New()
	ep := &recordingEndpoint{}
	stop := &atomic.Bool{}

	require.NoError(t, r.Add(id, Entry{Endpoint: ep, Stop: stop}))
	require.Equal(t, 1, r.Len())

	found := r.With(id, func(e Entry) { e.Endpoint.Send("hello") })
	require.True(t, found)
	require.Equal(t, []any{"hello"}, ep.sent)

	entry, ok := r.Remove(id)
	require.True(t, ok)
	require.Same(t, ep, entry.Endpoint)
	require.Equal(t, 0, r.Len())

	_, ok = r.Remove(id)
	require.False(t, ok)
}

func TestAddDuplicateFails(t *testing.T) {
	r := New()
	id := uuid.New()
	entry := Entry{Endpoint: &recordingEndpoint{}, Stop: &atomic.Bool{}}
	require.NoError(t, r.Add(id, entry))
	err := r.Add(id, entry)
	require.Error(t, err)
}

func TestWithMissingIDReturnsFalse(t *testing.T) {
	r := New()
	found := r.With(uuid.New(), func(Entry) { t.Fatal("must not be called") })
	require.False(t, found)
}
