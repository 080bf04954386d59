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

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dodoflix/tacoshell/lib/registry"
	"github.com/dodoflix/tacoshell/lib/transport"
	"github.com/dodoflix/tacoshell/lib/transport/transporttest"
)

type collectingSink struct {
	mu     sync.Mutex
	events []OutputEvent
}

func (c *collectingSink) Emit(ev OutputEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collectingSink) snapshot() []OutputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutputEvent(nil), c.events...)
}

func spawnTestWorker(t *testing.T, reg *registry.Registry, sink *collectingSink) (uuid.UUID, *transporttest.FakeSession) {
	t.Helper()
	sess := transporttest.NewFakeSession()
	id := uuid.New()
	err := Spawn(context.Background(), Options{
		SessionID:         id,
		ServerID:          uuid.New(),
		Session:           sess,
		PTY:               transport.DefaultPTYConfig(),
		ReadTimeout:        5 * time.Millisecond,
		KeepaliveInterval:  time.Hour,
		IdleSleep:          time.Millisecond,
		Registry:          reg,
		Events:            sink,
	})
	require.NoError(t, err)
	return id, sess
}

func TestWorkerStreamsOutputUntilEOF(t *testing.T) {
	reg := registry.New()
	sink := &collectingSink{}
	id, sess := spawnTestWorker(t, reg, sink)

	sess.Channel.Emit([]byte("hello "))
	sess.Channel.Emit([]byte("world"))
	sess.Channel.EmitEOF()

	require.Eventually(t, func() bool {
		return reg.Len() == 0
	}, time.Second, 5*time.Millisecond)

	events := sink.snapshot()
	require.NotEmpty(t, events)

	var data string
	eofCount := 0
	for _, ev := range events {
		require.Equal(t, id, ev.SessionID)
		data += ev.Data
		if ev.EOF {
			eofCount++
		}
	}
	require.Equal(t, "hello world", data)
	require.Equal(t, 1, eofCount, "exactly one terminal eof event")
	require.True(t, events[len(events)-1].EOF, "eof event must be last")
	require.True(t, sess.Channel.Closed())
}

func TestWorkerAppliesInputAndResize(t *testing.T) {
	reg := registry.New()
	sink := &collectingSink{}
	id, sess := spawnTestWorker(t, reg, sink)

	reg.With(id, func(e registry.Entry) {
		e.Endpoint.Send(DataInput([]byte("ls -la\n")))
		e.Endpoint.Send(ResizeInput(120, 40))
	})

	require.Eventually(t, func() bool {
		return len(sess.Channel.Written()) > 0 && len(sess.Channel.Resizes()) > 0
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, "ls -la\n", string(sess.Channel.Written()))
	require.Equal(t, []transporttest.ResizeCall{{Cols: 120, Rows: 40}}, sess.Channel.Resizes())

	sess.Channel.EmitEOF()
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDisconnectRacesInputAndTerminatesPromptly(t *testing.T) {
	reg := registry.New()
	sink := &collectingSink{}
	id, sess := spawnTestWorker(t, reg, sink)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			reg.With(id, func(e registry.Entry) { e.Endpoint.Send(DataInput([]byte("x"))) })
		}
	}()
	go func() {
		defer wg.Done()
		reg.With(id, func(e registry.Entry) { e.Endpoint.Send(DisconnectInput()) })
	}()
	wg.Wait()

	require.Eventually(t, func() bool {
		return reg.Len() == 0
	}, 200*time.Millisecond, time.Millisecond)

	events := sink.snapshot()
	eofCount := 0
	for _, ev := range events {
		if ev.EOF {
			eofCount++
		}
	}
	require.Equal(t, 1, eofCount)

	found := reg.With(id, func(registry.Entry) {})
	require.False(t, found, "session must be gone from the registry after disconnect")
}

func TestWriteErrorIsFatal(t *testing.T) {
	reg := registry.New()
	sink := &collectingSink{}
	id, sess := spawnTestWorker(t, reg, sink)
	sess.Channel.WriteErr = context.DeadlineExceeded

	reg.With(id, func(e registry.Entry) { e.Endpoint.Send(DataInput([]byte("x"))) })

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, sess.Channel.Closed())
}

func TestSplitTrailingIncompleteUTF8(t *testing.T) {
	full := []byte("h\xe2\x9c\x93") // "h" + checkmark (3-byte rune)
	part1 := full[:2]              // splits the checkmark after 1 of 3 bytes
	part2 := full[2:]

	complete, pending := splitTrailingIncomplete(part1)
	require.Equal(t, "h", string(complete))
	require.NotEmpty(t, pending)

	joined := append(append([]byte(nil), pending...), part2...)
	require.True(t, len(joined) > 0)
	complete2, pending2 := splitTrailingIncomplete(joined)
	require.Equal(t, "✓", string(complete2))
	require.Empty(t, pending2)
}
