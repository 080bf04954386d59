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

// Package transporttest is a fake implementation of lib/transport's
// Session/Channel contract, so the session runtime can be tested
// without a real SSH server.
package transporttest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dodoflix/tacoshell/lib/transport"
)

// FakeChannel is a fully in-process Channel. Feed it remote output
// with Emit; inspect what the worker wrote via Written().
type FakeChannel struct {
	mu        sync.Mutex
	written   []byte
	resizes   []ResizeCall
	outbox    chan []byte
	closed    atomic.Bool
	eof       atomic.Bool
	ptyReq    *transport.PTYConfig
	shellReq  bool
	WriteErr  error
	ResizeErr error
}

// ResizeCall records one Resize invocation for assertions.
type ResizeCall struct{ Cols, Rows int }

// NewFakeChannel returns a ready-to-use fake channel.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{outbox: make(chan []byte, 64)}
}

func (f *FakeChannel) RequestPTY(cfg transport.PTYConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ptyReq = &cfg
	return nil
}

func (f *FakeChannel) Shell() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shellReq = true
	return nil
}

func (f *FakeChannel) Resize(cols, rows int) error {
	if f.ResizeErr != nil {
		return f.ResizeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, ResizeCall{Cols: cols, Rows: rows})
	return nil
}

func (f *FakeChannel) Write(data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data...)
	return nil
}

func (f *FakeChannel) Flush() error { return nil }

// Emit simulates remote output arriving.
func (f *FakeChannel) Emit(data []byte) { f.outbox <- data }

// EmitEOF simulates the remote closing the channel after any
// already-queued Emit data has been read.
func (f *FakeChannel) EmitEOF() { close(f.outbox) }

func (f *FakeChannel) Read() ([]byte, bool, error) {
	select {
	case data, ok := <-f.outbox:
		if !ok {
			f.eof.Store(true)
			return nil, true, nil
		}
		return data, false, nil
	case <-time.After(20 * time.Millisecond):
		return nil, f.eof.Load(), nil
	}
}

func (f *FakeChannel) EOF() bool { return f.eof.Load() }

func (f *FakeChannel) SendEOF() error { return nil }

func (f *FakeChannel) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *FakeChannel) Closed() bool { return f.closed.Load() }

func (f *FakeChannel) ExitStatus() (int, bool) { return 0, f.closed.Load() }

// Written returns everything the worker has written to stdin so far.
func (f *FakeChannel) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.written))
	copy(out, f.written)
	return out
}

// Resizes returns every Resize call observed so far.
func (f *FakeChannel) Resizes() []ResizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ResizeCall(nil), f.resizes...)
}

// FakeSession is a Session backed by a single FakeChannel.
type FakeSession struct {
	Channel        *FakeChannel
	KeepaliveCalls atomic.Int32
	KeepaliveErr   error
	closed         atomic.Bool
}

// NewFakeSession returns a FakeSession wrapping a fresh FakeChannel.
func NewFakeSession() *FakeSession {
	return &FakeSession{Channel: NewFakeChannel()}
}

func (s *FakeSession) OpenChannel() (transport.Channel, error) { return s.Channel, nil }

func (s *FakeSession) SFTP() (transport.SftpHandle, error) { return nil, nil }

func (s *FakeSession) SetBlocking(bool) {}

func (s *FakeSession) SetTimeout(time.Duration) {}

func (s *FakeSession) KeepaliveSend() error {
	s.KeepaliveCalls.Add(1)
	return s.KeepaliveErr
}

func (s *FakeSession) IsAuthenticated() bool { return true }

func (s *FakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *FakeSession) Closed() bool { return s.closed.Load() }
