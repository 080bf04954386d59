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

// Package transport is the thin SSH transport adapter over
// golang.org/x/crypto/ssh. Everything upstream of this package talks
// to the Session/Channel interfaces, never to golang.org/x/crypto/ssh
// directly, so the runtime and resolver can be tested against a fake
// implementation.
package transport

import "time"

// PTYConfig mirrors the pty-req parameters sent on session open.
type PTYConfig struct {
	Term         string
	Cols, Rows   int
	PixelW, PixelH int
}

// DefaultPTYConfig returns the default PTY request parameters.
func DefaultPTYConfig() PTYConfig {
	return PTYConfig{Term: "xterm-256color", Cols: 80, Rows: 24, PixelW: 0, PixelH: 0}
}

// SftpHandle is the opaque SFTP subsystem handle — the one piece of
// file-transfer surface in scope. Orchestrating transfers over it is
// out of scope; only opening and exposing it is.
type SftpHandle interface {
	Close() error
}

// Session is one authenticated SSH connection.
type Session interface {
	OpenChannel() (Channel, error)
	SFTP() (SftpHandle, error)
	SetBlocking(blocking bool)
	SetTimeout(d time.Duration)
	KeepaliveSend() error
	IsAuthenticated() bool
	Close() error
}

// Channel is one PTY+shell channel multiplexed inside a Session.
type Channel interface {
	RequestPTY(cfg PTYConfig) error
	Shell() error
	Resize(cols, rows int) error
	Write(data []byte) error
	Flush() error
	// Read performs one bounded-blocking read: it returns nil data on a
	// read timeout with nothing received (eof reports whether the
	// channel has already reached EOF), eof=true on a read that
	// coincides with channel EOF (with or without data), or a non-nil
	// error on a fatal I/O failure.
	Read() (data []byte, eof bool, err error)
	EOF() bool
	SendEOF() error
	Close() error
	ExitStatus() (code int, exited bool)
}
