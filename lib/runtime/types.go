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

// Package runtime is the session runtime: one dedicated worker per
// live SSH channel, multiplexing UI-issued commands against blocking
// PTY reads.
package runtime

import "github.com/google/uuid"

// InputKind discriminates the SshInput union.
type InputKind int

const (
	InputData InputKind = iota
	InputResize
	InputDisconnect
)

// SshInput is one message on a session's command endpoint.
type SshInput struct {
	Kind InputKind
	Data []byte
	Cols int
	Rows int
}

// DataInput builds a Data(bytes) message.
func DataInput(data []byte) SshInput { return SshInput{Kind: InputData, Data: data} }

// ResizeInput builds a Resize{cols, rows} message.
func ResizeInput(cols, rows int) SshInput { return SshInput{Kind: InputResize, Cols: cols, Rows: rows} }

// DisconnectInput builds a Disconnect message.
func DisconnectInput() SshInput { return SshInput{Kind: InputDisconnect} }

// OutputEvent is the unsolicited core->UI `ssh-output` event.
type OutputEvent struct {
	SessionID uuid.UUID
	Data      string
	EOF       bool
}

// EventSink receives output events as a worker produces them. Per
// session, one worker's events are totally ordered; no ordering is
// guaranteed across sessions.
type EventSink interface {
	Emit(ev OutputEvent)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(OutputEvent)

func (f EventSinkFunc) Emit(ev OutputEvent) { f(ev) }
