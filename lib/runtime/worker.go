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
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/dodoflix/tacoshell/lib/registry"
	"github.com/dodoflix/tacoshell/lib/transport"
)

// Default timing constants. Config (lib/config) may override these;
// the core never exposes them to the UI.
const (
	DefaultReadTimeout       = 100 * time.Millisecond
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultIdleSleep         = 10 * time.Millisecond
	drainBatchSize           = 50
	readBufferSize           = 8192
)

// Options configures a spawned worker.
type Options struct {
	SessionID uuid.UUID
	ServerID  uuid.UUID
	Session   transport.Session
	PTY       transport.PTYConfig

	ReadTimeout       time.Duration
	KeepaliveInterval time.Duration
	IdleSleep         time.Duration

	Registry *registry.Registry
	Events   EventSink
	Log      *slog.Logger
}

// Spawn opens a channel+PTY+shell on opts.Session, registers a fresh
// command endpoint under opts.SessionID in opts.Registry, and starts
// the worker loop on a dedicated goroutine: the worker exclusively
// owns the channel for the session's lifetime.
//
// A dedicated goroutine, not a worker-pool task, because the
// underlying transport performs blocking socket I/O — goroutines
// blocked in syscalls are already parked off the scheduler's run
// queue by the Go runtime and need no manual thread pinning to get
// that isolation.
func Spawn(ctx context.Context, opts Options) error {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = DefaultIdleSleep
	}

	// Set before OpenChannel: the ssh transport copies the session
	// timeout into each channel it opens.
	opts.Session.SetTimeout(opts.ReadTimeout)
	channel, err := opts.Session.OpenChannel()
	if err != nil {
		return trace.Wrap(err, "session/open-channel")
	}
	if err := channel.RequestPTY(opts.PTY); err != nil {
		channel.Close()
		return trace.Wrap(err, "session/request-pty")
	}
	if err := channel.Shell(); err != nil {
		channel.Close()
		return trace.Wrap(err, "session/shell")
	}

	endpoint := NewEndpoint()
	stop := &atomic.Bool{}
	if err := opts.Registry.Add(opts.SessionID, registry.Entry{Endpoint: endpoint, Stop: stop}); err != nil {
		channel.Close()
		return trace.Wrap(err)
	}

	w := &worker{
		opts:     opts,
		channel:  channel,
		endpoint: endpoint,
		stop:     stop,
	}
	go w.run()
	return nil
}

type worker struct {
	opts     Options
	channel  transport.Channel
	endpoint *Endpoint
	stop     *atomic.Bool

	lastKeepalive time.Time
	pendingUTF8   []byte
}

func (w *worker) log() *slog.Logger {
	if w.opts.Log != nil {
		return w.opts.Log
	}
	return slog.Default()
}

func (w *worker) run() {
	w.lastKeepalive = time.Now()
	terminalEmitted := false

	for {
		if w.stop.Load() {
			break
		}

		if time.Since(w.lastKeepalive) >= w.opts.KeepaliveInterval {
			if err := w.opts.Session.KeepaliveSend(); err != nil {
				w.log().Warn("keepalive failed", "session_id", w.opts.SessionID, "error", err)
			}
			w.lastKeepalive = time.Now()
		}

		drained := w.drainInputs()
		fatal := false
		for _, in := range drained {
			switch in.Kind {
			case InputData:
				if err := w.writeData(in.Data); err != nil {
					w.log().Warn("write to channel failed, ending session", "session_id", w.opts.SessionID, "error", err)
					fatal = true
				}
			case InputResize:
				if err := w.channel.Resize(in.Cols, in.Rows); err != nil {
					w.log().Warn("resize failed", "session_id", w.opts.SessionID, "error", err)
				}
			case InputDisconnect:
				w.stop.Store(true)
			}
			if fatal || w.stop.Load() {
				break
			}
		}
		if fatal {
			break
		}
		if w.stop.Load() {
			break
		}

		data, eof, err := w.channel.Read()
		if err != nil {
			w.log().Warn("read from channel failed, ending session", "session_id", w.opts.SessionID, "error", err)
			break
		}
		if len(data) > 0 {
			w.emitData(data, eof)
			if eof {
				terminalEmitted = true
				break
			}
			continue
		}

		if len(drained) == 0 {
			time.Sleep(w.opts.IdleSleep)
		}
		if eof {
			break
		}
	}

	w.teardown(terminalEmitted)
}

func (w *worker) drainInputs() []SshInput {
	return w.endpoint.Drain(drainBatchSize)
}

func (w *worker) writeData(data []byte) error {
	if err := w.channel.Write(data); err != nil {
		return err
	}
	return w.channel.Flush()
}

func (w *worker) emitData(chunk []byte, eof bool) {
	buf := append(w.pendingUTF8, chunk...)
	w.pendingUTF8 = nil

	complete, pending := splitTrailingIncomplete(buf)
	if eof {
		// Nothing more is coming: flush whatever is left even if it
		// never completed a valid rune.
		complete = buf
		pending = nil
	} else {
		w.pendingUTF8 = append(w.pendingUTF8, pending...)
	}

	if len(complete) == 0 && !eof {
		return
	}
	w.opts.Events.Emit(OutputEvent{SessionID: w.opts.SessionID, Data: string(complete), EOF: eof})
}

func (w *worker) teardown(terminalEmitted bool) {
	w.opts.Registry.Remove(w.opts.SessionID)
	if err := w.channel.Close(); err != nil {
		w.log().Debug("channel close returned error (ignored)", "session_id", w.opts.SessionID, "error", err)
	}
	if !terminalEmitted {
		w.opts.Events.Emit(OutputEvent{SessionID: w.opts.SessionID, Data: string(w.pendingUTF8), EOF: true})
	}
}
