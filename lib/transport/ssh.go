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

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitational/trace"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/dodoflix/tacoshell/lib/types"
)

const dialTimeout = 15 * time.Second

// Connect performs the TCP dial, SSH handshake and authentication
// against host:port, translating the resolved types.AuthMethod into
// the concrete x/crypto/ssh auth method(s) to offer.
func Connect(ctx context.Context, host string, port int, username string, auth types.AuthMethod) (Session, error) {
	authMethods, cleanup, err := buildAuthMethods(auth)
	if err != nil {
		return nil, trace.Wrap(err, "authentication/build-method")
	}
	defer cleanup()

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // no known_hosts store is maintained
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, trace.ConnectionProblem(err, "dialing %s", addr)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, trace.AccessDenied("ssh handshake/auth failed: %v", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	return &sshSession{client: client, authenticated: true}, nil
}

func buildAuthMethods(auth types.AuthMethod) (methods []ssh.AuthMethod, cleanup func(), err error) {
	cleanup = func() {}
	switch auth.Kind {
	case types.AuthPassword:
		return []ssh.AuthMethod{ssh.Password(auth.Password)}, cleanup, nil

	case types.AuthPrivateKey:
		keyBytes, rerr := loadKeyMaterial(auth.Key)
		if rerr != nil {
			return nil, cleanup, rerr
		}
		var signer ssh.Signer
		if auth.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(auth.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, cleanup, trace.Wrap(err, "parsing private key")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, cleanup, nil

	case types.AuthAgent:
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, cleanup, trace.ConnectionProblem(nil, "SSH_AUTH_SOCK is not set, no agent reachable")
		}
		conn, derr := net.Dial("unix", sock)
		if derr != nil {
			return nil, cleanup, trace.ConnectionProblem(derr, "dialing ssh-agent socket")
		}
		cleanup = func() { conn.Close() }
		ag := agent.NewClient(conn)
		return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}, cleanup, nil

	default:
		return nil, cleanup, trace.BadParameter("unsupported auth method kind %q", auth.Kind)
	}
}

// loadKeyMaterial returns the raw key bytes. Key may either be a path
// to an existing file or the raw key content itself;
// golang.org/x/crypto/ssh accepts in-memory PEM directly via
// ParsePrivateKey, so — unlike an SSH library with only file-based
// pubkey auth — no temp-file roundtrip is ever needed here.
func loadKeyMaterial(key string) ([]byte, error) {
	if info, err := os.Stat(key); err == nil && !info.IsDir() {
		data, err := os.ReadFile(key)
		if err != nil {
			return nil, trace.Wrap(err, "reading private key file")
		}
		return data, nil
	}
	return []byte(key), nil
}

type sshSession struct {
	client        *ssh.Client
	authenticated bool
	timeout       time.Duration
}

func (s *sshSession) OpenChannel() (Channel, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, trace.Wrap(err, "session/open-channel")
	}
	ch := &sshChannel{
		session: sess,
		timeout: s.timeout,
		readCh:  make(chan []byte, 16),
	}
	return ch, nil
}

func (s *sshSession) SFTP() (SftpHandle, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, trace.Wrap(err, "session/open-sftp-channel")
	}
	if err := sess.RequestSubsystem("sftp"); err != nil {
		sess.Close()
		return nil, trace.Wrap(err, "requesting sftp subsystem")
	}
	return sess, nil
}

func (s *sshSession) SetBlocking(bool) {} // x/crypto/ssh sessions are always blocking; kept for contract fidelity

func (s *sshSession) SetTimeout(d time.Duration) { s.timeout = d }

func (s *sshSession) KeepaliveSend() error {
	_, _, err := s.client.SendRequest("keepalive@tacoshell", true, nil)
	return trace.Wrap(err)
}

func (s *sshSession) IsAuthenticated() bool { return s.authenticated }

func (s *sshSession) Close() error { return trace.Wrap(s.client.Close()) }

// sshChannel adapts ssh.Session's pipe-oriented I/O to the
// bounded-blocking-read contract the runtime worker needs: a
// background goroutine pumps Stdout into readCh, and Read() selects
// against it with a timeout instead of blocking indefinitely.
type sshChannel struct {
	session    *ssh.Session
	stdin      io.WriteCloser
	timeout    time.Duration
	readCh     chan []byte
	pumpOnce   sync.Once
	eof        atomic.Bool
	exitCode   int
	exited     atomic.Bool
}

func (c *sshChannel) RequestPTY(cfg PTYConfig) error {
	modes := ssh.TerminalModes{}
	return trace.Wrap(c.session.RequestPty(cfg.Term, cfg.Rows, cfg.Cols, modes))
}

func (c *sshChannel) Shell() error {
	stdin, err := c.session.StdinPipe()
	if err != nil {
		return trace.Wrap(err, "opening stdin pipe")
	}
	c.stdin = stdin

	stdout, err := c.session.StdoutPipe()
	if err != nil {
		return trace.Wrap(err, "opening stdout pipe")
	}
	if err := c.session.Shell(); err != nil {
		return trace.Wrap(err, "requesting shell")
	}

	c.pumpOnce.Do(func() { go c.pump(stdout) })

	go func() {
		err := c.session.Wait()
		if exitErr, ok := err.(*ssh.ExitError); ok {
			c.exitCode = exitErr.ExitStatus()
		}
		c.exited.Store(true)
	}()
	return nil
}

func (c *sshChannel) pump(stdout io.Reader) {
	buf := make([]byte, 8192)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.readCh <- chunk
		}
		if err != nil {
			c.eof.Store(true)
			close(c.readCh)
			return
		}
	}
}

func (c *sshChannel) Resize(cols, rows int) error {
	return trace.Wrap(c.session.WindowChange(rows, cols))
}

func (c *sshChannel) Write(data []byte) error {
	_, err := c.stdin.Write(data)
	return trace.Wrap(err)
}

func (c *sshChannel) Flush() error { return nil } // stdin pipe has no separate flush step

func (c *sshChannel) Read() ([]byte, bool, error) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	select {
	case chunk, ok := <-c.readCh:
		if !ok {
			return nil, true, nil
		}
		return chunk, c.eof.Load(), nil
	case <-time.After(timeout):
		return nil, c.eof.Load(), nil
	}
}

func (c *sshChannel) EOF() bool { return c.eof.Load() }

func (c *sshChannel) SendEOF() error {
	if closer, ok := c.stdin.(interface{ CloseWrite() error }); ok {
		return trace.Wrap(closer.CloseWrite())
	}
	return trace.Wrap(c.stdin.Close())
}

func (c *sshChannel) Close() error { return trace.Wrap(c.session.Close()) }

func (c *sshChannel) ExitStatus() (int, bool) { return c.exitCode, c.exited.Load() }
