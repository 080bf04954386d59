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

// Package types holds the data model shared by the repository, the
// secret resolver and the command surface: servers, secrets, the
// links between them, and live session descriptors.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
)

// Protocol identifies what a Server is reached with.
type Protocol string

const (
	ProtocolSSH  Protocol = "ssh"
	ProtocolSFTP Protocol = "sftp"
	ProtocolFTP  Protocol = "ftp"
)

func normalizeProtocol(p string) (Protocol, error) {
	if p == "" {
		return ProtocolSSH, nil
	}
	switch Protocol(strings.ToLower(p)) {
	case ProtocolSSH:
		return ProtocolSSH, nil
	case ProtocolSFTP:
		return ProtocolSFTP, nil
	case ProtocolFTP:
		return ProtocolFTP, nil
	default:
		return "", trace.BadParameter("unknown protocol %q", p)
	}
}

// SecretKind enumerates the shapes a stored Secret's plaintext payload
// can take.
type SecretKind string

const (
	SecretKindPassword   SecretKind = "password"
	SecretKindPrivateKey SecretKind = "private_key"
	SecretKindToken      SecretKind = "token"
	SecretKindKubeconfig SecretKind = "kubeconfig"
)

func normalizeSecretKind(k string) (SecretKind, error) {
	if k == "" {
		return SecretKindPassword, nil
	}
	switch SecretKind(strings.ToLower(k)) {
	case SecretKindPassword, SecretKindPrivateKey, SecretKindToken, SecretKindKubeconfig:
		return SecretKind(strings.ToLower(k)), nil
	default:
		return "", trace.BadParameter("unknown secret kind %q", k)
	}
}

// NormalizeSecretKind exposes the case-insensitive secret-kind parser
// used at the command boundary.
func NormalizeSecretKind(k string) (SecretKind, error) { return normalizeSecretKind(k) }

// NormalizeProtocol exposes the case-insensitive protocol parser used
// at the command boundary.
func NormalizeProtocol(p string) (Protocol, error) { return normalizeProtocol(p) }

// Server is a remote host definition. Host may be a DNS name or a
// literal address; Port is validated to be in [1, 65535].
type Server struct {
	ID        uuid.UUID
	Name      string
	Host      string
	Port      int
	Username  string
	Protocol  Protocol
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces that name, host and username are non-empty after
// trimming, and that port is in range.
func (s *Server) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Host = strings.TrimSpace(s.Host)
	s.Username = strings.TrimSpace(s.Username)
	if s.Name == "" {
		return trace.BadParameter("server name must not be empty")
	}
	if len(s.Name) > 255 {
		return trace.BadParameter("server name must be at most 255 characters")
	}
	if s.Host == "" {
		return trace.BadParameter("server host must not be empty")
	}
	if s.Username == "" {
		return trace.BadParameter("server username must not be empty")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return trace.BadParameter("server port must be in [1, 65535], got %d", s.Port)
	}
	if s.Protocol == "" {
		s.Protocol = ProtocolSSH
	}
	return nil
}

// Secret is a stored credential. Plaintext is never a field on this
// type: Ciphertext is the only representation that crosses a process
// boundary or is persisted.
type Secret struct {
	ID         uuid.UUID
	Name       string
	Kind       SecretKind
	Username   string // only meaningful when Kind == SecretKindPassword
	Ciphertext []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Link records a fallback-ordering relationship between a Server and
// a Secret. Priority is a sort key: lower sorts first.
type Link struct {
	ServerID uuid.UUID
	SecretID uuid.UUID
	Priority int32
}

// SessionStatus is the liveness status of a Session descriptor.
type SessionStatus string

const (
	SessionDisconnected SessionStatus = "disconnected"
	SessionConnecting   SessionStatus = "connecting"
	SessionConnected    SessionStatus = "connected"
	SessionError        SessionStatus = "error"
)

// Session is the descriptor minted at connect time; it tracks nothing
// but metadata, never the live channel itself (that belongs to the
// runtime worker, see package runtime).
type Session struct {
	ID        uuid.UUID
	ServerID  uuid.UUID
	Protocol  Protocol
	StartedAt time.Time
	Status    SessionStatus
	ErrorMsg  string
}

// AuthMethodKind discriminates the AuthMethod union.
type AuthMethodKind string

const (
	AuthPassword   AuthMethodKind = "password"
	AuthPrivateKey AuthMethodKind = "private_key"
	AuthAgent      AuthMethodKind = "agent"
)

// AuthMethod is resolved at connect time and never persisted. Key may
// be a filesystem path or raw PEM/OpenSSH key content — the resolver
// distinguishes by filesystem probe.
type AuthMethod struct {
	Kind       AuthMethodKind
	Password   string
	Key        string
	Passphrase string
}
