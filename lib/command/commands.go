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

// Package command is the command surface: it validates inputs, parses
// ids, delegates to the repository, resolver, runtime and registry,
// and serializes results, stripping any plaintext secret material
// before a response ever leaves this package.
package command

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/dodoflix/tacoshell/lib/registry"
	"github.com/dodoflix/tacoshell/lib/resolver"
	"github.com/dodoflix/tacoshell/lib/runtime"
	"github.com/dodoflix/tacoshell/lib/secretbox"
	"github.com/dodoflix/tacoshell/lib/store"
	"github.com/dodoflix/tacoshell/lib/transport"
	"github.com/dodoflix/tacoshell/lib/types"
)

// Dialer opens an authenticated Session; satisfied by transport.Connect.
type Dialer func(ctx context.Context, host string, port int, username string, auth types.AuthMethod) (transport.Session, error)

// RuntimeOptions carries the session-runtime timing knobs sourced from
// lib/config so the command surface never hardcodes them.
type RuntimeOptions struct {
	ReadTimeout       time.Duration
	KeepaliveInterval time.Duration
	IdleSleep         time.Duration
}

// Service implements every command-surface operation.
type Service struct {
	repo      store.Repository
	resolver  *resolver.Resolver
	encryptor *secretbox.Encryptor
	registry  *registry.Registry
	events    runtime.EventSink
	dial      Dialer
	runtime   RuntimeOptions
	log       *slog.Logger

	mu    sync.Mutex
	sftps map[uuid.UUID]transport.SftpHandle
}

// New wires a Service over its collaborators. events is the sink every
// spawned worker reports ssh-output to (typically a websocket hub).
func New(repo store.Repository, res *resolver.Resolver, enc *secretbox.Encryptor, reg *registry.Registry, events runtime.EventSink, dial Dialer, rt RuntimeOptions, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		resolver:  res,
		encryptor: enc,
		registry:  reg,
		events:    events,
		dial:      dial,
		runtime:   rt,
		log:       log,
		sftps:     make(map[uuid.UUID]transport.SftpHandle),
	}
}

func overridesFromFields(password, privateKey, passphrase string) resolver.Overrides {
	return resolver.Overrides{Password: password, PrivateKey: privateKey, Passphrase: passphrase}
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.UUID{}, trace.BadParameter("invalid-uuid: %q is not a valid id", s)
	}
	return id, nil
}

// --- servers ---

func (s *Service) ListServers(ctx context.Context) ([]ServerDTO, error) {
	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	out := make([]ServerDTO, 0, len(servers))
	for _, srv := range servers {
		out = append(out, serverToDTO(srv))
	}
	return out, nil
}

// AddServerRequest mirrors the add_server request fields.
type AddServerRequest struct {
	Name     string
	Host     string
	Port     int
	Username string
	Protocol string
	Tags     []string
}

func (s *Service) AddServer(ctx context.Context, req AddServerRequest) (ServerDTO, error) {
	protocol, err := types.NormalizeProtocol(req.Protocol)
	if err != nil {
		return ServerDTO{}, trace.Wrap(err)
	}
	srv := &types.Server{
		ID:       uuid.New(),
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Protocol: protocol,
		Tags:     req.Tags,
	}
	if err := srv.Validate(); err != nil {
		return ServerDTO{}, trace.Wrap(err)
	}
	now := time.Now()
	srv.CreatedAt, srv.UpdatedAt = now, now
	if err := s.repo.StoreServer(ctx, srv); err != nil {
		return ServerDTO{}, trace.Wrap(err)
	}
	return serverToDTO(srv), nil
}

// UpdateServerRequest mirrors the update_server request fields.
type UpdateServerRequest struct {
	ID       string
	Name     string
	Host     string
	Port     int
	Username string
	Protocol string
	Tags     []string
}

func (s *Service) UpdateServer(ctx context.Context, req UpdateServerRequest) error {
	id, err := parseUUID(req.ID)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetServer(ctx, id)
	if err != nil {
		return trace.Wrap(err)
	}
	if existing == nil {
		return errNotFound("server %s not found", id)
	}
	protocol, err := types.NormalizeProtocol(req.Protocol)
	if err != nil {
		return trace.Wrap(err)
	}
	updated := &types.Server{
		ID:        id,
		Name:      req.Name,
		Host:      req.Host,
		Port:      req.Port,
		Username:  req.Username,
		Protocol:  protocol,
		Tags:      req.Tags,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if err := updated.Validate(); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(s.repo.UpdateServer(ctx, updated))
}

func (s *Service) DeleteServer(ctx context.Context, idStr string) error {
	id, err := parseUUID(idStr)
	if err != nil {
		return err
	}
	return trace.Wrap(s.repo.DeleteServer(ctx, id))
}

// --- secrets ---

func (s *Service) ListSecrets(ctx context.Context) ([]SecretDTO, error) {
	secrets, err := s.repo.ListSecrets(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	out := make([]SecretDTO, 0, len(secrets))
	for _, sec := range secrets {
		out = append(out, secretToDTO(sec))
	}
	return out, nil
}

// AddSecretRequest mirrors the add_secret request fields.
type AddSecretRequest struct {
	Name  string
	Kind  string
	Value string // plaintext; never stored or logged
}

func (s *Service) AddSecret(ctx context.Context, req AddSecretRequest) (SecretDTO, error) {
	kind, err := types.NormalizeSecretKind(req.Kind)
	if err != nil {
		return SecretDTO{}, trace.Wrap(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return SecretDTO{}, trace.BadParameter("secret name must not be empty")
	}
	ciphertext, err := s.encryptor.EncryptString(req.Value)
	if err != nil {
		return SecretDTO{}, trace.Wrap(err)
	}
	sec := &types.Secret{
		ID:         uuid.New(),
		Name:       name,
		Kind:       kind,
		Ciphertext: ciphertext,
	}
	now := time.Now()
	sec.CreatedAt, sec.UpdatedAt = now, now
	if err := s.repo.StoreSecret(ctx, sec); err != nil {
		return SecretDTO{}, trace.Wrap(err)
	}
	return secretToDTO(sec), nil
}

func (s *Service) DeleteSecret(ctx context.Context, idStr string) error {
	id, err := parseUUID(idStr)
	if err != nil {
		return err
	}
	return trace.Wrap(s.repo.DeleteSecret(ctx, id))
}

// --- links ---

func (s *Service) LinkSecretToServer(ctx context.Context, serverIDStr, secretIDStr string, priority int32) error {
	serverID, err := parseUUID(serverIDStr)
	if err != nil {
		return err
	}
	secretID, err := parseUUID(secretIDStr)
	if err != nil {
		return err
	}
	return trace.Wrap(s.repo.Link(ctx, serverID, secretID, priority))
}

func (s *Service) UnlinkSecretFromServer(ctx context.Context, serverIDStr, secretIDStr string) error {
	serverID, err := parseUUID(serverIDStr)
	if err != nil {
		return err
	}
	secretID, err := parseUUID(secretIDStr)
	if err != nil {
		return err
	}
	return trace.Wrap(s.repo.Unlink(ctx, serverID, secretID))
}

// --- sessions ---

// ConnectRequest mirrors the connect_ssh request fields.
type ConnectRequest struct {
	ServerID   string
	Password   string
	PrivateKey string
	Passphrase string
}

func (s *Service) ConnectSSH(ctx context.Context, req ConnectRequest) (SessionDTO, error) {
	serverID, err := parseUUID(req.ServerID)
	if err != nil {
		return SessionDTO{}, err
	}
	srv, err := s.repo.GetServer(ctx, serverID)
	if err != nil {
		return SessionDTO{}, trace.Wrap(err)
	}
	if srv == nil {
		return SessionDTO{}, errNotFound("server %s not found", serverID)
	}

	auth, err := s.resolver.Resolve(ctx, serverID, resolver.Overrides{
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		return SessionDTO{}, trace.Wrap(err)
	}

	session, err := s.dial(ctx, srv.Host, srv.Port, srv.Username, auth)
	if err != nil {
		return SessionDTO{}, trace.Wrap(err)
	}

	sessionID := uuid.New()
	if err := runtime.Spawn(ctx, runtime.Options{
		SessionID:         sessionID,
		ServerID:          serverID,
		Session:           session,
		PTY:               transport.DefaultPTYConfig(),
		ReadTimeout:       s.runtime.ReadTimeout,
		KeepaliveInterval: s.runtime.KeepaliveInterval,
		IdleSleep:         s.runtime.IdleSleep,
		Registry:          s.registry,
		Events:            s.events,
		Log:               s.log,
	}); err != nil {
		session.Close()
		return SessionDTO{}, trace.Wrap(err)
	}

	return SessionDTO{SessionID: sessionID.String(), ServerID: serverID.String(), Connected: true}, nil
}

func (s *Service) DisconnectSSH(ctx context.Context, sessionIDStr string) error {
	sessionID, err := parseUUID(sessionIDStr)
	if err != nil {
		return err
	}
	entry, found := s.registry.Remove(sessionID)
	if !found {
		return errNotFound("session %s not found", sessionID)
	}
	entry.Stop.Store(true)
	entry.Endpoint.Send(runtime.DisconnectInput())
	return nil
}

func (s *Service) SendSSHInput(ctx context.Context, sessionIDStr, input string) error {
	sessionID, err := parseUUID(sessionIDStr)
	if err != nil {
		return err
	}
	found := s.registry.With(sessionID, func(e registry.Entry) {
		e.Endpoint.Send(runtime.DataInput([]byte(input)))
	})
	if !found {
		return errNotFound("session %s not found", sessionID)
	}
	return nil
}

func (s *Service) ResizeTerminal(ctx context.Context, sessionIDStr string, cols, rows int) error {
	sessionID, err := parseUUID(sessionIDStr)
	if err != nil {
		return err
	}
	found := s.registry.With(sessionID, func(e registry.Entry) {
		e.Endpoint.Send(runtime.ResizeInput(cols, rows))
	})
	if !found {
		return errNotFound("session %s not found", sessionID)
	}
	return nil
}

// --- SFTP ---

// OpenSFTP opens the SFTP subsystem on a fresh connection to the
// server and hands back an opaque handle id. Orchestrating transfers
// over the handle stays out of scope; this command only exposes it.
func (s *Service) OpenSFTP(ctx context.Context, serverIDStr string, overrides resolver.Overrides) (SftpHandleDTO, error) {
	serverID, err := parseUUID(serverIDStr)
	if err != nil {
		return SftpHandleDTO{}, err
	}
	srv, err := s.repo.GetServer(ctx, serverID)
	if err != nil {
		return SftpHandleDTO{}, trace.Wrap(err)
	}
	if srv == nil {
		return SftpHandleDTO{}, errNotFound("server %s not found", serverID)
	}

	auth, err := s.resolver.Resolve(ctx, serverID, overrides)
	if err != nil {
		return SftpHandleDTO{}, trace.Wrap(err)
	}
	session, err := s.dial(ctx, srv.Host, srv.Port, srv.Username, auth)
	if err != nil {
		return SftpHandleDTO{}, trace.Wrap(err)
	}
	handle, err := session.SFTP()
	if err != nil {
		session.Close()
		return SftpHandleDTO{}, trace.Wrap(err)
	}

	handleID := uuid.New()
	s.mu.Lock()
	s.sftps[handleID] = handle
	s.mu.Unlock()

	return SftpHandleDTO{HandleID: handleID.String(), ServerID: serverID.String()}, nil
}
