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

// Package sqlite is the embedded-relational-store Repository
// substrate: any durable relational substrate with per-write
// durability satisfies the contract. Schema migrations are tracked in
// a schema_version table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dodoflix/tacoshell/lib/store"
	"github.com/dodoflix/tacoshell/lib/types"
)

const driverName = "sqlite3"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);`,
	`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		username TEXT NOT NULL,
		protocol TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS secrets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		ciphertext BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS server_secrets (
		server_id TEXT NOT NULL,
		secret_id TEXT NOT NULL,
		priority INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		PRIMARY KEY (server_id, secret_id)
	);`,
}

// Store is a *sql.DB-backed Repository. A single writer mutex
// serializes writes; sqlite's own internal locking already does this,
// but the mutex keeps the contract explicit and uniform with the
// memory substrate.
type Store struct {
	db     *sql.DB
	log    *slog.Logger
	wmu    sync.Mutex
	seqCtr int64
}

var _ store.Repository = (*Store)(nil)

// wrapDB tags a database failure so the command surface's error
// classifier can map it to the stable DATABASE_ERROR wire code.
func wrapDB(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return trace.Wrap(err, "database/"+fmt.Sprintf(format, args...))
}

// Open opens (creating if absent) a sqlite database at path and runs
// pending migrations.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open(driverName, path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, wrapDB(err, "opening sqlite database")
	}
	db.SetMaxOpenConns(1) // go-sqlite3 is not safe for concurrent writers across connections
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, trace.Wrap(err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var version int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM sqlite_master WHERE type='table' AND name='schema_version'`)
	_ = row // existence check is via CREATE TABLE IF NOT EXISTS below; version tracked separately
	if _, err := s.db.Exec(migrations[0]); err != nil {
		return wrapDB(err, "applying schema_version migration")
	}
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`).Scan(&version); err != nil {
		return wrapDB(err, "reading schema version")
	}
	for i := version + 1; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return wrapDB(err, "applying migration %d", i)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version(version) VALUES (?)`, i); err != nil {
			return wrapDB(err, "recording migration %d", i)
		}
	}
	if s.log != nil {
		s.log.Debug("sqlite schema up to date", "version", len(migrations)-1)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += "\x1f"
		}
		out += t
	}
	return out
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range raw {
		if r == '\x1f' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

// --- servers ---

func (s *Store) StoreServer(ctx context.Context, srv *types.Server) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO servers(id, name, host, port, username, protocol, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		srv.ID.String(), srv.Name, srv.Host, srv.Port, srv.Username, string(srv.Protocol),
		joinTags(srv.Tags), srv.CreatedAt.Unix(), srv.UpdatedAt.Unix())
	if err != nil {
		return wrapDB(err, "storing server")
	}
	return nil
}

func scanServer(row interface{ Scan(...any) error }) (*types.Server, error) {
	var (
		id, name, host, username, protocol, tags string
		port                                     int
		createdAt, updatedAt                     int64
	)
	if err := row.Scan(&id, &name, &host, &port, &username, &protocol, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, wrapDB(err, "corrupt server id")
	}
	return &types.Server{
		ID:        uid,
		Name:      name,
		Host:      host,
		Port:      port,
		Username:  username,
		Protocol:  types.Protocol(protocol),
		Tags:      splitTags(tags),
		CreatedAt: timeUnix(createdAt),
		UpdatedAt: timeUnix(updatedAt),
	}, nil
}

func (s *Store) GetServer(ctx context.Context, id uuid.UUID) (*types.Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, host, port, username, protocol, tags, created_at, updated_at
		FROM servers WHERE id = ?`, id.String())
	srv, err := scanServer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDB(err, "reading server")
	}
	return srv, nil
}

func (s *Store) ListServers(ctx context.Context) ([]*types.Server, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, host, port, username, protocol, tags, created_at, updated_at
		FROM servers ORDER BY name ASC`)
	if err != nil {
		return nil, wrapDB(err, "listing servers")
	}
	defer rows.Close()
	var out []*types.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, wrapDB(err, "scanning server row")
		}
		out = append(out, srv)
	}
	return out, wrapDB(rows.Err(), "iterating rows")
}

func (s *Store) UpdateServer(ctx context.Context, srv *types.Server) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE servers SET name=?, host=?, port=?, username=?, protocol=?, tags=?, updated_at=?
		WHERE id=?`,
		srv.Name, srv.Host, srv.Port, srv.Username, string(srv.Protocol), joinTags(srv.Tags), srv.UpdatedAt.Unix(), srv.ID.String())
	if err != nil {
		return wrapDB(err, "updating server")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return trace.NotFound("server %s not found", srv.ID)
	}
	return nil
}

func (s *Store) DeleteServer(ctx context.Context, id uuid.UUID) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB(err, "beginning transaction")
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM servers WHERE id=?`, id.String()); err != nil {
		return wrapDB(err, "deleting server")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM server_secrets WHERE server_id=?`, id.String()); err != nil {
		return wrapDB(err, "cascading server links")
	}
	return wrapDB(tx.Commit(), "committing transaction")
}

// --- secrets ---

func (s *Store) StoreSecret(ctx context.Context, sec *types.Secret) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO secrets(id, name, kind, username, ciphertext, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sec.ID.String(), sec.Name, string(sec.Kind), sec.Username, sec.Ciphertext, sec.CreatedAt.Unix(), sec.UpdatedAt.Unix())
	if err != nil {
		return wrapDB(err, "storing secret")
	}
	return nil
}

func scanSecret(row interface{ Scan(...any) error }) (*types.Secret, error) {
	var (
		id, name, kind, username string
		ciphertext               []byte
		createdAt, updatedAt     int64
	)
	if err := row.Scan(&id, &name, &kind, &username, &ciphertext, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, wrapDB(err, "corrupt secret id")
	}
	return &types.Secret{
		ID:         uid,
		Name:       name,
		Kind:       types.SecretKind(kind),
		Username:   username,
		Ciphertext: ciphertext,
		CreatedAt:  timeUnix(createdAt),
		UpdatedAt:  timeUnix(updatedAt),
	}, nil
}

func (s *Store) GetSecret(ctx context.Context, id uuid.UUID) (*types.Secret, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, kind, username, ciphertext, created_at, updated_at
		FROM secrets WHERE id = ?`, id.String())
	sec, err := scanSecret(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDB(err, "reading secret")
	}
	return sec, nil
}

func (s *Store) ListSecrets(ctx context.Context) ([]*types.Secret, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, kind, username, ciphertext, created_at, updated_at
		FROM secrets ORDER BY name ASC`)
	if err != nil {
		return nil, wrapDB(err, "listing secrets")
	}
	defer rows.Close()
	var out []*types.Secret
	for rows.Next() {
		sec, err := scanSecret(rows)
		if err != nil {
			return nil, wrapDB(err, "scanning secret row")
		}
		out = append(out, sec)
	}
	return out, wrapDB(rows.Err(), "iterating rows")
}

func (s *Store) UpdateSecret(ctx context.Context, sec *types.Secret) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE secrets SET name=?, kind=?, username=?, ciphertext=?, updated_at=? WHERE id=?`,
		sec.Name, string(sec.Kind), sec.Username, sec.Ciphertext, sec.UpdatedAt.Unix(), sec.ID.String())
	if err != nil {
		return wrapDB(err, "updating secret")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return trace.NotFound("secret %s not found", sec.ID)
	}
	return nil
}

func (s *Store) DeleteSecret(ctx context.Context, id uuid.UUID) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB(err, "beginning transaction")
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE id=?`, id.String()); err != nil {
		return wrapDB(err, "deleting secret")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM server_secrets WHERE secret_id=?`, id.String()); err != nil {
		return wrapDB(err, "cascading secret links")
	}
	return wrapDB(tx.Commit(), "committing transaction")
}

// --- links ---

func (s *Store) Link(ctx context.Context, serverID, secretID uuid.UUID, priority int32) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.seqCtr++
	_, err := s.db.ExecContext(ctx, `INSERT INTO server_secrets(server_id, secret_id, priority, seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(server_id, secret_id) DO UPDATE SET priority=excluded.priority`,
		serverID.String(), secretID.String(), priority, s.seqCtr)
	if err != nil {
		return wrapDB(err, "linking server and secret")
	}
	return nil
}

func (s *Store) Unlink(ctx context.Context, serverID, secretID uuid.UUID) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM server_secrets WHERE server_id=? AND secret_id=?`,
		serverID.String(), secretID.String())
	return wrapDB(err, "unlinking server and secret")
}

func (s *Store) SecretsFor(ctx context.Context, serverID uuid.UUID) ([]*types.Secret, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.name, s.kind, s.username, s.ciphertext, s.created_at, s.updated_at, l.priority, l.seq
		FROM server_secrets l JOIN secrets s ON s.id = l.secret_id
		WHERE l.server_id = ?`, serverID.String())
	if err != nil {
		return nil, wrapDB(err, "listing linked secrets")
	}
	defer rows.Close()

	type row struct {
		sec      *types.Secret
		priority int32
		seq      int64
	}
	var rs []row
	for rows.Next() {
		var (
			id, name, kind, username string
			ciphertext               []byte
			createdAt, updatedAt     int64
			priority                 int32
			seq                      int64
		)
		if err := rows.Scan(&id, &name, &kind, &username, &ciphertext, &createdAt, &updatedAt, &priority, &seq); err != nil {
			return nil, wrapDB(err, "scanning linked secret row")
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, wrapDB(err, "corrupt secret id")
		}
		rs = append(rs, row{
			sec: &types.Secret{
				ID: uid, Name: name, Kind: types.SecretKind(kind), Username: username,
				Ciphertext: ciphertext, CreatedAt: timeUnix(createdAt), UpdatedAt: timeUnix(updatedAt),
			},
			priority: priority, seq: seq,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err, "iterating linked secret rows")
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].priority != rs[j].priority {
			return rs[i].priority < rs[j].priority
		}
		return rs[i].seq < rs[j].seq
	})
	out := make([]*types.Secret, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.sec)
	}
	return out, nil
}
