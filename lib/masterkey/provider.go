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

// Package masterkey implements the boot-time master-key procedure:
// obtain the 32-byte secret that seeds the Encryptor from the OS
// secret store, generating it on first launch, and falling back to a
// sentinel file when the store is unreachable.
package masterkey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/99designs/keyring"
	"github.com/gravitational/trace"
)

const (
	serviceName   = "tacoshell"
	accountName   = "master-key"
	sentinelFile  = ".master_key"
	keyLengthHex  = 64 // 32 bytes, hex-encoded
	keyLengthBits = 32
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// OpenKeyring is the subset of the 99designs/keyring API the provider
// needs; it is a var so tests can substitute a fake ring without
// touching the real OS secret store.
var OpenKeyring = func(cfg keyring.Config) (keyringRing, error) {
	return keyring.Open(cfg)
}

type keyringRing interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
}

// Provider obtains the process-lifetime master key. It does not cache
// the key: every Obtain call runs the procedure again.
type Provider struct {
	log      *slog.Logger
	dataDir  string
	backends []keyring.BackendType
}

// New builds a Provider. dataDir is the per-user tacoshell data
// directory, used only for the fallback sentinel file.
func New(log *slog.Logger, dataDir string) *Provider {
	return &Provider{log: log, dataDir: dataDir}
}

// WithBackends restricts which 99designs/keyring backends Obtain will
// probe, per lib/config's keyring_backend setting. An empty list (the
// default from New) lets the library probe every backend it supports
// on the current OS.
func (p *Provider) WithBackends(backends []keyring.BackendType) *Provider {
	p.backends = backends
	return p
}

// Obtain runs the obtain-or-generate procedure and returns the
// 64-character lowercase-hex master key.
func (p *Provider) Obtain() (string, error) {
	ring, err := OpenKeyring(keyring.Config{ServiceName: serviceName, AllowedBackends: p.backends})
	if err != nil {
		p.log.Warn("OS secret store unreachable, using fallback sentinel file", "error", err)
		return p.fallback()
	}

	item, err := ring.Get(accountName)
	switch {
	case err == nil:
		key := string(item.Data)
		if !hexKeyPattern.MatchString(key) {
			return "", trace.BadParameter("master key entry in secret store is malformed")
		}
		return key, nil

	case errors.Is(err, keyring.ErrKeyNotFound):
		key, genErr := generateHexKey()
		if genErr != nil {
			return "", trace.Wrap(genErr, "generating master key")
		}
		if setErr := ring.Set(keyring.Item{Key: accountName, Data: []byte(key)}); setErr != nil {
			p.log.Warn("failed to persist master key to secret store, using fallback sentinel file", "error", setErr)
			return p.fallback()
		}
		return key, nil

	default:
		p.log.Warn("OS secret store read failed, using fallback sentinel file", "error", err)
		return p.fallback()
	}
}

func (p *Provider) fallback() (string, error) {
	path := filepath.Join(p.dataDir, sentinelFile)

	if data, err := os.ReadFile(path); err == nil {
		candidate := strings.TrimSpace(string(data))
		if hexKeyPattern.MatchString(candidate) {
			return candidate, nil
		}
	}

	key, err := generateHexKey()
	if err != nil {
		return "", trace.Wrap(err, "generating fallback master key")
	}
	if err := os.MkdirAll(p.dataDir, 0o700); err != nil {
		return "", trace.Wrap(err, "creating data directory")
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return "", trace.Wrap(err, "writing fallback sentinel file")
	}
	return key, nil
}

func generateHexKey() (string, error) {
	buf := make([]byte, keyLengthBits)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
