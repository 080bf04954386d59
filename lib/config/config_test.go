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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().ListenAddr, cfg.ListenAddr)
	require.Equal(t, 100*time.Millisecond, cfg.ReadTimeout())
	require.Equal(t, 30*time.Second, cfg.KeepaliveInterval())
	require.Equal(t, 10*time.Millisecond, cfg.IdleSleep())
}

func TestLoadOverlaysFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tacoshell.toml")
	contents := `
listen_addr = "0.0.0.0:9000"
log_level = "debug"
keyring_backend = "file"
read_timeout_ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 250*time.Millisecond, cfg.ReadTimeout())
	// Untouched fields keep their default.
	require.Equal(t, 30*time.Second, cfg.KeepaliveInterval())

	backends, err := cfg.AllowedBackends()
	require.NoError(t, err)
	require.Equal(t, []keyring.BackendType{keyring.FileBackend}, backends)
}

func TestUnknownKeyringBackendRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tacoshell.toml")
	require.NoError(t, os.WriteFile(path, []byte(`keyring_backend = "bogus"`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestAutoBackendMeansNoAllowList(t *testing.T) {
	cfg := Defaults()
	backends, err := cfg.AllowedBackends()
	require.NoError(t, err)
	require.Nil(t, backends)
}
