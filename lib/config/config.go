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

// Package config loads the operator-tunable settings that sit below
// the command surface: where data lives, what the command surface
// binds to, how verbose logging is, which OS secret store backends are
// allowed, and the three session-runtime timing constants.
// None of these are exposed to the UI; they exist for an operator
// running tacoshell in an unusual environment (headless, CI, a locked
// down keychain) to override without a UI control.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
	"github.com/BurntSushi/toml"
	"github.com/gravitational/trace"
)

// Config is the fully-resolved, post-default application configuration.
type Config struct {
	DataDir         string `toml:"data_dir"`
	ListenAddr      string `toml:"listen_addr"`
	LogLevel        string `toml:"log_level"`
	KeyringBackend  string `toml:"keyring_backend"`
	ReadTimeoutMS   int    `toml:"read_timeout_ms"`
	KeepaliveSecs   int    `toml:"keepalive_interval_s"`
	IdleSleepMS     int    `toml:"idle_sleep_ms"`
}

// ReadTimeout, KeepaliveInterval and IdleSleep convert the millisecond
// and second fields above into the time.Duration values the runtime
// package expects.
func (c Config) ReadTimeout() time.Duration      { return time.Duration(c.ReadTimeoutMS) * time.Millisecond }
func (c Config) KeepaliveInterval() time.Duration { return time.Duration(c.KeepaliveSecs) * time.Second }
func (c Config) IdleSleep() time.Duration        { return time.Duration(c.IdleSleepMS) * time.Millisecond }

// keyringBackendAllowList maps the config's keyring_backend string onto
// the 99designs/keyring backend types it permits. "auto" (the default)
// returns nil, meaning "let the library probe everything it supports
// on this OS".
var keyringBackendAllowList = map[string][]keyring.BackendType{
	"auto":          nil,
	"keychain":      {keyring.KeychainBackend},
	"secret-service": {keyring.SecretServiceBackend},
	"wincred":       {keyring.WinCredBackend},
	"file":          {keyring.FileBackend},
}

// AllowedBackends resolves KeyringBackend to the list masterkey.Provider.WithBackends expects.
func (c Config) AllowedBackends() ([]keyring.BackendType, error) {
	backends, ok := keyringBackendAllowList[c.KeyringBackend]
	if !ok {
		return nil, trace.BadParameter("unknown keyring_backend %q", c.KeyringBackend)
	}
	return backends, nil
}

// Defaults returns a Config with every field set to its documented
// default, before a config file is applied.
func Defaults() Config {
	dataDir, err := defaultDataDir()
	if err != nil {
		dataDir = ".tacoshell"
	}
	return Config{
		DataDir:        dataDir,
		ListenAddr:     "127.0.0.1:7447",
		LogLevel:       "info",
		KeyringBackend: "auto",
		ReadTimeoutMS:  100,
		KeepaliveSecs:  30,
		IdleSleepMS:    10,
	}
}

func defaultDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", trace.Wrap(err)
	}
	return filepath.Join(dir, "tacoshell"), nil
}

// Load starts from Defaults, then overlays path's contents if it
// exists. An empty path means tacoshell.toml in the per-user config
// directory. A missing file is not an error — it means "use the
// defaults", matching how most CLI tools in this ecosystem treat an
// absent config file.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "tacoshell.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, trace.Wrap(err, "decoding config file %s", path)
	}
	if _, err := cfg.AllowedBackends(); err != nil {
		return Config{}, trace.Wrap(err)
	}
	return cfg, nil
}
