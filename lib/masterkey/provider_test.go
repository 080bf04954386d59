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

package masterkey

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRing struct {
	items   map[string]keyring.Item
	getErr  error
	setErr  error
}

func (f *fakeRing) Get(key string) (keyring.Item, error) {
	if f.getErr != nil {
		return keyring.Item{}, f.getErr
	}
	item, ok := f.items[key]
	if !ok {
		return keyring.Item{}, keyring.ErrKeyNotFound
	}
	return item, nil
}

func (f *fakeRing) Set(item keyring.Item) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.items == nil {
		f.items = map[string]keyring.Item{}
	}
	f.items[item.Key] = item
	return nil
}

func withRing(t *testing.T, ring keyringRing) {
	t.Helper()
	orig := OpenKeyring
	OpenKeyring = func(keyring.Config) (keyringRing, error) { return ring, nil }
	t.Cleanup(func() { OpenKeyring = orig })
}

func TestObtainGeneratesAndPersistsOnFirstLaunch(t *testing.T) {
	ring := &fakeRing{}
	withRing(t, ring)

	p := New(discardLogger(), t.TempDir())
	key, err := p.Obtain()
	require.NoError(t, err)
	require.Len(t, key, 64)

	item, err := ring.Get(accountName)
	require.NoError(t, err)
	require.Equal(t, key, string(item.Data))
}

func TestObtainReusesExistingEntry(t *testing.T) {
	ring := &fakeRing{items: map[string]keyring.Item{
		accountName: {Key: accountName, Data: []byte("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")},
	}}
	withRing(t, ring)

	p := New(discardLogger(), t.TempDir())
	key, err := p.Obtain()
	require.NoError(t, err)
	require.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", key)
}

func TestObtainFallsBackWhenStoreUnreachable(t *testing.T) {
	orig := OpenKeyring
	OpenKeyring = func(keyring.Config) (keyringRing, error) { return nil, os.ErrPermission }
	defer func() { OpenKeyring = orig }()

	dir := t.TempDir()
	p := New(discardLogger(), dir)
	key, err := p.Obtain()
	require.NoError(t, err)
	require.Len(t, key, 64)

	data, err := os.ReadFile(filepath.Join(dir, sentinelFile))
	require.NoError(t, err)
	require.Equal(t, key, string(data))

	info, err := os.Stat(filepath.Join(dir, sentinelFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestObtainFallbackReusesSentinelFile(t *testing.T) {
	orig := OpenKeyring
	OpenKeyring = func(keyring.Config) (keyringRing, error) { return nil, os.ErrPermission }
	defer func() { OpenKeyring = orig }()

	dir := t.TempDir()
	p := New(discardLogger(), dir)
	first, err := p.Obtain()
	require.NoError(t, err)

	second, err := p.Obtain()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
