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

package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dodoflix/tacoshell/lib/store/storetest"
)

func TestSqliteStoreContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tacoshell.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	storetest.RunContract(t, s)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tacoshell.db")
	s1, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()
}
