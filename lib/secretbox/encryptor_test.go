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

package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := New("correct horse battery staple")
	ct, err := e.Encrypt([]byte("hello"))
	require.NoError(t, err)

	pt, err := e.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "hello", string(pt))
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	e := New("k1")
	ct1, err := e.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	ct2, err := e.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	require.NotEqual(t, ct1, ct2)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	ct, err := New("k1").Encrypt([]byte("hello"))
	require.NoError(t, err)

	_, err = New("k2").Decrypt(ct)
	require.Error(t, err)
	require.False(t, strings.Contains(err.Error(), "hello"), "error must not leak plaintext")
}

func TestDecryptCorruptBlobFails(t *testing.T) {
	ct, err := New("k1").Encrypt([]byte("hello"))
	require.NoError(t, err)

	truncated := ct[:len(ct)/2]
	_, err = New("k1").Decrypt(truncated)
	require.Error(t, err)
}

func TestStringWrappersRoundTrip(t *testing.T) {
	e := New("pw")
	ct, err := e.EncryptString("s3cret")
	require.NoError(t, err)

	pt, err := e.DecryptString(ct)
	require.NoError(t, err)
	require.Equal(t, "s3cret", pt)
}

func TestDecryptStringRejectsNonUTF8(t *testing.T) {
	e := New("pw")
	ct, err := e.Encrypt([]byte{0xff, 0xfe, 0xfd})
	require.NoError(t, err)

	_, err = e.DecryptString(ct)
	require.Error(t, err)
	require.True(t, Is(err, KindEncoding))
}
