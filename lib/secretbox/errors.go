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
	"errors"
	"fmt"
)

// Kind enumerates the secret/* error kinds callers can match on.
type Kind string

const (
	KindBadKey   Kind = "secret/bad-key"
	KindCorrupt  Kind = "secret/corrupt"
	KindIO       Kind = "secret/io"
	KindEncoding Kind = "secret/encoding"
)

// Error is a typed secretbox failure. It never carries plaintext.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.msg) }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, msg: msg} }

// Is reports whether err is a *Error of the given kind, so callers can
// branch with errors.Is-style checks without importing this package's
// concrete type.
func Is(err error, kind Kind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
