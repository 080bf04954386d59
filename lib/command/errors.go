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

package command

import (
	"strings"

	"github.com/gravitational/trace"

	"github.com/dodoflix/tacoshell/lib/secretbox"
)

// Code is one of the stable wire error codes the command surface returns.
type Code string

const (
	CodeConnectionError    Code = "CONNECTION_ERROR"
	CodeAuthFailed         Code = "AUTH_FAILED"
	CodeSessionError       Code = "SESSION_ERROR"
	CodeDatabaseError      Code = "DATABASE_ERROR"
	CodeSecretError        Code = "SECRET_ERROR"
	CodeInvalidUUID        Code = "INVALID_UUID"
	CodeNotFound           Code = "NOT_FOUND"
	CodeDecodeError        Code = "DECODE_ERROR"
	CodeUnsupportedSecret  Code = "UNSUPPORTED_SECRET"
)

// Error is the wire shape of a failed response's err field.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// toWireError classifies err into the stable wire error taxonomy. This
// is the single place a bare Go error becomes a stable wire code —
// nothing upstream of the command surface returns a wire error type.
func toWireError(err error) Error {
	if err == nil {
		return Error{}
	}

	msg := trace.UserMessage(err)

	switch {
	case strings.Contains(msg, "auth/unsupported-kind"):
		return Error{Message: msg, Code: string(CodeUnsupportedSecret)}
	case strings.Contains(msg, "auth/decode"):
		return Error{Message: msg, Code: string(CodeDecodeError)}
	case strings.Contains(msg, "invalid-uuid"):
		return Error{Message: msg, Code: string(CodeInvalidUUID)}
	case strings.Contains(msg, "database/"):
		return Error{Message: msg, Code: string(CodeDatabaseError)}
	case strings.Contains(msg, "session/"):
		return Error{Message: msg, Code: string(CodeSessionError)}
	}

	if secretbox.Is(err, secretbox.KindBadKey) || secretbox.Is(err, secretbox.KindCorrupt) ||
		secretbox.Is(err, secretbox.KindEncoding) || secretbox.Is(err, secretbox.KindIO) {
		return Error{Message: "secret operation failed", Code: string(CodeSecretError)}
	}

	switch {
	case trace.IsNotFound(err):
		return Error{Message: msg, Code: string(CodeNotFound)}
	case trace.IsAccessDenied(err):
		return Error{Message: msg, Code: string(CodeAuthFailed)}
	case trace.IsConnectionProblem(err):
		return Error{Message: msg, Code: string(CodeConnectionError)}
	case trace.IsBadParameter(err):
		return Error{Message: msg}
	}

	return Error{Message: msg}
}

// errNotFound is returned by lookups for an id the repository or
// registry doesn't have; callers map it through toWireError to NOT_FOUND.
func errNotFound(format string, args ...any) error {
	return trace.NotFound(format, args...)
}
