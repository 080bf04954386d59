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
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestToWireErrorClassifiesDatabaseFailure(t *testing.T) {
	err := trace.Wrap(trace.Errorf("disk full"), "database/storing server")
	wireErr := toWireError(err)
	require.Equal(t, string(CodeDatabaseError), wireErr.Code)
}

func TestToWireErrorClassifiesSessionFailure(t *testing.T) {
	err := trace.Wrap(trace.Errorf("eof"), "session/open-channel")
	wireErr := toWireError(err)
	require.Equal(t, string(CodeSessionError), wireErr.Code)
}

func TestToWireErrorClassifiesNotFound(t *testing.T) {
	wireErr := toWireError(errNotFound("server %s not found", "x"))
	require.Equal(t, string(CodeNotFound), wireErr.Code)
}

func TestToWireErrorNilIsEmpty(t *testing.T) {
	require.Equal(t, Error{}, toWireError(nil))
}
