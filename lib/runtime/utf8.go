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

package runtime

import "unicode/utf8"

// splitTrailingIncomplete separates b into the leading bytes that
// decode as complete UTF-8 and a (possibly empty) trailing fragment
// that might be the start of a multi-byte rune split across two PTY
// reads. The worker buffers the fragment and prepends it to the next
// chunk, avoiding the boundary hazard of emitting replacement
// characters for a rune that was merely split across two reads.
func splitTrailingIncomplete(b []byte) (complete, pending []byte) {
	if len(b) == 0 || utf8.Valid(b) {
		return b, nil
	}
	limit := len(b) - 4
	if limit < 0 {
		limit = 0
	}
	for i := len(b) - 1; i >= limit; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 && len(b)-i < utf8.UTFMax {
			if utf8.Valid(b[:i]) {
				return b[:i], b[i:]
			}
		}
		break
	}
	// No recoverable trailing fragment found: the data is genuinely
	// malformed, not just split. Emit it as-is (lossy at this point).
	return b, nil
}
