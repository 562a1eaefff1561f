/*
 * Copyright 2025 Adrien Kara
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package digestauth

import (
	"net/url"

	"github.com/valyala/bytebufferpool"

	"gitlab.com/iglou.eu/goulc/http/utils"
)

// uriMatches implements spec.md §4.4 step 8: unquote a copy of uri (already
// done by digestparse), split at '?', percent-decode the path leniently,
// require byte-equality against the request's real path, then require set
// equality between the parsed query arguments and the request's own. Both
// sides are passed through utils.PathFormatting first, so a trailing slash
// or a missing leading slash a front-end proxy normalised away does not
// turn into a spurious WRONG_URI.
func uriMatches(rawURI string, req Request) bool {
	pathPart, queryPart := splitURI(rawURI)

	buf := scratchPool.Get()
	defer scratchPool.Put(buf)
	buf.Reset()
	lenientPercentDecode(buf, pathPart)
	if utils.PathFormatting(buf.String()) != utils.PathFormatting(req.Path) {
		return false
	}

	got, err := url.ParseQuery(queryPart)
	if err != nil {
		return false
	}
	return queryEqual(got, req.Query)
}

func splitURI(raw string) (path, query string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '?' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}

// lenientPercentDecode appends the percent-decoding of s to buf. A '%' not
// followed by two hex digits is passed through literally rather than
// rejected, per spec.md §4.4's "percent-decode the path (lenient)".
func lenientPercentDecode(buf *bytebufferpool.ByteBuffer, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			if hi, ok := hexNibble(s[i+1]); ok {
				if lo, ok := hexNibble(s[i+2]); ok {
					_ = buf.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		_ = buf.WriteByte(c)
	}
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// queryEqual reports whether a and b carry the same set of values for every
// key, irrespective of order within a key's value list.
func queryEqual(a, b url.Values) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || len(av) != len(bv) {
			return false
		}
		used := make([]bool, len(bv))
		for _, v := range av {
			found := false
			for i, candidate := range bv {
				if !used[i] && candidate == v {
					used[i] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
