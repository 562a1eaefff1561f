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
	"strings"
)

// digestScheme is the Authorization scheme prefix this engine recognises.
const digestScheme = "Digest "

// Request is everything the validator needs from an incoming HTTP request.
// It has no dependency on any particular server framework; fiberdigest (or
// any other adapter) builds one of these from its own request type.
type Request struct {
	// Method is the HTTP method, e.g. "GET".
	Method string
	// Path is the request's real decoded path, as known by the host
	// framework — not reparsed from the Digest "uri" parameter.
	Path string
	// Query is the request's actual GET arguments, as known by the host
	// framework.
	Query url.Values
	// AuthHeader is the raw value of the incoming Authorization header,
	// including the "Digest " scheme prefix.
	AuthHeader string
	// RemoteAddr is the client's address as known by the host framework.
	// The validator never reads it; AddChallenge takes the address to fold
	// into a fresh nonce as its own addr argument.
	RemoteAddr string
}

// credentials strips the "Digest " scheme prefix, case-insensitively, and
// trims the leading whitespace the grammar allows before the first
// parameter. It reports false when the header is absent or names a
// different scheme, which the caller maps to HEADER_MISSING.
func (r Request) credentials() (string, bool) {
	if len(r.AuthHeader) < len(digestScheme) {
		return "", false
	}
	if !strings.EqualFold(r.AuthHeader[:len(digestScheme)], digestScheme) {
		return "", false
	}
	return strings.TrimLeft(r.AuthHeader[len(digestScheme):], " \t"), true
}
