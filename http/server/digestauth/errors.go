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

import "errors"

var (
	// ErrNoRealm is returned when AddChallenge is called with an empty realm.
	ErrNoRealm = errors.New("digestauth: you must provide a realm parameter")
	// ErrRealmControlChars is returned when realm, opaque, or a domain
	// token contains a CR or LF byte.
	ErrRealmControlChars = errors.New("digestauth: realm, opaque and domain must not contain CR or LF")
	// ErrDomainQuote is returned when a domain token contains a double
	// quote character.
	ErrDomainQuote = errors.New("digestauth: domain must not contain a double quote")
	// ErrDomainInvalid is returned when a domain token is not a parseable
	// URI reference.
	ErrDomainInvalid = errors.New("digestauth: domain token is not a valid URI reference")
	// ErrNoAlgo is returned when AddChallenge is called with a mask
	// containing no non-session algorithm.
	ErrNoAlgo = errors.New("digestauth: at least one algorithm must be enabled")
	// ErrNoUsableQOP is returned when neither QOPMaskNone nor
	// QOPMaskAuth is enabled in the mask passed to AddChallenge.
	ErrNoUsableQOP = errors.New("digestauth: at least one of qop=none or qop=auth must be enabled")

	// ErrInvalidEntropy is returned by New when the supplied entropy is
	// too short; New returns it in place of digestnonce.ErrShortEntropy for
	// callers of this package who never import digestnonce directly.
	ErrInvalidEntropy = errors.New("digestauth: entropy seed should be at least 32 bytes")
	// ErrInvalidTableSize is returned by New when NoncesNum < 1.
	ErrInvalidTableSize = errors.New("digestauth: nonces table size must be >= 1")
	// ErrInvalidTimeout is returned by New when NonceTimeout <= 0.
	ErrInvalidTimeout = errors.New("digestauth: nonce timeout must be > 0")
	// ErrInvalidMaxNC is returned by New when DefMaxNC is 0.
	ErrInvalidMaxNC = errors.New("digestauth: default max nc must be > 0")
)
