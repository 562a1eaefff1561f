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

// Package digestauth is the validator (C4) and challenge builder (C5) of
// the Digest Authentication engine: it orchestrates digestnonce and
// digestparse, recomputes the expected response with digesthash, and
// exposes the four library entry points applications embed against.
package digestauth

import (
	"log/slog"
	"time"

	"github.com/valyala/bytebufferpool"

	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
	"gitlab.com/iglou.eu/goulc/http/server/digestnonce"
)

// AlgoMask is a bitmask of enabled hash algorithms.
type AlgoMask uint8

const (
	AlgoMaskMD5       AlgoMask = 1 << iota // MD5
	AlgoMaskSHA256                         // SHA-256
	AlgoMaskSHA512256                      // SHA-512/256
)

// AllAlgos enables every algorithm this engine supports.
const AllAlgos = AlgoMaskMD5 | AlgoMaskSHA256 | AlgoMaskSHA512256

// Has reports whether algo is set in the mask.
func (m AlgoMask) Has(algo digesthash.AlgoID) bool {
	switch algo {
	case digesthash.MD5:
		return m&AlgoMaskMD5 != 0
	case digesthash.SHA256:
		return m&AlgoMaskSHA256 != 0
	case digesthash.SHA512256:
		return m&AlgoMaskSHA512256 != 0
	default:
		return false
	}
}

// QOPMask is a bitmask of enabled quality-of-protection modes.
type QOPMask uint8

const (
	QOPMaskNone    QOPMask = 1 << iota // no qop, RFC 2069 style
	QOPMaskAuth                        // qop=auth
	QOPMaskAuthInt                     // qop=auth-int, never succeeds a check
)

// DigestConfig holds the immutable, validated-once settings an Engine is
// built from, per spec.md §6's "Environment and configuration".
type DigestConfig struct {
	// NoncesNum is the nonce table size. Must be >= 1.
	NoncesNum int
	// NonceTimeout is how long an issued nonce remains valid. Must be > 0.
	NonceTimeout time.Duration
	// DefMaxNC is the default nc ceiling used when a caller passes 0 to
	// CheckPassword/CheckDigest. Must be > 0.
	DefMaxNC uint32
	// Entropy is the daemon's seed material. Must be at least 32 bytes;
	// New rejects a shorter seed with ErrInvalidEntropy. Copied and never
	// mutated.
	Entropy []byte
	// Logger is handed to the nonce table, which logs at debug level when
	// a freshly generated nonce has to be regenerated or cannot be placed.
	// The Engine itself logs nothing. Never logs passwords or digests.
	// Defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// Engine is the validator and challenge builder: the public surface this
// package exposes to an embedding HTTP server (spec.md §6).
type Engine struct {
	nonces   *digestnonce.Store
	defMaxNC uint32
	logger   *slog.Logger
	counters counters
}

// New validates cfg and builds an Engine. The returned Engine owns its
// nonce table and is safe for concurrent use by multiple request
// goroutines, the way http/client/client.New returns a ready-to-use value.
func New(cfg DigestConfig) (*Engine, error) {
	if cfg.NoncesNum < 1 {
		return nil, ErrInvalidTableSize
	}
	if cfg.NonceTimeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if cfg.DefMaxNC == 0 {
		return nil, ErrInvalidMaxNC
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := digestnonce.New(cfg.NoncesNum, cfg.NonceTimeout, cfg.Entropy, logger)
	if err != nil {
		return nil, mapNonceConfigError(err)
	}

	return &Engine{
		nonces:   store,
		defMaxNC: cfg.DefMaxNC,
		logger:   logger,
	}, nil
}

func mapNonceConfigError(err error) error {
	switch err {
	case digestnonce.ErrShortEntropy:
		return ErrInvalidEntropy
	case digestnonce.ErrInvalidSize:
		return ErrInvalidTableSize
	case digestnonce.ErrInvalidTimeout:
		return ErrInvalidTimeout
	default:
		return err
	}
}

// scratchPool backs the "small in-stack buffer… falling back to a single
// retained heap buffer grown on demand and freed once per call" scratch
// requirement of spec.md §4.4, for unquoting and URI/query decoding.
var scratchPool bytebufferpool.Pool
