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
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
	"gitlab.com/iglou.eu/goulc/http/server/digestnonce"
	"gitlab.com/iglou.eu/goulc/http/server/digestparse"
)

// maxNonceLen is spec.md §4.4 step 3's structural ceiling on the nonce
// parameter.
const maxNonceLen = 144

// credential is exactly one of a cleartext password or a precomputed
// H(A1)-equivalent digest, the "(password | user_digest)" of spec.md §4.4.
type credential struct {
	password   *string
	userDigest []byte
}

// CheckPassword validates req against realm/username/password, per
// spec.md §6's check_password entry point. maxNC of 0 falls back to the
// Engine's configured DefMaxNC.
func (e *Engine) CheckPassword(req Request, realm, username, password string, maxNC uint32, qopMask QOPMask, algoMask AlgoMask) Outcome {
	return e.check(req, realm, username, credential{password: &password}, maxNC, qopMask, algoMask)
}

// CheckDigest validates req against realm/username/userDigest, per
// spec.md §6's check_digest entry point. userDigest must be exactly the
// digest size of the client's chosen algorithm; a mismatch can never
// produce a correct response and is reported as RESPONSE_WRONG.
func (e *Engine) CheckDigest(req Request, realm, username string, userDigest []byte, maxNC uint32, qopMask QOPMask, algoMask AlgoMask) Outcome {
	return e.check(req, realm, username, credential{userDigest: userDigest}, maxNC, qopMask, algoMask)
}

func (e *Engine) check(req Request, realm, username string, cred credential, maxNC uint32, qopMask QOPMask, algoMask AlgoMask) Outcome {
	outcome := e.checkUnrecorded(req, realm, username, cred, maxNC, qopMask, algoMask)
	e.counters.record(outcome)
	return outcome
}

func (e *Engine) checkUnrecorded(req Request, realm, username string, cred credential, maxNC uint32, qopMask QOPMask, algoMask AlgoMask) Outcome {
	raw, ok := req.credentials()
	if !ok {
		return HeaderMissing
	}

	rec, err := digestparse.Parse(raw)
	if err != nil {
		if err == digestparse.ErrTooLarge {
			return TooLarge
		}
		return HeaderBroken
	}

	// 1. Algorithm policy.
	if rec.Algo == digestparse.AlgoInvalid || rec.Algo.IsSess() {
		return UnsupportedAlgo
	}
	algo, _ := rec.Algo.Base()
	if !algoMask.Has(algo) {
		return WrongAlgo
	}

	// 2. QOP policy.
	if rec.QOP == digestparse.QOPInvalid || rec.QOP == digestparse.QOPAuthInt {
		return UnsupportedQOP
	}
	if !qopMask.hasParsed(rec.QOP) {
		return WrongQOP
	}

	// 3. Structural presence.
	switch rec.UsernameType {
	case digestparse.UsernameStandard, digestparse.UsernameUserhash, digestparse.UsernameExtended:
	default:
		return HeaderBroken
	}
	if rec.Get("realm") == "" || rec.Get("nonce") == "" || rec.Get("uri") == "" || rec.Get("response") == "" {
		return HeaderBroken
	}
	if len(rec.Get("nonce")) > maxNonceLen {
		return HeaderBroken
	}
	digestSize, _ := digesthash.DigestSize(algo)
	if len(rec.Get("response")) > 4*digestSize {
		return HeaderBroken
	}

	ncValue, ok := extractNC(rec)
	if !ok {
		return HeaderBroken
	}

	// 4. Realm match.
	if rec.Get("realm") != realm {
		return WrongRealm
	}

	// 5. Username match.
	if !usernameMatches(rec, algo, username, realm) {
		return WrongUsername
	}

	// 6. nc range. An nc beyond the configured ceiling is treated like an
	// exhausted nonce session: the caller gets a fresh challenge rather
	// than a flat rejection.
	ceiling := maxNC
	if ceiling == 0 {
		ceiling = e.defMaxNC
	}
	if ncValue > ceiling {
		return NonceStale
	}

	// 7. Nonce/nc uniqueness.
	switch e.nonces.Check(rec.Get("nonce"), ncValue, time.Now().Unix()) {
	case digestnonce.Wrong:
		return NonceWrong
	case digestnonce.Stale:
		return NonceStale
	}

	// 8. URI match.
	if !uriMatches(rec.Get("uri"), req) {
		return WrongURI
	}

	// 9. Response recomputation.
	ha1, ok := computeHA1(algo, username, realm, cred)
	if !ok {
		return ResponseWrong
	}
	ha2 := computeHA2(algo, req.Method, rec.Get("uri"))
	expected := computeResponse(algo, ha1, rec, ha2)

	got, err := hex.DecodeString(rec.Get("response"))
	if err != nil || len(got) != digestSize {
		return ResponseWrong
	}
	if subtle.ConstantTimeCompare(expected, got) != 1 {
		return ResponseWrong
	}

	return OK
}

// extractNC applies spec.md §4.3's nc requirement: mandatory and
// well-formed whenever qop != NONE; optional but still well-formed if
// present when qop == NONE. A qop=NONE request that omits nc entirely
// (an RFC 2069-style client) is given the conventional value 1, since
// there is no nc for C2 to track replay against in that mode.
func extractNC(rec *digestparse.Record) (uint32, bool) {
	raw := rec.Get("nc")
	if rec.QOP != digestparse.QOPNone {
		if raw == "" || rec.Get("cnonce") == "" {
			return 0, false
		}
	} else if raw == "" {
		return 1, true
	}

	nc, status := digestparse.ParseNC(raw)
	if status != digestparse.NCValid {
		return 0, false
	}
	return nc, true
}

func usernameMatches(rec *digestparse.Record, algo digesthash.AlgoID, username, realm string) bool {
	switch rec.UsernameType {
	case digestparse.UsernameStandard, digestparse.UsernameExtended:
		return rec.Username == username
	case digestparse.UsernameUserhash:
		ctx, _ := digesthash.Init(algo)
		sum := digesthash.CalcUserHash(ctx, username, realm)
		return strings.EqualFold(hex.EncodeToString(sum), rec.UserhashHex)
	default:
		return false
	}
}

func computeHA1(algo digesthash.AlgoID, username, realm string, cred credential) ([]byte, bool) {
	if cred.password != nil {
		ctx, _ := digesthash.Init(algo)
		return digesthash.CalcUserDigest(ctx, username, realm, *cred.password), true
	}
	size, _ := digesthash.DigestSize(algo)
	if len(cred.userDigest) != size {
		return nil, false
	}
	return cred.userDigest, true
}

func computeHA2(algo digesthash.AlgoID, method, uriAsReceived string) []byte {
	ctx, _ := digesthash.Init(algo)
	ctx.Update([]byte(method))
	ctx.UpdateWithColon()
	ctx.Update([]byte(uriAsReceived))
	return ctx.Finish()
}

// computeResponse implements spec.md §4.4 step 9's two response formulas,
// selected by qop.
func computeResponse(algo digesthash.AlgoID, ha1 []byte, rec *digestparse.Record, ha2 []byte) []byte {
	ctx, _ := digesthash.Init(algo)
	ctx.Update([]byte(hex.EncodeToString(ha1)))
	ctx.UpdateWithColon()
	ctx.Update([]byte(rec.Get("nonce")))
	ctx.UpdateWithColon()
	if rec.QOP != digestparse.QOPNone {
		ctx.Update([]byte(rec.Get("nc")))
		ctx.UpdateWithColon()
		ctx.Update([]byte(rec.Get("cnonce")))
		ctx.UpdateWithColon()
		ctx.Update([]byte(rec.Get("qop")))
		ctx.UpdateWithColon()
	}
	ctx.Update([]byte(hex.EncodeToString(ha2)))
	return ctx.Finish()
}

func (m QOPMask) hasParsed(q digestparse.QOP) bool {
	switch q {
	case digestparse.QOPNone:
		return m&QOPMaskNone != 0
	case digestparse.QOPAuth:
		return m&QOPMaskAuth != 0
	case digestparse.QOPAuthInt:
		return m&QOPMaskAuthInt != 0
	default:
		return false
	}
}
