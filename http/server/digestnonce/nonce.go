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

// Package digestnonce implements the server-side nonce lifecycle for HTTP
// Digest Authentication: issuance with anti-replay guarantees, a fixed-size
// slotted table guarded by a single mutex, and a 64-bit sliding window of
// nonce-count values per slot. It has no notion of realms, usernames or
// responses; those belong to digestauth, which is the only intended caller.
package digestnonce

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
)

// NonceSize is the length in bytes of a nonce: 32 bytes of pseudo-random
// prefix R followed by a 4-byte little-endian expiry timestamp T.
const NonceSize = 36

// HexSize is the length of a nonce's lowercase hex encoding.
const HexSize = NonceSize * 2

const (
	randSize   = 32
	placeRetry = 3
)

var (
	// ErrInvalidSize is returned when a daemon is constructed with a
	// non-positive table size.
	ErrInvalidSize = errors.New("digestnonce: table size must be >= 1")
	// ErrInvalidTimeout is returned when a daemon is constructed with a
	// non-positive nonce lifetime.
	ErrInvalidTimeout = errors.New("digestnonce: nonce timeout must be > 0")
	// ErrShortEntropy is returned when fewer than 32 bytes of entropy are
	// supplied; spec.md §6 recommends at least 32 bytes of seed material.
	ErrShortEntropy = errors.New("digestnonce: entropy seed should be at least 32 bytes")
)

// CheckResult is the outcome of validating a submitted nonce against the
// table, independent of any credential check.
type CheckResult int

const (
	// Ok means the nonce is known, unexpired, and nc was accepted.
	Ok CheckResult = iota
	// Stale means the nonce is recognisable as MHD-issued but expired,
	// overwritten by a fresher generation, or its nc value was reused or
	// fell outside the 64-value sliding window.
	Stale
	// Wrong means the submitted value was never issued by this store, or
	// is lexically malformed (wrong length, not lowercase hex).
	Wrong
)

func (r CheckResult) String() string {
	switch r {
	case Ok:
		return "OK"
	case Stale:
		return "STALE"
	case Wrong:
		return "WRONG"
	default:
		return "UNKNOWN"
	}
}

// slot is a single entry of the nonce table. The zero value is a valid
// "empty" slot: used is false until the first nonce is placed in it.
type slot struct {
	used       bool
	nonce      [NonceSize]byte
	validTime  uint32
	maxRecvdNC uint32
	ncMask     uint64
}

// Store is a fixed-size table of nonce slots guarded by a single mutex, as
// specified by spec.md §4.2. It is a first-class value with explicit
// lifetime: construct one per daemon via New, do not use a package-level
// global.
type Store struct {
	mu      sync.Mutex
	slots   []slot
	tmout   time.Duration
	entropy []byte
	counter atomic.Uint64
	process []byte // stable per-process salt, folded into every R
	logger  *slog.Logger
}

// New builds a Store with n slots, each issued nonce valid for tmout. entropy
// is the daemon's seed material; it is copied and never mutated. logger may
// be nil, in which case slog.Default() is used.
func New(n int, tmout time.Duration, entropy []byte, logger *slog.Logger) (*Store, error) {
	if n < 1 {
		return nil, ErrInvalidSize
	}
	if tmout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if len(entropy) < randSize {
		return nil, ErrShortEntropy
	}
	if logger == nil {
		logger = slog.Default()
	}

	seed := make([]byte, len(entropy))
	copy(seed, entropy)

	return &Store{
		slots:   make([]slot, n),
		tmout:   tmout,
		entropy: seed,
		process: processSalt(),
		logger:  logger,
	}, nil
}

// Issue draws a fresh nonce, optionally binding it to addr (the client's
// remote address, used only as hashing input, never compared against on
// check). It returns the 36 raw bytes and the expiry as a Unix second
// count, per spec.md §4.2 "issue_nonce".
func (s *Store) Issue(addr string) ([NonceSize]byte, uint32) {
	var last [NonceSize]byte
	var lastExpiry uint32

	for attempt := 0; attempt < placeRetry; attempt++ {
		nonce, expiry := s.generate(addr)
		last, lastExpiry = nonce, expiry

		if s.place(nonce, expiry) {
			return nonce, expiry
		}
		s.logger.Debug("digestnonce: slot collision, retrying", "attempt", attempt)
	}

	// All retries collided with a live, differently-timed occupant. Return
	// the last generated nonce anyway: the client will be told STALE on
	// its first use and will retry with whatever challenge comes next.
	s.logger.Debug("digestnonce: could not place nonce after retries, returning unplaced value")
	return last, lastExpiry
}

// generate derives a fresh (R‖T) pair without touching the table.
func (s *Store) generate(addr string) ([NonceSize]byte, uint32) {
	expiryMS := time.Now().UnixMilli() + s.tmout.Milliseconds()
	expirySec := uint32(expiryMS / 1000)
	counter := s.counter.Add(1)

	r := s.mixR(counter, addr, expiryMS)

	var nonce [NonceSize]byte
	copy(nonce[:randSize], r)
	binary.LittleEndian.PutUint32(nonce[randSize:], expirySec)
	return nonce, expirySec
}

// mixR produces the 32-byte pseudo-random prefix by hashing the daemon
// entropy, the per-process salt, a monotonic counter, the optional remote
// address, and the intended expiry. SHA-256 already yields 32 bytes in one
// pass; this is future-proofed for a narrower primary hash (e.g. an
// MD5-only build) by concatenating two independently-countered hashes
// per spec.md §3.
func (s *Store) mixR(counter uint64, addr string, expiryMS int64) []byte {
	primary := digesthash.SHA256
	size, _ := digesthash.DigestSize(primary)

	if size >= randSize {
		return s.hashRound(primary, counter, addr, expiryMS)[:randSize]
	}

	out := make([]byte, 0, randSize)
	round := counter
	for len(out) < randSize {
		out = append(out, s.hashRound(primary, round, addr, expiryMS)...)
		round++
	}
	return out[:randSize]
}

func (s *Store) hashRound(algo digesthash.AlgoID, counter uint64, addr string, expiryMS int64) []byte {
	ctx, err := digesthash.Init(algo)
	if err != nil {
		// algo is a package constant known to be supported; unreachable.
		panic(err)
	}

	var buf [8]byte
	ctx.Update(s.entropy)
	ctx.Update(s.process)
	binary.BigEndian.PutUint64(buf[:], counter)
	ctx.Update(buf[:])
	if addr != "" {
		ctx.Update([]byte(addr))
	}
	binary.BigEndian.PutUint64(buf[:], uint64(expiryMS))
	ctx.Update(buf[:])

	return ctx.Finish()
}

// place attempts to write nonce/expiry into its slot, per spec.md §4.2 step
// 4. It returns true on success (including the benign "duplicate" case),
// false if the caller should retry with a new nonce.
func (s *Store) place(nonce [NonceSize]byte, expirySec uint32) bool {
	idx := slotIndex(nonce, len(s.slots))

	s.mu.Lock()
	defer s.mu.Unlock()

	sl := &s.slots[idx]
	switch {
	case !sl.used || sl.nonce != nonce:
		*sl = slot{used: true, nonce: nonce, validTime: expirySec}
		return true
	case sl.validTime == expirySec:
		// Identical nonce, identical expiry: a benign duplicate.
		return true
	default:
		// Identical nonce bytes but a different expiry: vanishingly
		// unlikely collision. Ask the caller to regenerate.
		return false
	}
}

// Check validates a 72-character lowercase hex nonce and nonce-count
// against the table, per spec.md §4.2 "check". now is the current time as
// a Unix second count.
func (s *Store) Check(nonceHex string, nc uint32, now int64) CheckResult {
	nonce, ok := decodeHex(nonceHex)
	if !ok {
		return Wrong
	}

	t := binary.LittleEndian.Uint32(nonce[randSize:])
	idx := slotIndex(nonce, len(s.slots))

	s.mu.Lock()
	defer s.mu.Unlock()

	sl := &s.slots[idx]
	if sl.used && sl.nonce == nonce && sl.validTime == t {
		// Expiry is checked before the nc window: an otherwise perfectly
		// tracked nonce that has simply aged out is STALE, not OK,
		// per spec.md §5.
		if now > int64(t) {
			return Stale
		}
		return s.checkNC(sl, nc)
	}

	return s.checkForeign(sl, t, now)
}

// checkNC applies the sliding nc window of spec.md §4.2 to a slot already
// confirmed to hold the submitted nonce. Go's shift semantics (a shift
// count >= the operand's bit width yields zero) do the §4.2 "saturating at
// 64" clamp for free, so the arithmetic below needs no explicit branch for
// it.
func (s *Store) checkNC(sl *slot, nc uint32) CheckResult {
	switch {
	case nc > sl.maxRecvdNC:
		shift := nc - sl.maxRecvdNC
		sl.ncMask <<= shift
		sl.ncMask |= uint64(1) << (shift - 1)
		sl.maxRecvdNC = nc
		return Ok

	case nc == sl.maxRecvdNC:
		return Stale

	default:
		d := sl.maxRecvdNC - nc
		if d > 64 {
			return Stale
		}
		bit := uint64(1) << (d - 1)
		if sl.ncMask&bit != 0 {
			return Stale
		}
		sl.ncMask |= bit
		return Ok
	}
}

// checkForeign handles a nonce whose bytes do not match what the slot
// currently holds: an empty slot, or a slot occupied by a different
// generation.
//
// An empty slot has never held any nonce, so the submitted value cannot
// have been issued by this store: WRONG. An occupied-but-different slot
// means some other generation now lives there; the submitted nonce is
// classified by comparing its claimed expiry against the occupant's, using
// a signed delta so a 32-bit wraparound is handled the same way regardless
// of which side is "ahead", per spec.md §4.2's "stored nonce older/newer
// than the submitted one" mapping:
//
//   - the occupant (stored) is older than the submitted value: an earlier,
//     once-valid generation that this slot has since been overwritten
//     with. STALE.
//   - the occupant (stored) is newer than (or tied with) the submitted
//     value: either a nonce this store is racing to record, or a forged
//     one. If its claimed expiry is further in the future than this
//     store's own timeout window would ever produce, it was fabricated:
//     WRONG. Otherwise, give it the benefit of the doubt: STALE, so the
//     client retries with whatever challenge comes next.
func (s *Store) checkForeign(sl *slot, submittedT uint32, now int64) CheckResult {
	if !sl.used {
		return Wrong
	}

	delta := int32(submittedT - sl.validTime)
	if delta > 0 {
		return Stale
	}
	return classifyUnknown(submittedT, now, s.tmout)
}

// classifyUnknown decides between WRONG and STALE for a nonce whose claimed
// expiry looks newer than (or tied with) anything currently on record,
// using the tolerance spec.md §4.2 allows for a nonce that might have
// existed and aged out.
func classifyUnknown(submittedT uint32, now int64, tmout time.Duration) CheckResult {
	nowT := uint32(now)
	future := int64(submittedT) - int64(nowT)
	tmoutSec := int64(tmout / time.Second)

	if future > tmoutSec {
		return Wrong
	}
	return Stale
}

// decodeHex validates and decodes a 72-character lowercase hex nonce.
// Uppercase hex is rejected: this engine never emits it, so its presence
// means the value was not issued by this store.
func decodeHex(s string) ([NonceSize]byte, bool) {
	var out [NonceSize]byte
	if len(s) != HexSize {
		return out, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c >= 'a' && c <= 'f' {
			continue
		}
		return out, false
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// slotIndex folds a mixing hash of the nonce's 36 bytes into [0, n). The
// mix is deliberately not cryptographic (spec.md §4.2): it only needs to
// distribute load, not resist an adversary who already knows the full
// nonce.
func slotIndex(nonce [NonceSize]byte, n int) int {
	return int(mixHash(nonce) % uint64(n))
}

var mixConstants = [5]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0xff51afd7ed558ccd,
	0xc4ceb9fe1a85ec53,
}

// mixHash is an 8-byte-at-a-time XOR-rotate over the nonce, mixed with five
// fixed 64-bit constants, per spec.md §4.2.
func mixHash(nonce [NonceSize]byte) uint64 {
	var acc uint64
	for i := 0; i+8 <= NonceSize; i += 8 {
		word := binary.LittleEndian.Uint64(nonce[i:])
		c := mixConstants[(i/8)%len(mixConstants)]
		acc ^= word * c
		acc = acc<<17 | acc>>47
	}
	// Remaining 4 bytes (36 = 4*8 + 4).
	var tail [8]byte
	copy(tail[:4], nonce[32:])
	word := binary.LittleEndian.Uint64(tail[:])
	acc ^= word * mixConstants[4]
	return acc
}

// processSalt derives a stable per-process value folded into every R. The
// platform-specific half of this (process/thread identity) lives in
// entropy_linux.go and entropy_other.go.
func processSalt() []byte {
	salt := make([]byte, 0, 16+len(platformSalt()))
	salt = append(salt, uuid.New()[:]...)
	salt = append(salt, platformSalt()...)
	return salt
}

// RandomSeed generates cryptographically random entropy suitable for New's
// entropy parameter. It is a convenience for callers (typically tests and
// examples) that want a fresh seed instead of managing their own.
func RandomSeed() ([]byte, error) {
	buf := make([]byte, randSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
