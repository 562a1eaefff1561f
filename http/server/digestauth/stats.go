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

import "sync/atomic"

// counters is the Engine's live, lock-free tally, one atomic.Uint64 per
// Outcome kind plus nonces issued. spec.md §5 already names the nonce
// table as the engine's only shared mutable state; these counters are the
// only other thing the Engine mutates under concurrent access, and they
// need no lock of their own.
type counters struct {
	issued          atomic.Uint64
	ok              atomic.Uint64
	headerMissing   atomic.Uint64
	headerBroken    atomic.Uint64
	wrongAlgo       atomic.Uint64
	unsupportedAlgo atomic.Uint64
	wrongQOP        atomic.Uint64
	unsupportedQOP  atomic.Uint64
	wrongRealm      atomic.Uint64
	wrongUsername   atomic.Uint64
	wrongURI        atomic.Uint64
	nonceWrong      atomic.Uint64
	nonceStale      atomic.Uint64
	responseWrong   atomic.Uint64
	tooLarge        atomic.Uint64
	errorCount      atomic.Uint64
}

func (c *counters) record(o Outcome) {
	switch o {
	case OK:
		c.ok.Add(1)
	case HeaderMissing:
		c.headerMissing.Add(1)
	case HeaderBroken:
		c.headerBroken.Add(1)
	case WrongAlgo:
		c.wrongAlgo.Add(1)
	case UnsupportedAlgo:
		c.unsupportedAlgo.Add(1)
	case WrongQOP:
		c.wrongQOP.Add(1)
	case UnsupportedQOP:
		c.unsupportedQOP.Add(1)
	case WrongRealm:
		c.wrongRealm.Add(1)
	case WrongUsername:
		c.wrongUsername.Add(1)
	case WrongURI:
		c.wrongURI.Add(1)
	case NonceWrong:
		c.nonceWrong.Add(1)
	case NonceStale:
		c.nonceStale.Add(1)
	case ResponseWrong:
		c.responseWrong.Add(1)
	case TooLarge:
		c.tooLarge.Add(1)
	case Error:
		c.errorCount.Add(1)
	}
}

// Stats is a point-in-time snapshot of an Engine's activity, taken with
// Engine.Stats(). It is a plain value, safe to copy, log, or serialise.
type Stats struct {
	NoncesIssued    uint64
	OK              uint64
	HeaderMissing   uint64
	HeaderBroken    uint64
	WrongAlgo       uint64
	UnsupportedAlgo uint64
	WrongQOP        uint64
	UnsupportedQOP  uint64
	WrongRealm      uint64
	WrongUsername   uint64
	WrongURI        uint64
	NonceWrong      uint64
	NonceStale      uint64
	ResponseWrong   uint64
	TooLarge        uint64
	Error           uint64
}

// Stats returns a snapshot of the Engine's counters since construction.
func (e *Engine) Stats() Stats {
	return Stats{
		NoncesIssued:    e.counters.issued.Load(),
		OK:              e.counters.ok.Load(),
		HeaderMissing:   e.counters.headerMissing.Load(),
		HeaderBroken:    e.counters.headerBroken.Load(),
		WrongAlgo:       e.counters.wrongAlgo.Load(),
		UnsupportedAlgo: e.counters.unsupportedAlgo.Load(),
		WrongQOP:        e.counters.wrongQOP.Load(),
		UnsupportedQOP:  e.counters.unsupportedQOP.Load(),
		WrongRealm:      e.counters.wrongRealm.Load(),
		WrongUsername:   e.counters.wrongUsername.Load(),
		WrongURI:        e.counters.wrongURI.Load(),
		NonceWrong:      e.counters.nonceWrong.Load(),
		NonceStale:      e.counters.nonceStale.Load(),
		ResponseWrong:   e.counters.responseWrong.Load(),
		TooLarge:        e.counters.tooLarge.Load(),
		Error:           e.counters.errorCount.Load(),
	}
}
