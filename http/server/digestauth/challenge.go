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
	"encoding/hex"
	"net/url"
	"strings"

	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
	"gitlab.com/iglou.eu/goulc/http/server/digestnonce"
)

// canonicalAlgoOrder is spec.md §4.5's fixed emission order.
var canonicalAlgoOrder = [3]digesthash.AlgoID{digesthash.MD5, digesthash.SHA256, digesthash.SHA512256}

// ChallengeTemplate is the pre-baked "Digest …" value of a single
// WWW-Authenticate challenge, with its nonce placeholder not yet filled in.
// It is the "Challenge-header record" of spec.md §3: construct once, patch
// the nonce in place at send time, never reformat per request.
type ChallengeTemplate struct {
	value       string
	nonceOffset int
	Algo        digesthash.AlgoID
}

// BuildChallengeTemplates validates its arguments per spec.md §4.5 and
// returns one template per enabled non-session algorithm, in canonical
// order. Templates are immutable and may be cached and reused across many
// responses; PatchNonce draws a fresh nonce into a copy at send time.
func (e *Engine) BuildChallengeTemplates(realm, opaque string, domain []string, stale bool, qopMask QOPMask, algoMask AlgoMask, userhashSupport, preferUTF8 bool) ([]ChallengeTemplate, error) {
	if realm == "" {
		return nil, ErrNoRealm
	}
	if containsControlChars(realm) || containsControlChars(opaque) {
		return nil, ErrRealmControlChars
	}
	domainRaw, err := validateDomain(domain)
	if err != nil {
		return nil, err
	}
	if algoMask == 0 {
		return nil, ErrNoAlgo
	}
	if qopMask&(QOPMaskNone|QOPMaskAuth) == 0 {
		return nil, ErrNoUsableQOP
	}

	includeQOP := qopMask&QOPMaskAuth != 0

	var templates []ChallengeTemplate
	for _, algo := range canonicalAlgoOrder {
		if !algoMask.Has(algo) {
			continue
		}
		templates = append(templates, buildTemplate(algo, realm, opaque, domainRaw, stale, includeQOP, userhashSupport, preferUTF8))
	}
	return templates, nil
}

func buildTemplate(algo digesthash.AlgoID, realm, opaque, domainRaw string, stale, includeQOP, userhashSupport, preferUTF8 bool) ChallengeTemplate {
	var sb strings.Builder
	sb.WriteString(`Digest realm="`)
	sb.WriteString(escapeQuoted(realm))
	sb.WriteString(`"`)

	if includeQOP {
		sb.WriteString(`, qop="auth"`)
	}
	if algo != digesthash.MD5 || includeQOP {
		sb.WriteString(", algorithm=")
		sb.WriteString(algo.String())
	}

	sb.WriteString(`, nonce="`)
	offset := sb.Len()
	sb.WriteString(strings.Repeat("0", digestnonce.HexSize))
	sb.WriteString(`"`)

	if opaque != "" {
		sb.WriteString(`, opaque="`)
		sb.WriteString(escapeQuoted(opaque))
		sb.WriteString(`"`)
	}
	if domainRaw != "" {
		sb.WriteString(`, domain="`)
		sb.WriteString(domainRaw)
		sb.WriteString(`"`)
	}
	if stale {
		sb.WriteString(", stale=true")
	}
	if includeQOP && preferUTF8 {
		sb.WriteString(", charset=UTF-8")
	}
	if includeQOP && userhashSupport {
		sb.WriteString(", userhash=true")
	}

	return ChallengeTemplate{value: sb.String(), nonceOffset: offset, Algo: algo}
}

// PatchNonce draws a fresh nonce from the Engine's table (optionally bound
// to addr) and returns tmpl's value with the placeholder replaced, per
// spec.md §4.5's "just before transmission" step. If the table could not
// place the nonce, the returned header is still well-formed; the client
// simply receives stale=true on its next attempt.
func (e *Engine) PatchNonce(tmpl ChallengeTemplate, addr string) string {
	nonce, _ := e.nonces.Issue(addr)
	e.counters.issued.Add(1)

	b := []byte(tmpl.value)
	copy(b[tmpl.nonceOffset:tmpl.nonceOffset+digestnonce.HexSize], hex.EncodeToString(nonce[:]))
	return string(b)
}

// AddChallenge is the spec.md §6 entry point: build then immediately patch
// one WWW-Authenticate header per enabled algorithm. Callers that serve a
// static realm/config from many goroutines should prefer caching the
// result of BuildChallengeTemplates and calling PatchNonce directly, to
// avoid re-validating and re-formatting on every 401.
func (e *Engine) AddChallenge(realm, opaque string, domain []string, stale bool, qopMask QOPMask, algoMask AlgoMask, userhashSupport, preferUTF8 bool, addr string) ([]string, error) {
	templates, err := e.BuildChallengeTemplates(realm, opaque, domain, stale, qopMask, algoMask, userhashSupport, preferUTF8)
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(templates))
	for i, tmpl := range templates {
		headers[i] = e.PatchNonce(tmpl, addr)
	}
	return headers, nil
}

// CalcUserhashHex is spec.md §6's calc_userhash_hex entry point: the
// convenience an application needs to precompute the value it must store
// for a user who will authenticate with userhash=true.
func CalcUserhashHex(algo digesthash.AlgoID, user, realm string) (string, error) {
	ctx, err := digesthash.Init(algo)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(digesthash.CalcUserHash(ctx, user, realm)), nil
}

func containsControlChars(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// validateDomain implements the supplemented validation spec.md §4.5
// assumes has already happened by the time domain reaches the byte-layout
// step: each token must be free of '"' and CR/LF, and must parse as a
// relative-or-absolute URI reference.
func validateDomain(domain []string) (string, error) {
	if len(domain) == 0 {
		return "", nil
	}
	for _, token := range domain {
		if containsControlChars(token) {
			return "", ErrRealmControlChars
		}
		if strings.Contains(token, `"`) {
			return "", ErrDomainQuote
		}
		if _, err := url.Parse(token); err != nil {
			return "", ErrDomainInvalid
		}
	}
	return strings.Join(domain, " "), nil
}

// escapeQuoted backslash-escapes '\' and '"' so realm/opaque can never
// break out of their surrounding quoted-string, even though callers are
// already required to keep them free of CR/LF.
func escapeQuoted(s string) string {
	if !strings.ContainsAny(s, `\"`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
