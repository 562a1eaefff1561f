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

// Package fiberdigest wires a digestauth.Engine into a Fiber request
// cycle: it reads Authorization off the incoming fiber.Ctx, runs the
// validator, and on anything other than OK writes one or more
// WWW-Authenticate challenges and aborts the request with 401. It owns no
// authentication logic of its own; digestauth.Engine is the collaborator
// spec.md §1 names this kind of adapter as sitting on top of.
package fiberdigest

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"gitlab.com/iglou.eu/goulc/http/server/digestauth"
	"gitlab.com/iglou.eu/goulc/http/server/digestparse"
)

// ErrNoEngine is the value New panics with when cfg.Engine is nil.
var ErrNoEngine = errors.New("fiberdigest: Engine must not be nil")

// ErrNoProvider is the value New panics with when cfg.Provider is nil.
var ErrNoProvider = errors.New("fiberdigest: Provider must not be nil")

// SecretProvider resolves the credential an incoming request's key (a
// cleartext username, or a userhash hex string when the request carries
// userhash=true) maps to. It always returns the account's real, cleartext
// username alongside the credential: the validator needs it to recompute
// H(username:realm) even in userhash mode, since the wire value is only an
// obfuscation of the username, never a lookup key the engine trusts
// directly. Exactly one of password/userDigest should be meaningful when
// found is true; digeststore/gormstore is one implementation.
type SecretProvider interface {
	Lookup(realm, key string) (username, password string, userDigest []byte, found bool)
}

// Config configures the middleware returned by New.
type Config struct {
	Engine   *digestauth.Engine
	Provider SecretProvider

	Realm           string
	Opaque          string
	Domain          []string
	QOPMask         digestauth.QOPMask
	AlgoMask        digestauth.AlgoMask
	UserhashSupport bool
	PreferUTF8      bool
	// MaxNC overrides the Engine's configured default nc ceiling for
	// every request through this middleware; 0 keeps the Engine default.
	MaxNC uint32

	Logger *slog.Logger
}

// New builds the Fiber middleware. It panics if cfg.Engine or cfg.Provider
// is nil: those are wiring bugs, not request-time conditions, the same way
// a misconfigured fiber.Handler factory in this ecosystem fails fast at
// startup rather than on the first request.
func New(cfg Config) fiber.Handler {
	if cfg.Engine == nil {
		panic(ErrNoEngine)
	}
	if cfg.Provider == nil {
		panic(ErrNoProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *fiber.Ctx) error {
		req := toRequest(c)

		key, ok := peekKey(req.AuthHeader)
		var outcome digestauth.Outcome
		if !ok {
			outcome = digestauth.HeaderMissing
		} else if username, password, userDigest, found := cfg.Provider.Lookup(cfg.Realm, key); !found {
			outcome = digestauth.WrongUsername
		} else if userDigest != nil {
			outcome = cfg.Engine.CheckDigest(req, cfg.Realm, username, userDigest, cfg.MaxNC, cfg.QOPMask, cfg.AlgoMask)
		} else {
			outcome = cfg.Engine.CheckPassword(req, cfg.Realm, username, password, cfg.MaxNC, cfg.QOPMask, cfg.AlgoMask)
		}

		if outcome.OK() {
			return c.Next()
		}

		logger.Debug("fiberdigest: request denied", "outcome", string(outcome), "path", req.Path)

		headers, err := cfg.Engine.AddChallenge(cfg.Realm, cfg.Opaque, cfg.Domain, outcome.Stale(), cfg.QOPMask, cfg.AlgoMask, cfg.UserhashSupport, cfg.PreferUTF8, c.IP())
		if err != nil {
			logger.Error("fiberdigest: could not build challenge", "error", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		for _, h := range headers {
			c.Response().Header.Add(fiber.HeaderWWWAuthenticate, h)
		}
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}
}

func toRequest(c *fiber.Ctx) digestauth.Request {
	query, err := url.ParseQuery(string(c.Context().QueryArgs().QueryString()))
	if err != nil {
		query = url.Values{}
	}
	return digestauth.Request{
		Method:     c.Method(),
		Path:       c.Path(),
		Query:      query,
		AuthHeader: c.Get(fiber.HeaderAuthorization),
		RemoteAddr: c.IP(),
	}
}

// peekKey extracts the lookup key digestauth.Request.credentials would
// also need to parse: the cleartext username, or the userhash hex string
// when userhash=true. It tolerates the same malformed input digestauth
// itself tolerates. It reports false for an absent or non-Digest header, a
// header that does not parse, and a missing or invalid username; the
// middleware then records HEADER_MISSING and answers with a challenge
// without running the validator.
func peekKey(authHeader string) (string, bool) {
	const prefix = "Digest "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}
	rec, err := digestparse.Parse(strings.TrimLeft(authHeader[len(prefix):], " \t"))
	if err != nil {
		return "", false
	}
	switch rec.UsernameType {
	case digestparse.UsernameStandard, digestparse.UsernameExtended:
		return rec.Username, true
	case digestparse.UsernameUserhash:
		return rec.UserhashHex, true
	default:
		return "", false
	}
}
