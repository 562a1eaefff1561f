//go:build gorm

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

// Package gormstore is an optional, GORM-backed fiberdigest.SecretProvider.
// It is built only with the "gorm" tag, the same opt-in convention the
// teacher's own hided and logging packages use for their GORM glue.
package gormstore

import (
	"encoding/hex"
	"strings"

	"gorm.io/gorm"

	"gitlab.com/iglou.eu/goulc/hided"
)

// Account is the row gormstore reads from. Exactly one of PasswordHash or
// UserDigestHex should be set; a row with both, or neither, is treated as
// not found rather than guessed at. PasswordHash is hided.String so a logger
// wired with logging.NewGormLogger's ParamsFilter never prints it, the
// same protection the teacher's own examples/logging/gorm example
// demonstrates for a password-like column.
type Account struct {
	gorm.Model
	Realm         string `gorm:"index:idx_gormstore_lookup,priority:1"`
	Key           string `gorm:"index:idx_gormstore_lookup,priority:2"` // username, or userhash hex when Userhash is true
	Username      string
	Userhash      bool
	PasswordHash  hided.String
	UserDigestHex string
}

// TableName keeps the table name stable regardless of the package's Go
// identifier, following GORM's documented Tabler convention.
func (Account) TableName() string {
	return "digest_accounts"
}

// Store is a fiberdigest.SecretProvider backed by a GORM database handle.
// The zero value is not usable; build one with New.
type Store struct {
	db *gorm.DB
}

// New wraps db. AutoMigrate is left to the caller, matching the teacher's
// examples/logging/gorm example where migration is an explicit, separate
// step rather than something a constructor does implicitly.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Lookup implements fiberdigest.SecretProvider. key is either a cleartext
// username or a userhash hex string, exactly as fiberdigest.peekKey
// extracts it off the wire; which one is stored in Key depends on how the
// account was provisioned (CreateWithPassword/CreateWithUserhash below).
func (s *Store) Lookup(realm, key string) (username, password string, userDigest []byte, found bool) {
	var acct Account
	err := s.db.Where("realm = ? AND key = ?", realm, key).First(&acct).Error
	if err != nil {
		return "", "", nil, false
	}

	hasPassword := acct.PasswordHash != ""
	hasDigest := acct.UserDigestHex != ""
	if hasPassword == hasDigest {
		return "", "", nil, false
	}

	if hasDigest {
		digest, err := hex.DecodeString(acct.UserDigestHex)
		if err != nil {
			return "", "", nil, false
		}
		return acct.Username, "", digest, true
	}
	return acct.Username, string(acct.PasswordHash), nil, true
}

// CreateWithPassword provisions an account keyed by cleartext username,
// for clients that never send userhash=true.
func CreateWithPassword(db *gorm.DB, realm, username, password string) error {
	return db.Create(&Account{
		Realm:        realm,
		Key:          username,
		Username:     username,
		PasswordHash: hided.String(password),
	}).Error
}

// CreateWithUserhash provisions an account keyed by userhashHex (the value
// digestauth.CalcUserhashHex computes for username/realm), for deployments
// that want the username never to appear in request logs or the wire.
func CreateWithUserhash(db *gorm.DB, realm, username, userhashHex string, userDigest []byte) error {
	return db.Create(&Account{
		Realm:         realm,
		Key:           strings.ToLower(userhashHex),
		Username:      username,
		Userhash:      true,
		UserDigestHex: hex.EncodeToString(userDigest),
	}).Error
}
