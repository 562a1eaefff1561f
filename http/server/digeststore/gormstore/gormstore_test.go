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

package gormstore

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestLookupByPassword(t *testing.T) {
	db := newTestDB(t)
	if err := CreateWithPassword(db, "example.com", "alice", "hunter2"); err != nil {
		t.Fatalf("create: %v", err)
	}

	store := New(db)
	username, password, digest, found := store.Lookup("example.com", "alice")
	if !found {
		t.Fatal("expected account to be found")
	}
	if username != "alice" || password != "hunter2" || digest != nil {
		t.Fatalf("unexpected result: %q %q %v", username, password, digest)
	}
}

func TestLookupByUserDigest(t *testing.T) {
	db := newTestDB(t)
	ctx, err := digesthash.Init(digesthash.SHA256)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	digest := digesthash.CalcUserDigest(ctx, "bob", "example.com", "swordfish")

	if err := CreateWithUserhash(db, "example.com", "bob", "deadbeef", digest); err != nil {
		t.Fatalf("create: %v", err)
	}

	store := New(db)
	username, password, gotDigest, found := store.Lookup("example.com", "deadbeef")
	if !found {
		t.Fatal("expected account to be found")
	}
	if username != "bob" || password != "" {
		t.Fatalf("unexpected username/password: %q %q", username, password)
	}
	if string(gotDigest) != string(digest) {
		t.Fatal("digest round-trip mismatch")
	}
}

func TestLookupMissesUnknownKey(t *testing.T) {
	db := newTestDB(t)
	store := New(db)
	if _, _, _, found := store.Lookup("example.com", "nobody"); found {
		t.Fatal("expected lookup to miss")
	}
}

func TestLookupRespectsRealmBoundary(t *testing.T) {
	db := newTestDB(t)
	if err := CreateWithPassword(db, "realm-a", "carol", "p4ss"); err != nil {
		t.Fatalf("create: %v", err)
	}

	store := New(db)
	if _, _, _, found := store.Lookup("realm-b", "carol"); found {
		t.Fatal("lookup should not cross realms")
	}
}
