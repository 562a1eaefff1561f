//go:build linux

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

package digestnonce

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// platformSalt folds the process and thread identity into the per-process
// salt, the way a real daemon would distinguish itself from another
// instance started at the same wall-clock second on the same host.
func platformSalt() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], uint64(unix.Getpid()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(unix.Gettid()))
	return buf
}
