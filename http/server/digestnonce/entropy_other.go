//go:build !linux

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

import "os"

// platformSalt folds the process identity into the per-process salt on
// platforms where golang.org/x/sys/unix's thread-id call is unavailable.
// The daemon's own entropy and monotonic counter already dominate R, so
// this is a minor extra ingredient rather than a security-load-bearing one.
func platformSalt() []byte {
	buf := make([]byte, 16)
	pid := os.Getpid()
	buf[0] = byte(pid)
	buf[1] = byte(pid >> 8)
	buf[2] = byte(pid >> 16)
	buf[3] = byte(pid >> 24)
	return buf
}
