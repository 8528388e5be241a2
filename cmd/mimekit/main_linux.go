// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequentialRead hints that only the leading maxBytes of f will be
// read, mirrors blkid_linux.go's FADV_RANDOM use on block devices.
func adviseSequentialRead(f *os.File, maxBytes int) {
	unix.Fadvise(int(f.Fd()), 0, int64(maxBytes), unix.FADV_SEQUENTIAL) //nolint:errcheck
}
