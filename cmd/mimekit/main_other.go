// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package main

import "os"

// adviseSequentialRead is a no-op outside Linux: unix.Fadvise wraps the
// Linux-only posix_fadvise syscall, mirrors blkid_other.go's stub pairing
// with blkid_linux.go.
func adviseSequentialRead(*os.File, int) {}
