// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package repository

import "sync"

// Builder produces a fresh Repository, e.g. by loading the XML database or
// decoding the binary cache.
type Builder func() (*Repository, error)

// shared is the process-wide Repository singleton (spec.md §5): built once
// on first Get, read by every caller thereafter under mu's read lock (Get
// takes it on every call), and only ever replaced wholesale by Rebuild under
// mu's write lock.
//
// Grounded on the teacher's blkid/internal/utils.castagnoliTable
// (sync.OnceValue over an immutable lazily-built value); extended with an
// RWMutex because, unlike the CRC table, this value must support an atomic
// whole-repository rebuild-and-swap, which OnceValue alone cannot express.
var (
	mu       sync.RWMutex
	once     sync.Once
	shared   *Repository
	buildFn  Builder
	buildErr error
)

// SetBuilder installs the function used to build the singleton the first
// time it is requested. It must be called before the first Get.
func SetBuilder(b Builder) {
	mu.Lock()
	defer mu.Unlock()

	buildFn = b
}

// Get returns the process-wide Repository, building it on the first call.
// Concurrent first calls are guarded so exactly one build runs.
func Get() (*Repository, error) {
	once.Do(func() {
		mu.RLock()
		b := buildFn
		mu.RUnlock()

		if b == nil {
			return
		}

		repo, err := b()

		mu.Lock()
		shared = repo
		buildErr = err
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()

	return shared, buildErr
}

// Rebuild replaces the shared Repository atomically with a freshly built
// one, per spec.md §5 ("a rebuild replaces the whole repository
// atomically" / "offered only as a whole-repository atomic swap").
func Rebuild(b Builder) error {
	repo, err := b()
	if err != nil {
		return err
	}

	mu.Lock()
	shared = repo
	buildErr = nil
	mu.Unlock()

	return nil
}

// resetForTest clears the singleton state; used only by tests in this
// package and its siblings to avoid cross-test pollution.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()

	once = sync.Once{}
	shared = nil
	buildFn = nil
	buildErr = nil
}
