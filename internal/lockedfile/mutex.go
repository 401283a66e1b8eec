// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lockedfile provides an inter-process mutex backed by an OS file
// lock.
package lockedfile

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned by Lock when another process holds the mutex.
var ErrLocked = errors.New("locked by another process")

// A Mutex provides mutual exclusion between processes using a lock on the
// file at Path. The file is created if needed and never removed.
type Mutex struct {
	Path string
}

// MutexAt returns a new Mutex with Path set to path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: path must be non-empty")
	}
	return &Mutex{Path: path}
}

// Lock attempts to lock the Mutex without waiting.
//
// If another process holds it, Lock returns an error wrapping ErrLocked.
// On success the returned function releases the lock.
func (mu *Mutex) Lock() (unlock func(), err error) {
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("%s: %w", mu.Path, ErrLocked)
		}
		return nil, fmt.Errorf("lock %s: %w", mu.Path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
