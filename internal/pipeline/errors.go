// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrAcquisition classifies failures to fetch or update a dependency.
	ErrAcquisition = errors.New("acquisition failure")

	// ErrBuild classifies failures to purge, configure, build or install.
	ErrBuild = errors.New("build failure")

	// ErrStaging classifies failures of post-install copy steps.
	ErrStaging = errors.New("staging failure")
)

// StageError records which dependency failed at which stage.
// errors.Is matches both the stage's class and the underlying cause.
type StageError struct {
	Dep   string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s (%v): %v", e.Dep, e.Stage, e.Stage.Class(), e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage.Class(), e.Err}
}
