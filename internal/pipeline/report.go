// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"time"
)

// Result is the outcome of one dependency's pipeline.
type Result struct {
	Name     string
	Action   Action
	State    State // Done or Failed
	Revision string
	Duration time.Duration
	Err      error // a *StageError when State is Failed
}

// Report collects the results of a run in registry order.
type Report struct {
	Results []Result
	Pending []string // dependencies never reached after the run stopped
}

// Failed returns the results that did not reach Done.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.State == Failed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins the errors of every failed dependency, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Count returns how many results carry action a.
func (r *Report) Count(a Action) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}
	return n
}
