// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

// State is a point in one dependency's pipeline.
type State int

const (
	Absent State = iota
	Present
	Fetched
	Refetched
	Purged
	Configured
	Built
	Installed
	Staged
	Done
	Failed
)

var stateNames = [...]string{
	Absent:     "ABSENT",
	Present:    "PRESENT",
	Fetched:    "FETCHED",
	Refetched:  "REFETCHED",
	Purged:     "PURGED",
	Configured: "CONFIGURED",
	Built:      "BUILT",
	Installed:  "INSTALLED",
	Staged:     "STAGED",
	Done:       "DONE",
	Failed:     "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Stage names the work that moves a dependency from one state to the next.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageUpdate    Stage = "update"
	StagePurge     Stage = "purge"
	StageConfigure Stage = "configure"
	StageBuild     Stage = "build"
	StageInstall   Stage = "install"
	StageStage     Stage = "stage"
)

// Class returns the failure class errors from s belong to.
func (s Stage) Class() error {
	switch s {
	case StageFetch, StageUpdate:
		return ErrAcquisition
	case StageStage:
		return ErrStaging
	default:
		return ErrBuild
	}
}

// Action summarizes what a run did to one dependency.
type Action string

const (
	ActionFetched   Action = "fetched"   // acquired for the first time
	ActionRefetched Action = "refetched" // moved to a changed ref
	ActionRebuilt   Action = "rebuilt"   // build directory purged and rebuilt
	ActionResumed   Action = "resumed"   // finished after an earlier run stopped midway
	ActionSkipped   Action = "skipped"   // already present, nothing to do
	ActionFailed    Action = "failed"
)
