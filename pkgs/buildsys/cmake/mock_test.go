// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmake

import (
	"context"

	"github.com/goplus/depstrap/pkgs/buildsys"
)

// recordRunner records commands instead of running them.
type recordRunner struct {
	cmds []buildsys.Command
	err  error
}

func (r *recordRunner) Run(ctx context.Context, cmd buildsys.Command) error {
	r.cmds = append(r.cmds, cmd)
	return r.err
}
