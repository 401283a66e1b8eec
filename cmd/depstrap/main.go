// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command depstrap fetches, builds and installs a project's third-party
// native dependencies into a shared local prefix.
package main

import "github.com/goplus/depstrap/cmd/depstrap/internal"

func main() {
	internal.Execute()
}
