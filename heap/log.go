// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package heap

// logging functions

import (
	"fmt"

	"github.com/intuitivelabs/slog"
)

const (
	pkgName = "heap"
	pDBG    = "DBG: " + pkgName + ": "
	pWARN   = "WARNING: " + pkgName + ": "
	pBUG    = "BUG: " + pkgName + ": "
	pPANIC  = pkgName + ": "
)

// Log is the package-wide logger. Callers that want quiet output can
// lower its level; it defaults to debug the way the teacher's package
// does, since this is a library meant to be instrumented, not a
// service with its own log policy.
var Log slog.Log = slog.New(slog.LDBG, slog.LbackTraceS|slog.LlocInfoS,
	slog.LStdErr)

// WARN logs a warning-level message (invalid-but-recoverable input,
// e.g. free(nil)).
func WARN(f string, a ...interface{}) {
	Log.LLog(slog.LWARN, 1, pWARN, f, a...)
}

// BUG logs a bug-level message (an invariant the caller broke).
func BUG(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, pBUG, f, a...)
}

// PANIC logs at bug level and then panics, carrying the same message.
func PANIC(f string, a ...interface{}) {
	s := fmt.Sprintf(pPANIC+f, a...)
	Log.LLog(slog.LBUG, 1, "", "%s", s)
	panic(s)
}

// dbgf logs a debug-level trace line, gated by Options.Debug at the
// call site (see Heap.debugf).
func dbgf(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, pDBG, f, a...)
}
