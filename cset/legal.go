// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import "github.com/go-air/ice40opt/ice40"

// canConvert decides whether removing the requested pins from every member
// of cs preserves behavior.
//
// An asynchronous reset or set cannot be re-created by combinational logic
// feeding the synchronous data path, so any member with an async variant
// pins the RS slot.  A pinned RS slot counts as absent below: its wiring
// stays untouched whatever else is removed.
func (o *Optimizer) canConvert(cs ControlSet, rmRS, rmEna bool) bool {
	hasRS := cs.RS != ""
	hasEna := cs.Ena != ""

	if hasRS {
		for _, c := range o.index[cs] {
			if d, ok := ice40.ParseDFF(c.Type); ok && d.Async {
				hasRS = false
				break
			}
		}
	}

	if rmRS && !hasRS {
		return false
	}
	if rmEna && !hasEna {
		return false
	}

	// In the flip-flop primitive the reset/set pin overrides the enable.
	// Emulating the enable in the LUT while the reset stays wired would
	// flip that priority, so the enable can only go if the reset goes too.
	if hasRS && rmEna && !rmRS {
		return false
	}
	return true
}
