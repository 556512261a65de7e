// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Package cset consolidates flip-flop control sets.
//
// A control set is the (reset/set, enable, clock) net triple wired to a
// flip-flop.  Each distinct triple costs routing and packing flexibility,
// so designs with many single-flop control sets pack poorly.  This pass
// finds control sets with few member flops and, where legal, removes their
// reset/set and/or enable wiring, re-creating the removed behavior inside
// the LUT driving each flop's data input.  Several under-used control sets
// collapsing onto the same residual triple are merged in one step.
//
// The pass mutates the netlist in place.  A malformed netlist (a flop with
// an undriven data input, a LUT without its truth table parameter) aborts
// the pass with an error; the netlist may then be left partially rewritten.
package cset

import (
	"github.com/pkg/errors"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

// Type ControlSet is the (reset/set, enable, clock) net name triple of a
// flip-flop.  An empty string means the slot is unwired.  Two flops share
// a control set iff the triples are identical by net name.
type ControlSet struct {
	RS  string
	Ena string
	Clk string
}

// FromCell extracts the control set of a flip-flop cell.  The reset and
// set pins share the RS slot; when both happen to be wired, reset wins and
// set is ignored.  A non-flip-flop cell is a precondition violation and
// returns an error.
func FromCell(c *netlist.Cell) (ControlSet, error) {
	if !ice40.IsDFF(c.Type) {
		return ControlSet{}, errors.Errorf("cset: cell %q has type %s, not a flip-flop", c.Name, c.Type)
	}
	rs := netName(c, "R")
	if rs == "" {
		rs = netName(c, "S")
	}
	return ControlSet{
		RS:  rs,
		Ena: netName(c, "E"),
		Clk: netName(c, "C"),
	}, nil
}

func netName(c *netlist.Cell, port string) string {
	if n := c.PortNet(port); n != nil {
		return n.Name
	}
	return ""
}

func (cs ControlSet) less(o ControlSet) bool {
	if cs.RS != o.RS {
		return cs.RS < o.RS
	}
	if cs.Ena != o.Ena {
		return cs.Ena < o.Ena
	}
	return cs.Clk < o.Clk
}

// target is the control set left after a removal.
func (cs ControlSet) target(rmRS, rmEna bool) ControlSet {
	if rmRS {
		cs.RS = ""
	}
	if rmEna {
		cs.Ena = ""
	}
	return cs
}
