// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"github.com/pkg/errors"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

// TODO: when the control set's reset or enable net already drives one of
// the target LUT's inputs, that input could be reused instead of a free
// one, lowering the cost here and skipping an allocation in convert.

var lutInputs = []string{"I0", "I1", "I2", "I3"}

// spareInputs is the number of free LUT inputs a conversion needs: one for
// the reset/set net, two for an enable (the enable net plus the flop's own
// feedback).
func spareInputs(rmRS, rmEna bool) int {
	n := 0
	if rmRS {
		n++
	}
	if rmEna {
		n += 2
	}
	return n
}

// costConvert estimates how many fresh LUTs removing the requested pins
// from every member of cs would take.
func (o *Optimizer) costConvert(cs ControlSet, rmRS, rmEna bool) (int, error) {
	need := spareInputs(rmRS, rmEna)
	cost := 0
	for _, c := range o.index[cs] {
		drv, err := dataDriver(c)
		if err != nil {
			return 0, err
		}
		// A non-LUT driver always gets a fresh LUT spliced in at no cost:
		// nothing was packable with the flop to begin with.
		if drv.Type != ice40.LUT4 {
			continue
		}
		on, err := lutOutput(drv)
		if err != nil {
			return 0, err
		}
		// Fan-out above one needs a dedicated LUT regardless of this
		// pass, so no incremental cost is charged.
		if len(on.Users()) > 1 {
			continue
		}
		if len(lutFreeInputs(drv)) < need {
			cost++
		}
	}
	return cost, nil
}

// dataDriver finds the cell feeding a flip-flop's data input.
func dataDriver(c *netlist.Cell) (*netlist.Cell, error) {
	n := c.PortNet("D")
	if n == nil {
		return nil, errors.Errorf("cset: flip-flop %q has an unconnected D input", c.Name)
	}
	ref, ok := n.Driver()
	if !ok {
		return nil, errors.Errorf("cset: net %q has no driver", n.Name)
	}
	return ref.Cell, nil
}

func lutOutput(c *netlist.Cell) (*netlist.Net, error) {
	n := c.PortNet("O")
	if n == nil {
		return nil, errors.Errorf("cset: lut %q has an unconnected output", c.Name)
	}
	return n, nil
}

// unusedInput reports whether a LUT input is free: unconnected, or tied to
// constant zero.  A VCC tie is not free: the table edits assume unwired
// inputs read as zero, and VCC ties only appear where something like a
// carry cell genuinely needs them.
func unusedInput(c *netlist.Cell, port string) bool {
	n := c.PortNet(port)
	if n == nil {
		return true
	}
	if ref, ok := n.Driver(); ok && ref.Cell.Type == ice40.GND {
		return true
	}
	return false
}

// simplifyNet collapses constant nets to their driver type so that two
// separately named constant nets compare equal.
func simplifyNet(n *netlist.Net) string {
	if n == nil {
		return ""
	}
	if ref, ok := n.Driver(); ok && (ref.Cell.Type == ice40.GND || ref.Cell.Type == ice40.VCC) {
		return string(ref.Cell.Type)
	}
	return n.Name
}

// hasCarry detects a carry cell paired with the LUT: one whose I0/I1 see
// the same pair of nets as the LUT's I1/I2.  Those two inputs are then
// reserved for the arithmetic path even when otherwise unused.
func hasCarry(c *netlist.Cell) bool {
	n1 := c.PortNet("I1")
	n2 := c.PortNet("I2")

	var users []netlist.PortRef
	if n1 != nil {
		users = append(users, n1.Users()...)
	}
	if n2 != nil {
		users = append(users, n2.Users()...)
	}

	nn1 := simplifyNet(n1)
	nn2 := simplifyNet(n2)

	for _, u := range users {
		if u.Cell.Type != ice40.Carry {
			continue
		}
		if simplifyNet(u.Cell.PortNet("I0")) != nn1 {
			continue
		}
		if simplifyNet(u.Cell.PortNet("I1")) != nn2 {
			continue
		}
		return true
	}
	return false
}

// lutFreeInputs lists the free inputs of a LUT in I0..I3 order.
func lutFreeInputs(c *netlist.Cell) []string {
	free := make([]string, 0, 4)
	for _, p := range lutInputs {
		if unusedInput(c, p) {
			free = append(free, p)
		}
	}
	if hasCarry(c) {
		kept := free[:0]
		for _, p := range free {
			if p != "I1" && p != "I2" {
				kept = append(kept, p)
			}
		}
		free = kept
	}
	return free
}
