// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"github.com/pkg/errors"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

// convert removes the requested pins from every member of cs and rewrites
// each member's driving LUT to reproduce the removed behavior.  Callers
// must have checked canConvert first.
func (o *Optimizer) convert(cs ControlSet, rmRS, rmEna bool) error {
	need := spareInputs(rmRS, rmEna)

	for _, cell := range o.index[cs] {
		d, ok := ice40.ParseDFF(cell.Type)
		if !ok {
			return errors.Errorf("cset: cell %q has type %s, not a flip-flop", cell.Name, cell.Type)
		}
		// The level a removed reset/set pin forces, read off the variant
		// before it is retyped.
		setLevel := d.SR == ice40.SRSet && !d.Async

		if rmRS {
			if err := o.nl.Disconnect(cell.Name, "R"); err != nil {
				return err
			}
			if err := o.nl.Disconnect(cell.Name, "S"); err != nil {
				return err
			}
			d = d.WithoutSR()
		}
		if rmEna {
			if err := o.nl.Disconnect(cell.Name, "E"); err != nil {
				return err
			}
			d = d.WithoutEnable()
		}
		cell.Type = d.CellType()

		drv, err := dataDriver(cell)
		if err != nil {
			return err
		}

		// The existing driver is reusable only when it is a LUT feeding
		// this flop alone and has room; otherwise splice a fresh one.
		var free []string
		if drv.Type == ice40.LUT4 {
			on, err := lutOutput(drv)
			if err != nil {
				return err
			}
			if len(on.Users()) == 1 {
				free = lutFreeInputs(drv)
			}
		}
		tgt := drv
		if len(free) < need {
			tgt, free, err = o.spliceLUT(cell)
			if err != nil {
				return err
			}
		}

		// Allocate most-recently-free first.
		pRS, pEna, pOld := -1, -1, -1
		if rmRS {
			var p string
			p, free = free[len(free)-1], free[:len(free)-1]
			pRS = inputIndex(p)
			if err := o.bindInput(tgt, p, cs.RS); err != nil {
				return err
			}
		}
		if rmEna {
			var pe, po string
			pe, free = free[len(free)-1], free[:len(free)-1]
			po, free = free[len(free)-1], free[:len(free)-1]
			pEna, pOld = inputIndex(pe), inputIndex(po)

			q := cell.PortNet("Q")
			if q == nil {
				return errors.Errorf("cset: flip-flop %q has an unconnected Q output", cell.Name)
			}
			if err := o.bindInput(tgt, pe, cs.Ena); err != nil {
				return err
			}
			if err := o.bindInput(tgt, po, q.Name); err != nil {
				return err
			}
		}

		raw, ok := tgt.Param(ice40.LUTInitParam)
		if !ok {
			return errors.Errorf("cset: lut %q has no %s parameter", tgt.Name, ice40.LUTInitParam)
		}
		init, err := ice40.ParseLUTInit(raw)
		if err != nil {
			return err
		}
		// The hold edit runs after the force edit and wins where their
		// input conditions overlap.
		if pRS >= 0 {
			init = init.ForceBit(pRS, setLevel)
		}
		if pEna >= 0 {
			init = init.HoldBit(pEna, pOld)
		}
		tgt.SetParam(ice40.LUTInitParam, init.String())
	}
	return nil
}

// bindInput connects a net to a free LUT input, declaring the port if the
// LUT never had it wired and dropping a leftover constant-zero tie.
func (o *Optimizer) bindInput(tgt *netlist.Cell, port, netName string) error {
	if _, ok := tgt.Port(port); !ok {
		if err := tgt.AddInput(port); err != nil {
			return err
		}
	} else if err := o.nl.Disconnect(tgt.Name, port); err != nil {
		return err
	}
	return o.nl.Connect(netName, tgt.Name, port)
}

// spliceLUT inserts a fresh pass-through LUT between a flip-flop's data
// input and its driver, returning it with its three unbound inputs.
func (o *Optimizer) spliceLUT(cell *netlist.Cell) (*netlist.Cell, []string, error) {
	lut, err := o.nl.CreateCell(cell.Name+"_conv", ice40.LUT4)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range lutInputs {
		if err := lut.AddInput(p); err != nil {
			return nil, nil, err
		}
	}
	if err := lut.AddOutput("O"); err != nil {
		return nil, nil, err
	}
	lut.SetParam(ice40.LUTInitParam, ice40.PassThrough(3).String())

	nn, err := o.nl.CreateNet(cell.Name + "_net")
	if err != nil {
		return nil, nil, err
	}

	old := cell.PortNet("D")
	if old == nil {
		return nil, nil, errors.Errorf("cset: flip-flop %q has an unconnected D input", cell.Name)
	}
	if err := o.nl.Disconnect(cell.Name, "D"); err != nil {
		return nil, nil, err
	}
	if err := o.nl.Connect(old.Name, lut.Name, "I3"); err != nil {
		return nil, nil, err
	}
	if err := o.nl.Connect(nn.Name, lut.Name, "O"); err != nil {
		return nil, nil, err
	}
	if err := o.nl.Connect(nn.Name, cell.Name, "D"); err != nil {
		return nil, nil, err
	}
	return lut, []string{"I0", "I1", "I2"}, nil
}

func inputIndex(port string) int {
	return int(port[1] - '0')
}
