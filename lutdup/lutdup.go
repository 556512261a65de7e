// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Package lutdup duplicates LUTs that feed several flip-flops.  A LUT and
// a flip-flop can share one logic cell only when the LUT feeds that flop
// alone, so each extra flop consumer gets its own clone of the LUT.
package lutdup

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

// Run clones every LUT whose output feeds two or more flip-flop data
// inputs and nothing else, one clone per extra flop.
func Run(nl *netlist.Netlist, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	groups, created := 0, 0

	for _, lut := range nl.Cells() {
		if lut.Type != ice40.LUT4 {
			continue
		}
		on := lut.PortNet("O")
		if on == nil {
			continue
		}

		// Any consumer other than a flop's D input keeps the net shared.
		var ffs []netlist.PortRef
		other := false
		for _, u := range on.Users() {
			if !ice40.IsDFF(u.Cell.Type) || u.Port != "D" {
				other = true
				break
			}
			ffs = append(ffs, u)
		}
		if other || len(ffs) < 2 {
			continue
		}

		groups++
		created += len(ffs) - 1

		// The first flop keeps the original; the rest get clones.
		for i, u := range ffs[1:] {
			if err := clone(nl, lut, on, u, i); err != nil {
				return err
			}
		}
	}

	log.Infof("lut replication: %d new luts in %d groups", created, groups)
	return nil
}

func clone(nl *netlist.Netlist, lut *netlist.Cell, on *netlist.Net, u netlist.PortRef, i int) error {
	nc, err := nl.CreateCell(fmt.Sprintf("%s_dup%d", lut.Name, i), ice40.LUT4)
	if err != nil {
		return err
	}
	for _, pn := range []string{"I0", "I1", "I2", "I3"} {
		p, ok := lut.Port(pn)
		if !ok {
			continue
		}
		if err := nc.AddInput(pn); err != nil {
			return err
		}
		if p.Net == nil {
			continue
		}
		if err := nl.Connect(p.Net.Name, nc.Name, pn); err != nil {
			return err
		}
	}
	if err := nc.AddOutput("O"); err != nil {
		return err
	}
	for k, v := range lut.Attrs() {
		nc.SetAttr(k, v)
	}
	for k, v := range lut.Params() {
		nc.SetParam(k, v)
	}

	if err := nl.Disconnect(u.Cell.Name, "D"); err != nil {
		return err
	}
	nn, err := nl.CreateNet(fmt.Sprintf("%s_dup%d", on.Name, i))
	if err != nil {
		return err
	}
	if err := nl.Connect(nn.Name, u.Cell.Name, "D"); err != nil {
		return err
	}
	return nl.Connect(nn.Name, nc.Name, "O")
}
