// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

// DefaultThreshold is the member count at which a control set is left
// alone: consolidation only pays off when the merged set reaches it.
const DefaultThreshold = 4

// Type Optimizer carries the state of one consolidation run over a
// netlist: the equivalence index from control set to member flops, and the
// set of globally buffered nets.
type Optimizer struct {
	nl    *netlist.Netlist
	index map[ControlSet][]*netlist.Cell

	// Nets driven by a global buffer.  Informational for now; see the
	// note in canConvert's history about global reset priority.
	globals map[string]bool

	log logrus.FieldLogger
}

// New scans nl and builds the equivalence index.  Member lists keep cell
// discovery order.
func New(nl *netlist.Netlist, log logrus.FieldLogger) (*Optimizer, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	o := &Optimizer{
		nl:      nl,
		index:   make(map[ControlSet][]*netlist.Cell),
		globals: make(map[string]bool),
		log:     log,
	}
	for _, c := range nl.Cells() {
		if c.Type == ice40.GlobalBuffer {
			if n := c.PortNet("GLOBAL_BUFFER_OUTPUT"); n != nil {
				o.globals[n.Name] = true
			}
			continue
		}
		if !ice40.IsDFF(c.Type) {
			continue
		}
		cs, err := FromCell(c)
		if err != nil {
			return nil, err
		}
		o.index[cs] = append(o.index[cs], c)
	}
	o.log.Debugf("%d control sets over %d globally buffered nets", len(o.index), len(o.globals))
	return o, nil
}

// Sets returns the current distinct control sets, sorted.
func (o *Optimizer) Sets() []ControlSet {
	sets := make([]ControlSet, 0, len(o.index))
	for cs := range o.index {
		sets = append(sets, cs)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].less(sets[j]) })
	return sets
}

// Members returns the member flops of cs in discovery order.
func (o *Optimizer) Members(cs ControlSet) []*netlist.Cell {
	ms := make([]*netlist.Cell, len(o.index[cs]))
	copy(ms, o.index[cs])
	return ms
}

// candidate is one evaluated consolidation: remove the given pins from
// every control set in group, landing all their flops on tgt.
type candidate struct {
	tgt   ControlSet
	rmRS  bool
	rmEna bool
	cost  int
	cells int
	group []ControlSet
}

// better ranks candidates by cost per merged control set, ties to the
// larger resulting group.  Comparison is cross-multiplied to stay in
// integers.  A full tie is not better: the caller keeps the earliest
// candidate, matching the removal evaluation order.
func (c *candidate) better(d *candidate) bool {
	l, r := c.cost*len(d.group), d.cost*len(c.group)
	if l != r {
		return l < r
	}
	return c.cells > d.cells
}

// Optimize runs the consolidation to fixpoint over a snapshot worklist of
// the control sets present at entry.  The index is mutated as winners are
// applied; the worklist is pruned defensively so no set is converted
// twice.
func (o *Optimizer) Optimize(threshold int) error {
	work := make([]ControlSet, 0, len(o.index))
	for cs := range o.index {
		work = append(work, cs)
	}
	// Fixed processing order, for reproducible runs.
	sort.Slice(work, func(i, j int) bool { return work[i].less(work[j]) })

	before := len(o.index)
	total := 0

	for len(work) > 0 {
		cs := work[len(work)-1]
		work = work[:len(work)-1]

		// Well-used sets are not worth touching.
		if len(o.index[cs]) >= threshold {
			continue
		}

		best, err := o.pick(cs, work, threshold)
		if err != nil {
			return err
		}
		if best == nil {
			continue
		}

		for _, g := range best.group {
			if err := o.convert(g, best.rmRS, best.rmEna); err != nil {
				return err
			}
			work = removeSet(work, g)
			moved := o.index[g]
			delete(o.index, g)
			o.index[best.tgt] = append(o.index[best.tgt], moved...)
		}
		total += best.cost
	}

	o.log.Infof("control set optimizer: cost %d to reduce control sets from %d to %d",
		total, before, len(o.index))
	o.logStats()
	return nil
}

// pick evaluates the three removal combinations for cs and returns the
// best viable candidate, nil if none reaches the threshold.
func (o *Optimizer) pick(cs ControlSet, work []ControlSet, threshold int) (*candidate, error) {
	var best *candidate

	for conv := 1; conv < 4; conv++ {
		rmRS, rmEna := conv&1 != 0, conv&2 != 0
		if !o.canConvert(cs, rmRS, rmEna) {
			continue
		}

		tgt := cs.target(rmRS, rmEna)
		group := []ControlSet{cs}
		cells := len(o.index[cs])

		// Flops already filed under the target signature join for free.
		if existing, ok := o.index[tgt]; ok {
			cells += len(existing)
		}

		// The same removal may land other under-used sets on the same
		// signature; fold them into the group.  Pointless when the
		// target keeps neither reset nor enable: any such set would
		// already carry the bare signature.
		if tgt.RS != "" || tgt.Ena != "" {
			for _, alt := range work {
				if len(o.index[alt]) >= threshold {
					continue
				}
				if !o.canConvert(alt, rmRS, rmEna) {
					continue
				}
				if alt.target(rmRS, rmEna) != tgt {
					continue
				}
				cells += len(o.index[alt])
				group = append(group, alt)
			}
		}

		if cells < threshold {
			continue
		}

		cost := 0
		for _, g := range group {
			c, err := o.costConvert(g, rmRS, rmEna)
			if err != nil {
				return nil, err
			}
			cost += c
		}

		cand := &candidate{tgt: tgt, rmRS: rmRS, rmEna: rmEna, cost: cost, cells: cells, group: group}
		o.log.Debugf("candidate: cost %d cells %d sets %d -> %+v", cand.cost, cand.cells, len(cand.group), cand.tgt)
		for _, g := range cand.group {
			o.log.Debugf("    %2d %+v", len(o.index[g]), g)
		}
		if best == nil || cand.better(best) {
			best = cand
		}
	}
	return best, nil
}

func removeSet(work []ControlSet, cs ControlSet) []ControlSet {
	for i := range work {
		if work[i] == cs {
			return append(work[:i], work[i+1:]...)
		}
	}
	return work
}

// logStats dumps the size histogram of the index, debug level only.
func (o *Optimizer) logStats() {
	o.log.Debugf("total control sets: %d", len(o.index))

	hist := make(map[int]int)
	for _, cells := range o.index {
		hist[len(cells)]++
	}
	sizes := make([]int, 0, len(hist))
	for n := range hist {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	for _, n := range sizes {
		o.log.Debugf("%d members: %d sets", n, hist[n])
	}

	sets := o.Sets()
	sort.SliceStable(sets, func(i, j int) bool {
		return len(o.index[sets[i]]) < len(o.index[sets[j]])
	})
	for _, cs := range sets {
		o.log.Debugf("%2d %+v", len(o.index[cs]), cs)
	}
}

// Run is the pass entry point: build the index over nl, consolidate with
// the given threshold (DefaultThreshold if zero or negative), and report
// through log.
func Run(nl *netlist.Netlist, threshold int, log logrus.FieldLogger) error {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	o, err := New(nl, log)
	if err != nil {
		return err
	}
	return o.Optimize(threshold)
}
