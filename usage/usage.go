// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Package usage reports post-pack resource usage as a per-hierarchy-level
// table.  Cell names are hierarchical paths separated by dots; each level
// shows its own count and its subtree total for every tracked resource.
package usage

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

type resource struct {
	t      ice40.CellType
	label  string
	digits int
}

var resources = []resource{
	{ice40.LogicCell, "LC", 5},
	{ice40.RAM, "RAM", 2},
	{ice40.DSP, "DSP", 1},
	{ice40.SPRAM, "SPRAM", 1},
}

func resIndex(t ice40.CellType) int {
	for i, r := range resources {
		if r.t == t {
			return i
		}
	}
	return -1
}

type counts struct {
	self  int
	total int
}

type node struct {
	use      [4]counts
	children map[string]*node
}

func (n *node) child(name string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[name]
	if !ok {
		c = &node{}
		n.children[name] = c
	}
	return c
}

// Report writes the usage table for nl to w.
func Report(nl *netlist.Netlist, w io.Writer) error {
	root := &node{}
	for _, c := range nl.Cells() {
		ri := resIndex(c.Type)
		if ri < 0 {
			continue
		}
		path := strings.Split(c.Name, ".")
		b := root
		for i, seg := range path {
			b.use[ri].total++
			if i == len(path)-1 {
				b.use[ri].self++
			} else {
				b = b.child(seg)
			}
		}
	}

	var sb strings.Builder
	writeHeader(&sb)
	writeNode(&sb, root, "/", 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

// Column width: room for the label or for self/total at full digit width,
// whichever is wider.
func colWidth(r resource) int {
	l := 2 + len(r.label)
	if m := 2*r.digits + 3; m > l {
		l = m
	}
	return l
}

func writeHeader(sb *strings.Builder) {
	var hdr1, hdr2 []string
	for _, r := range resources {
		l := colWidth(r)
		hdr1 = append(hdr1, " "+r.label+strings.Repeat(" ", l-2-len(r.label))+" ")
		hdr2 = append(hdr2, strings.Repeat("-", l))
	}
	hdr1 = append(hdr1, " Path")
	hdr2 = append(hdr2, strings.Repeat("-", 20))
	sb.WriteString(strings.Join(hdr1, "|") + "\n")
	sb.WriteString(strings.Join(hdr2, "|") + "\n")
}

func writeNode(sb *strings.Builder, n *node, name string, lvl int) {
	var cols []string
	for i, r := range resources {
		pad := colWidth(r) - (2*r.digits + 3)
		cols = append(cols, fmt.Sprintf(" %s%*d/%*d%s ",
			strings.Repeat(" ", pad/2),
			r.digits, n.use[i].self,
			r.digits, n.use[i].total,
			strings.Repeat(" ", (pad+1)/2)))
	}
	cols = append(cols, " "+strings.Repeat("  ", lvl)+name)
	sb.WriteString(strings.Join(cols, "|") + "\n")

	names := make([]string, 0, len(n.children))
	for k := range n.children {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		writeNode(sb, n.children[k], k, lvl+1)
	}
}
