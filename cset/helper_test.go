// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/go-air/ice40opt/ice40"
	"github.com/go-air/ice40opt/netlist"
)

type builder struct {
	t  *testing.T
	nl *netlist.Netlist
}

func newBuilder(t *testing.T) *builder {
	return &builder{t: t, nl: netlist.New("t")}
}

// cell creates a cell with architecture-declared ports and connects the
// given port-to-net map, creating nets on first use.
func (b *builder) cell(name string, typ ice40.CellType, conns map[string]string) *netlist.Cell {
	c, err := b.nl.CreateCell(name, typ)
	require.NoError(b.t, err)

	ports := make([]string, 0, len(conns))
	for p := range conns {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	for _, p := range ports {
		dir, ok := ice40.PortDir(typ, p)
		require.True(b.t, ok, "%s.%s", typ, p)
		if dir == ice40.DirOutput {
			require.NoError(b.t, c.AddOutput(p))
		} else {
			require.NoError(b.t, c.AddInput(p))
		}
		if b.nl.Net(conns[p]) == nil {
			_, err := b.nl.CreateNet(conns[p])
			require.NoError(b.t, err)
		}
		require.NoError(b.t, b.nl.Connect(conns[p], name, p))
	}
	return c
}

// lut creates a LUT4 with the given table and connections.
func (b *builder) lut(name, init string, conns map[string]string) *netlist.Cell {
	c := b.cell(name, ice40.LUT4, conns)
	c.SetParam(ice40.LUTInitParam, init)
	return c
}

// gnd creates a constant-zero driver on the named net.
func (b *builder) gnd(name, net string) *netlist.Cell {
	// GND exposes Y as its output.
	return b.cell(name, ice40.GND, map[string]string{"Y": net})
}

func (b *builder) opt() *Optimizer {
	log, _ := logtest.NewNullLogger()
	o, err := New(b.nl, log)
	require.NoError(b.t, err)
	return o
}

func (b *builder) optHooked() (*Optimizer, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	o, err := New(b.nl, log)
	require.NoError(b.t, err)
	return o, hook
}

func optLoggerWithHook() (logrus.FieldLogger, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	return log, hook
}

func infoMessages(hook *logtest.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}
