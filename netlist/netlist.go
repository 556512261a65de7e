// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Package netlist models a mapped netlist: cells with named, directed
// ports, nets with one driver and many users, and the mutation primitives
// the optimization passes need.  Cell and net enumeration follows creation
// order so that passes behave identically from run to run.
package netlist

import (
	"github.com/pkg/errors"

	"github.com/go-air/ice40opt/ice40"
)

// PortRef names one end of a connection.
type PortRef struct {
	Cell *Cell
	Port string
}

// Type Net is a single net.  A net has at most one driving port and any
// number of consuming ports.
type Net struct {
	Name   string
	driver *PortRef
	users  []PortRef
}

// Driver returns the driving port, if any.
func (n *Net) Driver() (PortRef, bool) {
	if n.driver == nil {
		return PortRef{}, false
	}
	return *n.driver, true
}

// Users returns the consuming ports in connection order.  The slice is a
// copy; callers may mutate the netlist while holding it.
func (n *Net) Users() []PortRef {
	us := make([]PortRef, len(n.users))
	copy(us, n.users)
	return us
}

// Type Port is a named, directed pin on a cell, optionally connected.
type Port struct {
	Name string
	Dir  ice40.Dir
	Net  *Net
}

// Type Cell is a netlist cell instance.  Type is mutated in place when a
// pass retypes a flip-flop.
type Cell struct {
	Name string
	Type ice40.CellType

	ports     map[string]*Port
	portOrder []string
	params    map[string]string
	attrs     map[string]string
}

// AddInput declares an input port on c.
func (c *Cell) AddInput(name string) error {
	return c.addPort(name, ice40.DirInput)
}

// AddOutput declares an output port on c.
func (c *Cell) AddOutput(name string) error {
	return c.addPort(name, ice40.DirOutput)
}

func (c *Cell) addPort(name string, d ice40.Dir) error {
	if _, ok := c.ports[name]; ok {
		return errors.Errorf("netlist: cell %q already has port %q", c.Name, name)
	}
	c.ports[name] = &Port{Name: name, Dir: d}
	c.portOrder = append(c.portOrder, name)
	return nil
}

// Port returns the named port, if declared.
func (c *Cell) Port(name string) (*Port, bool) {
	p, ok := c.ports[name]
	return p, ok
}

// PortNet returns the net connected to the named port, or nil if the port
// is undeclared or unconnected.
func (c *Cell) PortNet(name string) *Net {
	if p, ok := c.ports[name]; ok {
		return p.Net
	}
	return nil
}

// Ports returns the declared port names in declaration order.
func (c *Cell) Ports() []string {
	ps := make([]string, len(c.portOrder))
	copy(ps, c.portOrder)
	return ps
}

// Param reads a named parameter.
func (c *Cell) Param(name string) (string, bool) {
	v, ok := c.params[name]
	return v, ok
}

// SetParam writes a named parameter.
func (c *Cell) SetParam(name, val string) {
	c.params[name] = val
}

// Params returns a copy of the parameter map.
func (c *Cell) Params() map[string]string {
	m := make(map[string]string, len(c.params))
	for k, v := range c.params {
		m[k] = v
	}
	return m
}

// Attr reads a named attribute.
func (c *Cell) Attr(name string) (string, bool) {
	v, ok := c.attrs[name]
	return v, ok
}

// SetAttr writes a named attribute.
func (c *Cell) SetAttr(name, val string) {
	c.attrs[name] = val
}

// Attrs returns a copy of the attribute map.
func (c *Cell) Attrs() map[string]string {
	m := make(map[string]string, len(c.attrs))
	for k, v := range c.attrs {
		m[k] = v
	}
	return m
}

// Type Netlist owns all cells and nets of a design.
type Netlist struct {
	Name string

	cells     map[string]*Cell
	cellOrder []*Cell
	nets      map[string]*Net
	netOrder  []*Net
}

// New creates an empty netlist.
func New(name string) *Netlist {
	return &Netlist{
		Name:  name,
		cells: make(map[string]*Cell),
		nets:  make(map[string]*Net),
	}
}

// CreateCell adds a cell with no ports declared yet.
func (nl *Netlist) CreateCell(name string, t ice40.CellType) (*Cell, error) {
	if _, ok := nl.cells[name]; ok {
		return nil, errors.Errorf("netlist: duplicate cell %q", name)
	}
	c := &Cell{
		Name:   name,
		Type:   t,
		ports:  make(map[string]*Port),
		params: make(map[string]string),
		attrs:  make(map[string]string),
	}
	nl.cells[name] = c
	nl.cellOrder = append(nl.cellOrder, c)
	return c, nil
}

// CreateNet adds an unconnected net.
func (nl *Netlist) CreateNet(name string) (*Net, error) {
	if _, ok := nl.nets[name]; ok {
		return nil, errors.Errorf("netlist: duplicate net %q", name)
	}
	n := &Net{Name: name}
	nl.nets[name] = n
	nl.netOrder = append(nl.netOrder, n)
	return n, nil
}

// Cell looks up a cell by name, nil if absent.
func (nl *Netlist) Cell(name string) *Cell {
	return nl.cells[name]
}

// Net looks up a net by name, nil if absent.
func (nl *Netlist) Net(name string) *Net {
	return nl.nets[name]
}

// Cells returns all cells in creation order.  The slice is a snapshot;
// passes may create cells while ranging over it.
func (nl *Netlist) Cells() []*Cell {
	cs := make([]*Cell, len(nl.cellOrder))
	copy(cs, nl.cellOrder)
	return cs
}

// Nets returns all nets in creation order, as a snapshot.
func (nl *Netlist) Nets() []*Net {
	ns := make([]*Net, len(nl.netOrder))
	copy(ns, nl.netOrder)
	return ns
}

// Connect attaches the named net to the named port.  The port must be
// declared and unconnected; a net accepts at most one driver.
func (nl *Netlist) Connect(netName, cellName, portName string) error {
	n := nl.nets[netName]
	if n == nil {
		return errors.Errorf("netlist: connect: no net %q", netName)
	}
	c := nl.cells[cellName]
	if c == nil {
		return errors.Errorf("netlist: connect: no cell %q", cellName)
	}
	p, ok := c.ports[portName]
	if !ok {
		return errors.Errorf("netlist: connect: cell %q has no port %q", cellName, portName)
	}
	if p.Net != nil {
		return errors.Errorf("netlist: connect: port %s.%s already connected to %q", cellName, portName, p.Net.Name)
	}
	ref := PortRef{Cell: c, Port: portName}
	if p.Dir == ice40.DirOutput {
		if n.driver != nil {
			return errors.Errorf("netlist: connect: net %q already driven by %s.%s", netName, n.driver.Cell.Name, n.driver.Port)
		}
		n.driver = &ref
	} else {
		n.users = append(n.users, ref)
	}
	p.Net = n
	return nil
}

// Disconnect detaches the named port from its net.  Disconnecting an
// undeclared or unconnected port is a no-op.
func (nl *Netlist) Disconnect(cellName, portName string) error {
	c := nl.cells[cellName]
	if c == nil {
		return errors.Errorf("netlist: disconnect: no cell %q", cellName)
	}
	p, ok := c.ports[portName]
	if !ok || p.Net == nil {
		return nil
	}
	n := p.Net
	if p.Dir == ice40.DirOutput {
		n.driver = nil
	} else {
		for i, u := range n.users {
			if u.Cell == c && u.Port == portName {
				n.users = append(n.users[:i], n.users[i+1:]...)
				break
			}
		}
	}
	p.Net = nil
	return nil
}
