// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package netlist

import (
	"io"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/go-air/ice40opt/ice40"
)

// Netlist dump schema.  ghodss/yaml works off the json tags, so the same
// schema reads as either JSON or YAML.  Nets are implied by the connection
// references; directions come from the architecture, overridable per cell
// through port_directions (required for cell types the architecture does
// not describe).
type fileNetlist struct {
	Name  string     `json:"name,omitempty"`
	Cells []fileCell `json:"cells"`
}

type fileCell struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Connections    map[string]string `json:"connections,omitempty"`
	PortDirections map[string]string `json:"port_directions,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Attrs          map[string]string `json:"attrs,omitempty"`
}

// Load reads a netlist dump.
func Load(r io.Reader) (*Netlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "netlist: load")
	}
	var f fileNetlist
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "netlist: load")
	}
	nl := New(f.Name)
	for _, fc := range f.Cells {
		c, err := nl.CreateCell(fc.Name, ice40.CellType(fc.Type))
		if err != nil {
			return nil, err
		}
		for k, v := range fc.Params {
			c.SetParam(k, v)
		}
		for k, v := range fc.Attrs {
			c.SetAttr(k, v)
		}
		ports := make([]string, 0, len(fc.Connections))
		for p := range fc.Connections {
			ports = append(ports, p)
		}
		sort.Strings(ports)
		for _, p := range ports {
			dir, err := portDir(fc, p)
			if err != nil {
				return nil, err
			}
			if err := c.addPort(p, dir); err != nil {
				return nil, err
			}
			netName := fc.Connections[p]
			if nl.Net(netName) == nil {
				if _, err := nl.CreateNet(netName); err != nil {
					return nil, err
				}
			}
			if err := nl.Connect(netName, fc.Name, p); err != nil {
				return nil, err
			}
		}
	}
	return nl, nil
}

func portDir(fc fileCell, port string) (ice40.Dir, error) {
	switch fc.PortDirections[port] {
	case "input":
		return ice40.DirInput, nil
	case "output":
		return ice40.DirOutput, nil
	case "":
	default:
		return 0, errors.Errorf("netlist: cell %q port %q: bad direction %q", fc.Name, port, fc.PortDirections[port])
	}
	if d, ok := ice40.PortDir(ice40.CellType(fc.Type), port); ok {
		return d, nil
	}
	return 0, errors.Errorf("netlist: cell %q: unknown direction for port %q on type %s", fc.Name, port, fc.Type)
}

// Save writes nl as a YAML dump.  Cells are written in creation order and
// maps serialize with sorted keys, so equal netlists save identically.
func (nl *Netlist) Save(w io.Writer) error {
	f := fileNetlist{Name: nl.Name}
	for _, c := range nl.Cells() {
		fc := fileCell{Name: c.Name, Type: string(c.Type)}
		for _, pn := range c.Ports() {
			p, _ := c.Port(pn)
			if p.Net == nil {
				continue
			}
			if fc.Connections == nil {
				fc.Connections = make(map[string]string)
			}
			fc.Connections[pn] = p.Net.Name
			if _, ok := ice40.PortDir(c.Type, pn); !ok {
				if fc.PortDirections == nil {
					fc.PortDirections = make(map[string]string)
				}
				fc.PortDirections[pn] = p.Dir.String()
			}
		}
		if len(c.Params()) > 0 {
			fc.Params = c.Params()
		}
		if len(c.Attrs()) > 0 {
			fc.Attrs = c.Attrs()
		}
		f.Cells = append(f.Cells, fc)
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return errors.Wrap(err, "netlist: save")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "netlist: save")
}
