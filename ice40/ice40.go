// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Package ice40 holds the iCE40 architecture vocabulary shared by the
// optimization passes: cell type tags, port directions, the flip-flop
// variant model and 4-input LUT truth tables.
package ice40

import "strings"

// CellType is a cell type tag as found in a mapped netlist.
type CellType string

const (
	LUT4         CellType = "SB_LUT4"
	Carry        CellType = "SB_CARRY"
	GlobalBuffer CellType = "SB_GB"
	GND          CellType = "GND"
	VCC          CellType = "VCC"

	// Post-pack resources, counted by the usage report.
	LogicCell CellType = "ICESTORM_LC"
	RAM       CellType = "ICESTORM_RAM"
	DSP       CellType = "ICESTORM_DSP"
	SPRAM     CellType = "ICESTORM_SPRAM"
)

// LUTInitParam is the parameter holding a LUT4 truth table.
const LUTInitParam = "LUT_INIT"

// SRKind says which of synchronous-style set/reset a flip-flop variant
// carries on its R or S pin.
type SRKind uint8

const (
	SRNone SRKind = iota
	SRReset
	SRSet
)

// Type DFF is the decoded form of an SB_DFF* type tag.  Conversions between
// flip-flop variants are transitions on this struct; the string tag is only
// ever produced whole from the fields, never edited in place.
//
// Async is only meaningful when SR is not SRNone: it distinguishes the
// asynchronous reset/set variants (SB_DFFR, SB_DFFS, ...) from the
// synchronous ones (SB_DFFSR, SB_DFFSS, ...).
type DFF struct {
	NegEdge bool
	Enable  bool
	SR      SRKind
	Async   bool
}

// ParseDFF decodes an SB_DFF* tag.  The second return is false if t is not
// a flip-flop tag.
func ParseDFF(t CellType) (DFF, bool) {
	s := string(t)
	if !strings.HasPrefix(s, "SB_DFF") {
		return DFF{}, false
	}
	rest := s[len("SB_DFF"):]
	var d DFF
	if strings.HasPrefix(rest, "N") {
		d.NegEdge = true
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "E") {
		d.Enable = true
		rest = rest[1:]
	}
	switch rest {
	case "":
	case "R":
		d.SR, d.Async = SRReset, true
	case "S":
		d.SR, d.Async = SRSet, true
	case "SR":
		d.SR = SRReset
	case "SS":
		d.SR = SRSet
	default:
		return DFF{}, false
	}
	return d, true
}

// IsDFF reports whether t is a flip-flop family tag.
func IsDFF(t CellType) bool {
	_, ok := ParseDFF(t)
	return ok
}

// CellType encodes d back into its type tag.
func (d DFF) CellType() CellType {
	var b strings.Builder
	b.WriteString("SB_DFF")
	if d.NegEdge {
		b.WriteByte('N')
	}
	if d.Enable {
		b.WriteByte('E')
	}
	switch d.SR {
	case SRReset:
		if !d.Async {
			b.WriteByte('S')
		}
		b.WriteByte('R')
	case SRSet:
		if !d.Async {
			b.WriteByte('S')
		}
		b.WriteByte('S')
	}
	return CellType(b.String())
}

// WithoutSR is the conversion transition removing the set/reset pin.
func (d DFF) WithoutSR() DFF {
	d.SR, d.Async = SRNone, false
	return d
}

// WithoutEnable is the conversion transition removing the clock enable pin.
func (d DFF) WithoutEnable() DFF {
	d.Enable = false
	return d
}

// Dir is a port direction.
type Dir uint8

const (
	DirInput Dir = iota
	DirOutput
)

func (d Dir) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// PortDir gives the direction of a named port on a cell of type t.  The
// second return is false when the architecture does not define the port.
func PortDir(t CellType, port string) (Dir, bool) {
	if IsDFF(t) {
		switch port {
		case "D", "C", "E", "R", "S":
			return DirInput, true
		case "Q":
			return DirOutput, true
		}
		return 0, false
	}
	switch t {
	case LUT4:
		switch port {
		case "I0", "I1", "I2", "I3":
			return DirInput, true
		case "O":
			return DirOutput, true
		}
	case Carry:
		switch port {
		case "I0", "I1", "CI":
			return DirInput, true
		case "CO":
			return DirOutput, true
		}
	case GlobalBuffer:
		switch port {
		case "USER_SIGNAL_TO_GLOBAL_BUFFER":
			return DirInput, true
		case "GLOBAL_BUFFER_OUTPUT":
			return DirOutput, true
		}
	case GND, VCC:
		if port == "Y" {
			return DirOutput, true
		}
	}
	return 0, false
}
