// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package ice40

import "github.com/pkg/errors"

// Type LUTInit is a 16-entry LUT4 truth table.  Bit i is the output for
// input combination i, where bit b of i is the logic level on input Ib.
type LUTInit uint16

// ParseLUTInit decodes the fixed-width binary string form of a truth table
// (16 characters, bit 15 first).
func ParseLUTInit(s string) (LUTInit, error) {
	if len(s) != 16 {
		return 0, errors.Errorf("ice40: LUT_INIT %q: want 16 bits, have %d", s, len(s))
	}
	var v LUTInit
	for i := 0; i < 16; i++ {
		v <<= 1
		switch s[i] {
		case '1':
			v |= 1
		case '0':
		default:
			return 0, errors.Errorf("ice40: LUT_INIT %q: bad character %q", s, s[i])
		}
	}
	return v, nil
}

// String encodes v as the fixed-width binary parameter string.
func (v LUTInit) String() string {
	b := make([]byte, 16)
	for i := 0; i < 16; i++ {
		if v&(1<<uint(15-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// PassThrough builds the table computing output = input p.
func PassThrough(p int) LUTInit {
	var v LUTInit
	for i := 0; i < 16; i++ {
		if i&(1<<uint(p)) != 0 {
			v |= 1 << uint(i)
		}
	}
	return v
}

// ForceBit forces the output to level for every input combination where
// input p is asserted.  Combinations with p deasserted are unchanged.
// This reproduces a synchronous set (level true) or reset (level false)
// moved onto a LUT input.
func (v LUTInit) ForceBit(p int, level bool) LUTInit {
	for i := 0; i < 16; i++ {
		if i&(1<<uint(p)) == 0 {
			continue
		}
		if level {
			v |= 1 << uint(i)
		} else {
			v &^= 1 << uint(i)
		}
	}
	return v
}

// HoldBit forces the output to the level of input po for every input
// combination where input pe is deasserted.  Combinations with pe asserted
// are unchanged.  With pe carrying a clock enable and po the flip-flop's
// own output, this reproduces hold-current-value behavior.
func (v LUTInit) HoldBit(pe, po int) LUTInit {
	for i := 0; i < 16; i++ {
		if i&(1<<uint(pe)) != 0 {
			continue
		}
		if i&(1<<uint(po)) != 0 {
			v |= 1 << uint(i)
		} else {
			v &^= 1 << uint(i)
		}
	}
	return v
}
