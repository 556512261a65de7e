// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-air/ice40opt/ice40"
)

func TestConvertInPlaceReset(t *testing.T) {
	b := newBuilder(t)
	b.lut("lut0", "1010101010101010", map[string]string{"I0": "a", "O": "d"})
	ff := b.cell("ff0", "SB_DFFSR", map[string]string{"D": "d", "C": "clk", "R": "rst", "Q": "q"})
	o := b.opt()

	require.NoError(t, o.convert(ControlSet{RS: "rst", Clk: "clk"}, true, false))

	assert.Equal(t, ice40.CellType("SB_DFF"), ff.Type)
	assert.Nil(t, ff.PortNet("R"))

	// Most-recently-free input takes the reset: free list was I1,I2,I3.
	lut := b.nl.Cell("lut0")
	require.NotNil(t, lut.PortNet("I3"))
	assert.Equal(t, "rst", lut.PortNet("I3").Name)

	// out = I0, with reset forcing zero whenever I3 is high.
	init, _ := lut.Param(ice40.LUTInitParam)
	assert.Equal(t, "0000000010101010", init)

	// No splice happened.
	assert.Nil(t, b.nl.Cell("ff0_conv"))
}

func TestConvertInPlaceSetForcesOne(t *testing.T) {
	b := newBuilder(t)
	b.lut("lut0", "1010101010101010", map[string]string{"I0": "a", "O": "d"})
	ff := b.cell("ff0", "SB_DFFSS", map[string]string{"D": "d", "C": "clk", "S": "set", "Q": "q"})
	o := b.opt()

	require.NoError(t, o.convert(ControlSet{RS: "set", Clk: "clk"}, true, false))

	assert.Equal(t, ice40.CellType("SB_DFF"), ff.Type)
	assert.Nil(t, ff.PortNet("S"))

	lut := b.nl.Cell("lut0")
	init, _ := lut.Param(ice40.LUTInitParam)
	assert.Equal(t, "1111111110101010", init)
}

func TestConvertSplicesForNonLUTDriver(t *testing.T) {
	b := newBuilder(t)
	b.cell("gb0", "SB_GB", map[string]string{"GLOBAL_BUFFER_OUTPUT": "d"})
	ff := b.cell("ff0", "SB_DFFESR", map[string]string{"D": "d", "C": "clk", "E": "en", "R": "rst", "Q": "q"})
	o := b.opt()

	require.NoError(t, o.convert(ControlSet{RS: "rst", Ena: "en", Clk: "clk"}, true, true))

	assert.Equal(t, ice40.CellType("SB_DFF"), ff.Type)
	assert.Nil(t, ff.PortNet("R"))
	assert.Nil(t, ff.PortNet("E"))

	conv := b.nl.Cell("ff0_conv")
	require.NotNil(t, conv)
	assert.Equal(t, ice40.LUT4, conv.Type)

	// Original data input passes through on I3; the spliced net carries
	// the LUT output to the flop.
	assert.Equal(t, "d", conv.PortNet("I3").Name)
	assert.Equal(t, "ff0_net", conv.PortNet("O").Name)
	assert.Equal(t, "ff0_net", ff.PortNet("D").Name)

	// Allocation from the fresh LUT's I0..I2, most-recently-free first:
	// reset on I2, enable on I1, self-feedback on I0.
	assert.Equal(t, "rst", conv.PortNet("I2").Name)
	assert.Equal(t, "en", conv.PortNet("I1").Name)
	assert.Equal(t, "q", conv.PortNet("I0").Name)

	// Pass-through of I3, reset-forced on I2, held via I0 when I1 is low.
	init, _ := conv.Param(ice40.LUTInitParam)
	assert.Equal(t, "0010111000100010", init)
}

func TestConvertSplicesForSharedLUT(t *testing.T) {
	b := newBuilder(t)
	// The driver is a LUT with spare room but two consumers, so it cannot
	// absorb the control logic for either flop.
	b.lut("lut0", "1010101010101010", map[string]string{"I0": "a", "O": "d"})
	b.cell("ff0", "SB_DFFSR", map[string]string{"D": "d", "C": "clk", "R": "rst", "Q": "q0"})
	b.cell("ff1", "SB_DFFSR", map[string]string{"D": "d", "C": "clk", "R": "rst", "Q": "q1"})
	o := b.opt()

	require.NoError(t, o.convert(ControlSet{RS: "rst", Clk: "clk"}, true, false))

	require.NotNil(t, b.nl.Cell("ff0_conv"))
	require.NotNil(t, b.nl.Cell("ff1_conv"))

	// The original LUT still drives both pass-through inputs; its table
	// is untouched.
	init, _ := b.nl.Cell("lut0").Param(ice40.LUTInitParam)
	assert.Equal(t, "1010101010101010", init)
	assert.Len(t, b.nl.Net("d").Users(), 2)
}

func TestConvertReusesConstantTiedInput(t *testing.T) {
	b := newBuilder(t)
	b.gnd("gnd0", "zero")
	b.lut("lut0", "1010101010101010", map[string]string{"I0": "a", "I1": "b", "I2": "c", "I3": "zero", "O": "d"})
	ff := b.cell("ff0", "SB_DFFSR", map[string]string{"D": "d", "C": "clk", "R": "rst", "Q": "q"})
	o := b.opt()

	require.NoError(t, o.convert(ControlSet{RS: "rst", Clk: "clk"}, true, false))

	// The zero tie is dropped and the reset takes its place in the
	// existing LUT.
	assert.Equal(t, ice40.CellType("SB_DFF"), ff.Type)
	lut := b.nl.Cell("lut0")
	assert.Equal(t, "rst", lut.PortNet("I3").Name)
	assert.Nil(t, b.nl.Cell("ff0_conv"))
}

func TestConvertMissingTableIsFatal(t *testing.T) {
	b := newBuilder(t)
	c := b.cell("lut0", ice40.LUT4, map[string]string{"I0": "a", "O": "d"})
	_ = c // no LUT_INIT parameter
	b.cell("ff0", "SB_DFFSR", map[string]string{"D": "d", "C": "clk", "R": "rst", "Q": "q"})
	o := b.opt()

	assert.Error(t, o.convert(ControlSet{RS: "rst", Clk: "clk"}, true, false))
}
