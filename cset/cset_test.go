// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

package cset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCell(t *testing.T) {
	b := newBuilder(t)

	ff := b.cell("ff0", "SB_DFFESR", map[string]string{
		"D": "d", "C": "clk", "E": "en", "R": "rst", "Q": "q",
	})
	cs, err := FromCell(ff)
	require.NoError(t, err)
	assert.Equal(t, ControlSet{RS: "rst", Ena: "en", Clk: "clk"}, cs)

	bare := b.cell("ff1", "SB_DFF", map[string]string{"D": "d2", "C": "clk", "Q": "q2"})
	cs, err = FromCell(bare)
	require.NoError(t, err)
	assert.Equal(t, ControlSet{Clk: "clk"}, cs)
}

func TestFromCellResetWinsOverSet(t *testing.T) {
	b := newBuilder(t)
	ff := b.cell("ff0", "SB_DFFSS", map[string]string{
		"D": "d", "C": "clk", "S": "set", "R": "rst", "Q": "q",
	})
	cs, err := FromCell(ff)
	require.NoError(t, err)
	assert.Equal(t, "rst", cs.RS)
}

func TestFromCellRejectsNonFlop(t *testing.T) {
	b := newBuilder(t)
	lut := b.lut("lut0", "1111111100000000", map[string]string{"O": "n"})
	_, err := FromCell(lut)
	assert.Error(t, err)
}

func TestTarget(t *testing.T) {
	cs := ControlSet{RS: "r", Ena: "e", Clk: "c"}
	assert.Equal(t, ControlSet{Ena: "e", Clk: "c"}, cs.target(true, false))
	assert.Equal(t, ControlSet{RS: "r", Clk: "c"}, cs.target(false, true))
	assert.Equal(t, ControlSet{Clk: "c"}, cs.target(true, true))
}
