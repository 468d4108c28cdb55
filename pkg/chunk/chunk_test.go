package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/crux/pkg/value"
)

func TestWriteKeepsCodeAndLinesParallel(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpTrue, 1)
	c.Write(0xAB, 2)

	require.Len(t, c.Code, 3)
	require.Equal(t, len(c.Code), len(c.Lines))
	require.Equal(t, []int{1, 1, 2}, c.Lines)
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := New()
	i0, err := c.AddConstant(value.NumberVal(1))
	require.NoError(t, err)
	require.Equal(t, 0, i0)

	i1, err := c.AddConstant(value.NumberVal(2))
	require.NoError(t, err)
	require.Equal(t, 1, i1)
}

func TestChunkWithMoreThan256ConstantsIsAnError(t *testing.T) {
	c := New()
	for i := 0; i < MaxConstants; i++ {
		_, err := c.AddConstant(value.NumberVal(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(value.NumberVal(256))
	require.Error(t, err)
	require.Len(t, c.Constants, MaxConstants)
}

func TestOpCodeStringNamesKnownOpcodes(t *testing.T) {
	require.Equal(t, "OP_RETURN", OpReturn.String())
	require.Equal(t, "OP_CALL", OpCall.String())
}

func TestOpCodeStringFallsBackForUnknownByte(t *testing.T) {
	require.Contains(t, OpCode(255).String(), "UNKNOWN")
}
