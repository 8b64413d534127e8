package bytecode_test

import (
	"testing"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func TestChunkGetLine(t *testing.T) {
	var c bytecode.Chunk
	c.Write(byte(bytecode.OP_NIL), 1)
	c.Write(byte(bytecode.OP_NIL), 1)
	c.Write(byte(bytecode.OP_POP), 2)
	c.Write(byte(bytecode.OP_POP), 2)
	c.Write(byte(bytecode.OP_RETURN), 5)

	require.Equal(t, 1, c.GetLine(0))
	require.Equal(t, 1, c.GetLine(1))
	require.Equal(t, 2, c.GetLine(2))
	require.Equal(t, 2, c.GetLine(3))
	require.Equal(t, 5, c.GetLine(4))
}

func TestChunkAddConstant(t *testing.T) {
	var c bytecode.Chunk
	i := c.AddConstant(bytecode.Number(1))
	j := c.AddConstant(bytecode.Number(2))
	require.Equal(t, 0, i)
	require.Equal(t, 1, j)
	require.Len(t, c.Constants, 2)
}

func TestValueEqualityAndFalsey(t *testing.T) {
	require.True(t, bytecode.Equal(bytecode.Nil, bytecode.Nil))
	require.False(t, bytecode.Equal(bytecode.Nil, bytecode.Bool(false)))
	require.True(t, bytecode.Equal(bytecode.Number(3), bytecode.Number(3)))
	require.False(t, bytecode.Equal(bytecode.Number(0), bytecode.Bool(false)))

	require.True(t, bytecode.Nil.IsFalsey())
	require.True(t, bytecode.Bool(false).IsFalsey())
	require.True(t, bytecode.Number(0).IsFalsey())
	require.False(t, bytecode.Number(1).IsFalsey())
	require.False(t, bytecode.Bool(true).IsFalsey())
}
