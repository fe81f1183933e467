package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ops(l *List) []uint8 {
	var out []uint8
	for _, in := range l.Slice() {
		out = append(out, in.Op)
	}
	return out
}

func TestCursorInsertBeforeSkipsInserted(t *testing.T) {
	l := NewList(Insn(OpAload0), Insn(OpAreturn), Insn(OpAconstNull), Insn(OpAreturn))

	var visited []uint8
	it := l.Iterator()
	for it.HasNext() {
		in, _ := it.Next()
		visited = append(visited, in.Op)
		if in.Op == OpAreturn {
			require.NoError(t, it.InsertBefore(Insn(OpNop)))
		}
	}

	assert.Equal(t, []uint8{OpAload0, OpAreturn, OpAconstNull, OpAreturn}, visited)
	assert.Equal(t, []uint8{OpAload0, OpNop, OpAreturn, OpAconstNull, OpNop, OpAreturn}, ops(l))
	assert.Equal(t, 6, l.Len())
}

func TestCursorInsertAfterIsNotRevisited(t *testing.T) {
	l := NewList(Insn(OpIload0), Insn(OpIreturn))

	it := l.Iterator()
	in, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, uint8(OpIload0), in.Op)
	require.NoError(t, it.InsertAfter(Insn(OpNop)))

	in, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, uint8(OpIreturn), in.Op)
	assert.False(t, it.HasNext())
	assert.Equal(t, []uint8{OpIload0, OpNop, OpIreturn}, ops(l))
}

func TestCursorInvalidState(t *testing.T) {
	l := NewList(Insn(OpNop))

	it := l.Iterator()
	assert.ErrorIs(t, it.InsertBefore(Insn(OpNop)), ErrInvalidCursorState)
	assert.ErrorIs(t, it.InsertAfter(Insn(OpNop)), ErrInvalidCursorState)
	assert.ErrorIs(t, it.Remove(), ErrInvalidCursorState)
	_, err := it.Current()
	assert.ErrorIs(t, err, ErrInvalidCursorState)

	_, ok := it.Next()
	require.True(t, ok)
	it.Add(Insn(OpPop))
	assert.ErrorIs(t, it.InsertBefore(Insn(OpNop)), ErrInvalidCursorState)
	assert.Equal(t, []uint8{OpNop, OpPop}, ops(l))
}

func TestCursorPreviousAndAdd(t *testing.T) {
	// Mirrors the list iterator dance: step back over the return, add the
	// call in front of it and step over the return again.
	l := NewList(Insn(OpAload0), Insn(OpAreturn))

	it := l.Iterator()
	for it.HasNext() {
		in, _ := it.Next()
		if in.Op != OpAreturn {
			continue
		}
		prev, ok := it.Previous()
		require.True(t, ok)
		require.Equal(t, uint8(OpAreturn), prev.Op)
		it.Add(Insn(OpNop))
		again, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, uint8(OpAreturn), again.Op)
	}
	assert.Equal(t, []uint8{OpAload0, OpNop, OpAreturn}, ops(l))
}

func TestCursorsStayValidAcrossEdits(t *testing.T) {
	l := NewList(Insn(OpIconst0), Insn(OpPop), Insn(OpReturn))

	a := l.Iterator()
	a.Next()

	b := l.Iterator()
	b.Next()
	b.Next()
	b.Next()
	require.NoError(t, b.InsertBefore(Insn(OpNop)))

	c := l.Iterator()
	c.Next()
	c.Next()
	require.NoError(t, c.Remove())

	// a was parked in front of the removed pop and resumes after it.
	var rest []uint8
	for a.HasNext() {
		in, _ := a.Next()
		rest = append(rest, in.Op)
	}
	assert.Equal(t, []uint8{OpNop, OpReturn}, rest)
	assert.Equal(t, []uint8{OpIconst0, OpNop, OpReturn}, ops(l))
}
