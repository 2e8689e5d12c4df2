package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/token"
)

func TestFrameDepthWatermark(t *testing.T) {
	f := NewFrame("f", false, 0)
	f.Push(2)
	f.Pop(1)
	f.Push(3)
	assert.Equal(t, 4, f.Depth())
	f.Pop(4)
	assert.Equal(t, 0, f.Depth())
	assert.Equal(t, 4, f.MaxDepth(), "watermark survives pops")
}

func TestFramePopUnderflow(t *testing.T) {
	f := NewFrame("f", false, 0)
	f.Push(1)
	defer func() {
		e, ok := recover().(*Error)
		require.True(t, ok, "underflow panics with *Error")
		assert.Contains(t, e.Error(), "underflow")
		assert.Equal(t, 1, f.Depth(), "depth is untouched by a failed pop")
	}()
	f.Pop(2)
}

func TestFrameSlots(t *testing.T) {
	f := NewFrame("main", true, 0)
	assert.True(t, f.IsEntry())
	assert.Equal(t, 0, f.AllocateSlot())
	assert.Equal(t, 1, f.AllocateSlot())

	a := ast.NewVarDecl(token.Token{}, "a", ast.TypeInt, nil, ast.StorageLocal)
	b := ast.NewVarDecl(token.Token{}, "b", ast.TypeFloat, nil, ast.StorageLocal)
	assert.Equal(t, 2, f.BindSlot(a))
	assert.Equal(t, 3, f.BindSlot(b))
	assert.Equal(t, 4, f.SlotCount())

	slot, ok := f.SlotOf(b)
	require.True(t, ok)
	assert.Equal(t, 3, slot)
	_, ok = f.SlotOf(ast.NewVarDecl(token.Token{}, "c", ast.TypeInt, nil, ast.StorageLocal))
	assert.False(t, ok)
}

func TestFrameLabelsContinueNumbering(t *testing.T) {
	f := NewFrame("g", false, 7)
	assert.Equal(t, "L7", f.NewLabel())
	assert.Equal(t, "L8", f.NewLabel())
	assert.Equal(t, 9, f.LabelCount())
}

func TestFrameTracksTargetedLabels(t *testing.T) {
	f := NewFrame("f", false, 0)
	f.PushLoop("Lc", "Lb")
	assert.False(t, f.Targeted("Lb"))
	f.BreakLabel(token.Token{})
	assert.True(t, f.Targeted("Lb"))
	assert.False(t, f.Targeted("Lc"))
	f.ContinueLabel(token.Token{})
	assert.True(t, f.Targeted("Lc"))
}

func TestFrameLoopTargets(t *testing.T) {
	f := NewFrame("f", false, 0)
	f.PushLoop("Lc1", "Lb1")
	f.PushLoop("Lc2", "Lb2")
	assert.Equal(t, "Lb2", f.BreakLabel(token.Token{}))
	assert.Equal(t, "Lc2", f.ContinueLabel(token.Token{}))
	f.PopLoop()
	assert.Equal(t, "Lb1", f.BreakLabel(token.Token{}))
	assert.Equal(t, "Lc1", f.ContinueLabel(token.Token{}))
	f.PopLoop()

	tok := token.Token{Line: 3, Column: 5}
	defer func() {
		e, ok := recover().(*Error)
		require.True(t, ok)
		assert.Equal(t, "break", e.Construct)
		assert.Equal(t, tok, e.Tok)
	}()
	f.BreakLabel(tok)
}

func TestFrameScopes(t *testing.T) {
	f := NewFrame("f", false, 0)
	_, _, ok := f.Scope()
	assert.False(t, ok)

	f.PushScope("L0", "L1")
	f.PushScope("L2", "L3")
	start, end, ok := f.Scope()
	require.True(t, ok)
	assert.Equal(t, "L2", start)
	assert.Equal(t, "L3", end)
	f.PopScope()
	start, end, _ = f.Scope()
	assert.Equal(t, "L0", start)
	assert.Equal(t, "L1", end)
	f.PopScope()

	assert.Panics(t, f.PopScope)
	assert.Panics(t, f.PopLoop)
}
