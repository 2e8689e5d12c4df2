package codegen

import (
	"fmt"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/token"
)

type loopTargets struct {
	continueLabel string
	breakLabel    string
}

type scopeBounds struct {
	start string
	end   string
}

// Frame is the compile-time bookkeeping for the one method being emitted:
// operand stack depth and its watermark, local slots, labels, the targets of
// the enclosing loops and the bounds of the enclosing scopes.
type Frame struct {
	name     string
	entry    bool
	depth    int
	maxDepth int
	nextSlot int
	labels   int
	loops    []loopTargets
	scopes   []scopeBounds
	slots    map[*ast.Node]int
	targeted map[string]bool
}

// NewFrame starts a frame for method name. Labels are numbered from
// firstLabel so that they stay unique across the compilation unit.
func NewFrame(name string, entry bool, firstLabel int) *Frame {
	return &Frame{
		name:   name,
		entry:  entry,
		labels:   firstLabel,
		slots:    make(map[*ast.Node]int),
		targeted: make(map[string]bool),
	}
}

func (f *Frame) Name() string   { return f.name }
func (f *Frame) IsEntry() bool  { return f.entry }
func (f *Frame) Depth() int     { return f.depth }
func (f *Frame) MaxDepth() int  { return f.maxDepth }
func (f *Frame) SlotCount() int { return f.nextSlot }

// LabelCount is the next label number this frame would hand out.
func (f *Frame) LabelCount() int { return f.labels }

func (f *Frame) Push(n int) {
	f.depth += n
	if f.depth > f.maxDepth {
		f.maxDepth = f.depth
	}
}

// Pop panics when it would take the depth below zero: the emitted code no
// longer matches the depth model.
func (f *Frame) Pop(n int) {
	if n > f.depth {
		panic(&Error{Construct: f.name, Msg: fmt.Sprintf("operand stack underflow: pop %d at depth %d", n, f.depth)})
	}
	f.depth -= n
}

func (f *Frame) AllocateSlot() int {
	slot := f.nextSlot
	f.nextSlot++
	return slot
}

// BindSlot allocates the next slot for decl and remembers it.
func (f *Frame) BindSlot(decl *ast.Node) int {
	slot := f.AllocateSlot()
	f.slots[decl] = slot
	return slot
}

// SlotOf returns the slot bound to decl in this frame.
func (f *Frame) SlotOf(decl *ast.Node) (int, bool) {
	slot, ok := f.slots[decl]
	return slot, ok
}

func (f *Frame) NewLabel() string {
	l := fmt.Sprintf("L%d", f.labels)
	f.labels++
	return l
}

func (f *Frame) PushLoop(continueLabel, breakLabel string) {
	f.loops = append(f.loops, loopTargets{continueLabel: continueLabel, breakLabel: breakLabel})
}

func (f *Frame) PopLoop() {
	if len(f.loops) == 0 {
		panic(&Error{Construct: f.name, Msg: "loop target stack is empty"})
	}
	f.loops = f.loops[:len(f.loops)-1]
}

func (f *Frame) BreakLabel(tok token.Token) string {
	if len(f.loops) == 0 {
		panic(&Error{Tok: tok, Construct: "break", Msg: "not inside a loop"})
	}
	l := f.loops[len(f.loops)-1].breakLabel
	f.targeted[l] = true
	return l
}

func (f *Frame) ContinueLabel(tok token.Token) string {
	if len(f.loops) == 0 {
		panic(&Error{Tok: tok, Construct: "continue", Msg: "not inside a loop"})
	}
	l := f.loops[len(f.loops)-1].continueLabel
	f.targeted[l] = true
	return l
}

// Targeted reports whether a break or continue has jumped to label.
func (f *Frame) Targeted(label string) bool { return f.targeted[label] }

func (f *Frame) PushScope(start, end string) {
	f.scopes = append(f.scopes, scopeBounds{start: start, end: end})
}

func (f *Frame) PopScope() {
	if len(f.scopes) == 0 {
		panic(&Error{Construct: f.name, Msg: "scope stack is empty"})
	}
	f.scopes = f.scopes[:len(f.scopes)-1]
}

// Scope returns the bounds of the innermost scope, if any.
func (f *Frame) Scope() (start, end string, ok bool) {
	if len(f.scopes) == 0 {
		return "", "", false
	}
	s := f.scopes[len(f.scopes)-1]
	return s.start, s.end, true
}
