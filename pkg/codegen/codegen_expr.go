package codegen

import (
	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/ir"
	"github.com/xplshn/vcc/pkg/token"
)

// evalCtx tells an expression how its enclosing construct uses it.
// assignTarget is set on the left operand of an assignment; resultUsed is
// clear only where the value would be discarded.
type evalCtx struct {
	assignTarget bool
	resultUsed   bool
}

var (
	valueCtx  = evalCtx{resultUsed: true}
	effectCtx = evalCtx{}
)

// codegenExpr leaves the value of node on the stack, except for void calls,
// assignments whose result is unused, initializer lists and assignment
// targets, whose stack effects are documented on their emitters.
func (ctx *Context) codegenExpr(node *ast.Node, ec evalCtx) {
	switch node.Type {
	case ast.IntLit:
		op, args := intConst(node.Data.(ast.IntLitNode).Value)
		ctx.emit(op, args...)
		ctx.frame.Push(1)
	case ast.FloatLit:
		op, args := floatConst(node.Data.(ast.FloatLitNode).Value)
		ctx.emit(op, args...)
		ctx.frame.Push(1)
	case ast.BoolLit:
		if node.Data.(ast.BoolLitNode).Value {
			ctx.emit(ir.OpIconst1)
		} else {
			ctx.emit(ir.OpIconst0)
		}
		ctx.frame.Push(1)
	case ast.StringLit:
		ctx.emit(ir.OpLdc, quoteString(node.Data.(ast.StringLitNode).Value))
		ctx.frame.Push(1)
	case ast.Ident:
		ctx.codegenIdent(node)
	case ast.Assign:
		ctx.codegenAssign(node, ec)
	case ast.BinaryOp:
		ctx.codegenBinaryOp(node)
	case ast.UnaryOp:
		ctx.codegenUnaryOp(node)
	case ast.FuncCall:
		ctx.codegenCall(node)
	case ast.Subscript:
		ctx.codegenSubscript(node, ec)
	case ast.InitList:
		fail(node.Tok, "initializer list", "only allowed as an array declaration initializer")
	default:
		fail(node.Tok, "expression", "unexpected %s node", node.Type)
	}
}

func varDecl(node *ast.Node) (*ast.Node, ast.VarDeclNode) {
	d := node.Data.(ast.IdentNode)
	if d.Decl == nil {
		fail(node.Tok, "identifier "+d.Name, "reference is not linked to a declaration")
	}
	vd, ok := d.Decl.Data.(ast.VarDeclNode)
	if !ok {
		fail(node.Tok, "identifier "+d.Name, "does not name a variable")
	}
	return d.Decl, vd
}

func (ctx *Context) globalDescriptor(tok token.Token, name string) string {
	desc, ok := ctx.globals[name]
	if !ok {
		fail(tok, "identifier "+name, "global has no field declaration")
	}
	return desc
}

func (ctx *Context) localSlot(tok token.Token, decl *ast.Node, name string) int {
	slot, ok := ctx.frame.SlotOf(decl)
	if !ok {
		fail(tok, "identifier "+name, "no slot allocated in %s", ctx.frame.Name())
	}
	return slot
}

func (ctx *Context) codegenIdent(node *ast.Node) {
	decl, d := varDecl(node)
	if d.Storage == ast.StorageGlobal {
		ctx.emit(ir.OpGetstatic, ctx.qualify(d.Name), ctx.globalDescriptor(node.Tok, d.Name))
	} else {
		op, args := loadOp(node.Tok, d.Type, ctx.localSlot(node.Tok, decl, d.Name))
		ctx.emit(op, args...)
	}
	ctx.frame.Push(1)
}

func (ctx *Context) storeVar(node *ast.Node) {
	decl, d := varDecl(node)
	if d.Storage == ast.StorageGlobal {
		ctx.emit(ir.OpPutstatic, ctx.qualify(d.Name), ctx.globalDescriptor(node.Tok, d.Name))
	} else {
		op, args := storeOp(node.Tok, d.Type, ctx.localSlot(node.Tok, decl, d.Name))
		ctx.emit(op, args...)
	}
	ctx.frame.Pop(1)
}

// codegenAssign stores the right-hand side into the target. The stored value
// is duplicated and left as the result only when ec.resultUsed is set.
//
// Array element targets leave (ref, index) below the value; the duplicate is
// tucked beneath them with dup_x2 so the store sees (ref, index, value).
func (ctx *Context) codegenAssign(node *ast.Node, ec evalCtx) {
	d := node.Data.(ast.AssignNode)
	switch d.Lhs.Type {
	case ast.Ident:
		ctx.codegenExpr(d.Rhs, valueCtx)
		if ec.resultUsed {
			ctx.emit(ir.OpDup)
			ctx.frame.Push(1)
		}
		ctx.storeVar(d.Lhs)
	case ast.Subscript:
		ctx.codegenExpr(d.Lhs, evalCtx{assignTarget: true, resultUsed: true})
		ctx.codegenExpr(d.Rhs, valueCtx)
		if ec.resultUsed {
			ctx.emit(ir.OpDupX2)
			ctx.frame.Push(1)
		}
		ctx.emit(arrayStoreOp(node.Tok, d.Lhs.Typ))
		ctx.frame.Pop(3)
	default:
		fail(node.Tok, "assignment", "cannot assign to %s", d.Lhs.Type)
	}
}

// codegenSubscript pushes the array reference and the index; as an
// assignment target it stops there, otherwise it loads the element.
func (ctx *Context) codegenSubscript(node *ast.Node, ec evalCtx) {
	d := node.Data.(ast.SubscriptNode)
	if !d.Array.Typ.IsArray() {
		fail(node.Tok, "array index", "indexed value has type %s", d.Array.Typ)
	}
	ctx.codegenExpr(d.Array, valueCtx)
	ctx.codegenExpr(d.Index, valueCtx)
	if ec.assignTarget {
		return
	}
	ctx.frame.Pop(2)
	ctx.emit(arrayLoadOp(node.Tok, d.Array.Typ.Elem))
	ctx.frame.Push(1)
}

// codegenInitList fills the array whose reference is on top of the stack.
func (ctx *Context) codegenInitList(node *ast.Node, elem *ast.VcType) {
	if node.Type != ast.InitList {
		fail(node.Tok, "array declaration", "initializer is a %s, not a list", node.Type)
	}
	store := arrayStoreOp(node.Tok, elem)
	for i, e := range node.Data.(ast.InitListNode).Elems {
		ctx.emit(ir.OpDup)
		ctx.frame.Push(1)
		op, args := intConst(int32(i))
		ctx.emit(op, args...)
		ctx.frame.Push(1)
		ctx.codegenExpr(e, valueCtx)
		ctx.emit(store)
		ctx.frame.Pop(3)
	}
}

func (ctx *Context) codegenUnaryOp(node *ast.Node) {
	d := node.Data.(ast.UnaryOpNode)
	ctx.codegenExpr(d.Expr, valueCtx)

	switch d.Op {
	case token.Plus:
	case token.Minus:
		ctx.frame.Pop(1)
		switch representation(node.Tok, d.Expr.Typ) {
		case reprInt:
			ctx.emit(ir.OpIneg)
		case reprFloat:
			ctx.emit(ir.OpFneg)
		default:
			fail(node.Tok, "unary operator", "cannot negate a value of type %s", d.Expr.Typ)
		}
		ctx.frame.Push(1)
	case token.Not:
		ctx.frame.Pop(1)
		falseLabel := ctx.frame.NewLabel()
		joinLabel := ctx.frame.NewLabel()
		ctx.emit(ir.OpIfeq, falseLabel)
		ctx.emit(ir.OpIconst0)
		ctx.emit(ir.OpGoto, joinLabel)
		ctx.label(falseLabel)
		ctx.emit(ir.OpIconst1)
		ctx.label(joinLabel)
		ctx.frame.Push(1)
	case token.I2F:
		ctx.frame.Pop(1)
		ctx.emit(ir.OpI2f)
		ctx.frame.Push(1)
	default:
		fail(node.Tok, "unary operator", "unsupported operator %s", d.Op)
	}
}

var (
	intArith = map[token.Type]ir.Op{
		token.Plus: ir.OpIadd, token.Minus: ir.OpIsub, token.Star: ir.OpImul, token.Slash: ir.OpIdiv,
	}
	floatArith = map[token.Type]ir.Op{
		token.Plus: ir.OpFadd, token.Minus: ir.OpFsub, token.Star: ir.OpFmul, token.Slash: ir.OpFdiv,
	}
	intCompare = map[token.Type]ir.Op{
		token.EqEq: ir.OpIfIcmpeq, token.Neq: ir.OpIfIcmpne, token.Lt: ir.OpIfIcmplt,
		token.Lte: ir.OpIfIcmple, token.Gt: ir.OpIfIcmpgt, token.Gte: ir.OpIfIcmpge,
	}
	// NaN must compare false for every ordering, so < and <= use fcmpg.
	floatCompare = map[token.Type]struct{ cmp, branch ir.Op }{
		token.EqEq: {ir.OpFcmpl, ir.OpIfeq}, token.Neq: {ir.OpFcmpl, ir.OpIfne},
		token.Gt: {ir.OpFcmpl, ir.OpIfgt}, token.Gte: {ir.OpFcmpl, ir.OpIfge},
		token.Lt: {ir.OpFcmpg, ir.OpIflt}, token.Lte: {ir.OpFcmpg, ir.OpIfle},
	}
)

func (ctx *Context) codegenBinaryOp(node *ast.Node) {
	d := node.Data.(ast.BinaryOpNode)
	switch d.Op {
	case token.AndAnd, token.OrOr:
		ctx.codegenLogical(d)
		return
	}

	ctx.codegenExpr(d.Left, valueCtx)
	ctx.codegenExpr(d.Right, valueCtx)
	isFloat := representation(node.Tok, d.Left.Typ) == reprFloat

	arith := intArith
	if isFloat {
		arith = floatArith
	}
	if op, ok := arith[d.Op]; ok {
		ctx.frame.Pop(2)
		ctx.emit(op)
		ctx.frame.Push(1)
		return
	}

	var branch ir.Op
	if isFloat {
		fc, ok := floatCompare[d.Op]
		if !ok {
			fail(node.Tok, "binary operator", "unsupported float operator %s", d.Op)
		}
		ctx.frame.Pop(2)
		ctx.emit(fc.cmp)
		ctx.frame.Push(1)
		ctx.frame.Pop(1)
		branch = fc.branch
	} else {
		op, ok := intCompare[d.Op]
		if !ok {
			fail(node.Tok, "binary operator", "unsupported int operator %s", d.Op)
		}
		ctx.frame.Pop(2)
		branch = op
	}

	trueLabel := ctx.frame.NewLabel()
	joinLabel := ctx.frame.NewLabel()
	ctx.emit(branch, trueLabel)
	ctx.emit(ir.OpIconst0)
	ctx.emit(ir.OpGoto, joinLabel)
	ctx.label(trueLabel)
	ctx.emit(ir.OpIconst1)
	ctx.label(joinLabel)
	ctx.frame.Push(1)
}

// codegenLogical never evaluates the right operand once the left one decides
// the result.
func (ctx *Context) codegenLogical(d ast.BinaryOpNode) {
	decided := ctx.frame.NewLabel()
	joinLabel := ctx.frame.NewLabel()

	branch, fallValue, decidedValue := ir.OpIfeq, ir.OpIconst1, ir.OpIconst0
	if d.Op == token.OrOr {
		branch, fallValue, decidedValue = ir.OpIfne, ir.OpIconst0, ir.OpIconst1
	}

	ctx.codegenExpr(d.Left, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(branch, decided)
	ctx.codegenExpr(d.Right, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(branch, decided)
	ctx.emit(fallValue)
	ctx.emit(ir.OpGoto, joinLabel)
	ctx.label(decided)
	ctx.emit(decidedValue)
	ctx.label(joinLabel)
	ctx.frame.Push(1)
}

func (ctx *Context) codegenCall(node *ast.Node) {
	d := node.Data.(ast.FuncCallNode)

	if sig, ok := ast.Intrinsics[d.Name]; ok {
		for _, arg := range d.Args {
			ctx.codegenExpr(arg, valueCtx)
		}
		ctx.emit(ir.OpInvokestatic, ctx.cfg.RuntimeClass+"/"+d.Name+signatureDescriptor(sig))
		ctx.frame.Pop(len(d.Args))
		if !sig.Return.IsVoid() {
			ctx.frame.Push(1)
		}
		return
	}

	if d.Callee == nil {
		fail(node.Tok, "call to "+d.Name, "callee is not linked to a declaration")
	}
	if ctx.frame.Name() == clinitName {
		fail(node.Tok, "call to "+d.Name, "global initializers have no instance to call on")
	}
	fn := d.Callee.Data.(ast.FuncDeclNode)

	if ctx.frame.IsEntry() {
		ctx.emit(ir.OpAload1)
	} else {
		ctx.emit(ir.OpAload0)
	}
	ctx.frame.Push(1)
	for _, arg := range d.Args {
		ctx.codegenExpr(arg, valueCtx)
	}
	ctx.emit(ir.OpInvokevirtual, ctx.qualify(d.Name+methodDescriptor(fn)))
	ctx.frame.Pop(len(d.Args) + 1)
	if !fn.ReturnType.IsVoid() {
		ctx.frame.Push(1)
	}
}
