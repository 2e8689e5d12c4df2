package codegen

import (
	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/config"
	"github.com/xplshn/vcc/pkg/ir"
	"github.com/xplshn/vcc/pkg/util"
)

func (ctx *Context) codegenStmt(node *ast.Node) {
	if node == nil {
		return
	}
	before := ctx.frame.Depth()

	switch node.Type {
	case ast.Block:
		ctx.codegenBlock(node, nil)
	case ast.If:
		ctx.codegenIf(node)
	case ast.While:
		ctx.codegenWhile(node)
	case ast.For:
		ctx.codegenFor(node)
	case ast.Break:
		ctx.emit(ir.OpGoto, ctx.frame.BreakLabel(node.Tok))
	case ast.Continue:
		ctx.emit(ir.OpGoto, ctx.frame.ContinueLabel(node.Tok))
	case ast.Return:
		ctx.codegenReturn(node)
	case ast.ExprStmt:
		ctx.codegenEffect(node.Data.(ast.ExprStmtNode).Expr)
	default:
		fail(node.Tok, "statement", "unexpected %s node", node.Type)
	}

	if ctx.frame.Depth() != before {
		fail(node.Tok, node.Type.String(), "statement changed stack depth from %d to %d", before, ctx.frame.Depth())
	}
}

// codegenBlock emits a compound statement; fn is the enclosing function when
// the block is its outermost body.
func (ctx *Context) codegenBlock(node *ast.Node, fn *ast.Node) {
	d := node.Data.(ast.BlockNode)

	scoped := ctx.cfg.IsFeatureEnabled(config.FeatVarDirectives)
	var scopeEnd string
	if scoped {
		scopeStart := ctx.frame.NewLabel()
		scopeEnd = ctx.frame.NewLabel()
		ctx.frame.PushScope(scopeStart, scopeEnd)
		ctx.out.ScopeLabel(scopeStart)
	}

	if fn != nil {
		ctx.codegenPrologue(fn)
	}
	for _, decl := range d.Decls {
		ctx.codegenLocalDecl(decl)
	}
	for _, stmt := range d.Stmts {
		ctx.codegenStmt(stmt)
	}

	if scoped {
		ctx.out.ScopeLabel(scopeEnd)
		ctx.frame.PopScope()
	}
}

// codegenPrologue annotates the receiver and parameters. The entry function
// also constructs the instance its calls are made on.
func (ctx *Context) codegenPrologue(fn *ast.Node) {
	d := fn.Data.(ast.FuncDeclNode)
	if ctx.frame.IsEntry() {
		ctx.varDirective(0, "argv", "[Ljava/lang/String;")
		ctx.varDirective(1, "vc$", "L"+ctx.class+";")
		ctx.emit(ir.OpNew, ctx.class)
		ctx.emit(ir.OpDup)
		ctx.frame.Push(2)
		ctx.emit(ir.OpInvokenonvirtual, ctx.qualify("<init>()V"))
		ctx.frame.Pop(1)
		ctx.emit(ir.OpAstore1)
		ctx.frame.Pop(1)
	} else {
		ctx.varDirective(0, "this", "L"+ctx.class+";")
	}
	for _, p := range d.Params {
		pd := p.Data.(ast.VarDeclNode)
		slot, _ := ctx.frame.SlotOf(p)
		ctx.varDirective(slot, pd.Name, descriptor(pd.Type))
	}
}

func (ctx *Context) codegenLocalDecl(node *ast.Node) {
	if node.Type != ast.VarDecl {
		fail(node.Tok, "declaration", "unexpected %s in a block", node.Type)
	}
	d := node.Data.(ast.VarDeclNode)
	slot := ctx.frame.BindSlot(node)
	ctx.varDirective(slot, d.Name, descriptor(d.Type))

	if !d.Type.IsArray() && d.Init == nil {
		return
	}
	ctx.codegenStorageInit(node, d)
	op, args := storeOp(node.Tok, d.Type, slot)
	ctx.emit(op, args...)
	ctx.frame.Pop(1)
}

func (ctx *Context) codegenIf(node *ast.Node) {
	d := node.Data.(ast.IfNode)
	falseLabel := ctx.frame.NewLabel()
	joinLabel := ctx.frame.NewLabel()

	ctx.codegenExpr(d.Cond, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(ir.OpIfeq, falseLabel)
	ctx.codegenStmt(d.ThenBody)
	thenReturns := alwaysReturns(d.ThenBody)
	if !thenReturns {
		ctx.emit(ir.OpGoto, joinLabel)
	}
	ctx.label(falseLabel)
	ctx.codegenStmt(d.ElseBody)
	// The join is only reached by the goto above or by falling out of else.
	if !thenReturns || !alwaysReturns(d.ElseBody) {
		ctx.label(joinLabel)
	}
}

func (ctx *Context) codegenWhile(node *ast.Node) {
	d := node.Data.(ast.WhileNode)
	startLabel := ctx.frame.NewLabel()
	doneLabel := ctx.frame.NewLabel()

	ctx.frame.PushLoop(startLabel, doneLabel)
	ctx.label(startLabel)
	ctx.codegenExpr(d.Cond, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(ir.OpIfeq, doneLabel)
	ctx.codegenStmt(d.Body)
	ctx.emit(ir.OpGoto, startLabel)
	ctx.label(doneLabel)
	ctx.frame.PopLoop()
}

func (ctx *Context) codegenFor(node *ast.Node) {
	d := node.Data.(ast.ForNode)
	startLabel := ctx.frame.NewLabel()
	incrementLabel := ctx.frame.NewLabel()
	doneLabel := ctx.frame.NewLabel()

	ctx.frame.PushLoop(incrementLabel, doneLabel)
	ctx.codegenEffect(d.Init)
	ctx.label(startLabel)
	if d.Cond != nil {
		ctx.codegenExpr(d.Cond, valueCtx)
		ctx.frame.Pop(1)
		ctx.emit(ir.OpIfeq, doneLabel)
	}
	ctx.codegenStmt(d.Body)
	if !alwaysReturns(d.Body) || ctx.frame.Targeted(incrementLabel) {
		ctx.label(incrementLabel)
		ctx.codegenEffect(d.Post)
		ctx.emit(ir.OpGoto, startLabel)
	}
	if d.Cond != nil || ctx.frame.Targeted(doneLabel) {
		ctx.label(doneLabel)
	}
	ctx.frame.PopLoop()
}

func (ctx *Context) codegenReturn(node *ast.Node) {
	expr := node.Data.(ast.ReturnNode).Expr

	// The entry function is emitted as a void main.
	if ctx.frame.IsEntry() {
		if expr != nil {
			util.Warn(ctx.cfg, config.WarnEntryReturnValue, node.Tok,
				"value returned from '%s' is discarded", ctx.frame.Name())
		}
		ctx.emit(ir.OpReturn)
		return
	}
	if expr == nil {
		ctx.emit(ir.OpReturn)
		return
	}
	ctx.codegenExpr(expr, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(returnOp(expr.Tok, expr.Typ))
}

// codegenEffect evaluates expr for its side effects only and drops any value
// it leaves behind.
func (ctx *Context) codegenEffect(expr *ast.Node) {
	if expr == nil {
		return
	}
	before := ctx.frame.Depth()
	ctx.codegenExpr(expr, effectCtx)
	switch ctx.frame.Depth() - before {
	case 0:
	case 1:
		ctx.emit(ir.OpPop)
		ctx.frame.Pop(1)
	default:
		fail(expr.Tok, expr.Type.String(), "expression left %d values", ctx.frame.Depth()-before)
	}
}
