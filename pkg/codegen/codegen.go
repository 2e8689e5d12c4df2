package codegen

import (
	"errors"
	"strconv"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/config"
	"github.com/xplshn/vcc/pkg/ir"
	"github.com/xplshn/vcc/pkg/logger"
	"github.com/xplshn/vcc/pkg/token"
	"github.com/xplshn/vcc/pkg/util"
)

const clinitName = "<clinit>"

// Context carries the state of one compilation unit: the listing being
// written, the global symbol table and the frame of the method in progress.
type Context struct {
	cfg        *config.Config
	class      string
	out        *ir.Listing
	globals    map[string]string
	frame      *Frame
	labelCount int
}

func NewContext(cfg *config.Config) *Context {
	return &Context{cfg: cfg, class: cfg.ClassName}
}

// Generate translates a Program node into a listing. Internal defects abort
// the translation and are returned as *Error; no listing is returned then.
func (ctx *Context) Generate(root *ast.Node) (listing *ir.Listing, err error) {
	if ctx.class == "" {
		return nil, errors.New("codegen: no class name configured")
	}
	if root == nil || root.Type != ast.Program {
		return nil, &Error{Construct: "program", Msg: "root node is not a program"}
	}

	ctx.out = &ir.Listing{}
	ctx.globals = make(map[string]string)
	ctx.frame = nil
	ctx.labelCount = 0

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			listing, err = nil, e
		}
	}()

	ctx.codegenProgram(root)
	return ctx.out, nil
}

func (ctx *Context) emit(op ir.Op, args ...string) { ctx.out.Emit(op, args...) }
func (ctx *Context) label(name string)             { ctx.out.Label(name) }

func (ctx *Context) comment(text string) {
	if ctx.cfg.IsFeatureEnabled(config.FeatComments) {
		ctx.out.Comment(text)
	}
}

func (ctx *Context) qualify(name string) string { return ctx.class + "/" + name }

func (ctx *Context) codegenProgram(root *ast.Node) {
	decls := root.Data.(ast.ProgramNode).Decls

	ctx.out.Directive(ir.DirClass, "public", ctx.class)
	ctx.out.Directive(ir.DirSuper, "java/lang/Object")
	ctx.out.Blank()

	for _, decl := range decls {
		if decl.Type != ast.VarDecl {
			continue
		}
		d := decl.Data.(ast.VarDeclNode)
		desc := descriptor(d.Type)
		ctx.out.Directive(ir.DirField, "static", d.Name, desc)
		ctx.globals[d.Name] = desc
	}
	ctx.out.Blank()

	ctx.codegenClinit(decls)
	ctx.out.Blank()
	ctx.codegenInit()

	for _, decl := range decls {
		switch decl.Type {
		case ast.VarDecl:
		case ast.FuncDecl:
			ctx.codegenFuncDecl(decl)
		default:
			fail(decl.Tok, "program", "unexpected top-level %s", decl.Type)
		}
	}
}

func (ctx *Context) codegenClinit(decls []*ast.Node) {
	ctx.comment("standard class static initializer")
	ctx.out.Directive(ir.DirMethod, "static", "<clinit>()V")
	ctx.out.Blank()
	start := ctx.out.Len()

	ctx.frame = NewFrame(clinitName, false, ctx.labelCount)
	for _, decl := range decls {
		if decl.Type != ast.VarDecl {
			continue
		}
		d := decl.Data.(ast.VarDeclNode)
		ctx.codegenStorageInit(decl, d)
		ctx.emit(ir.OpPutstatic, ctx.qualify(d.Name), ctx.globals[d.Name])
		ctx.frame.Pop(1)
	}
	ctx.emit(ir.OpReturn)
	ctx.closeMethod(start)
}

// codegenStorageInit leaves the initial value of a declared variable on the
// stack: a fresh array (filled from an initializer list if present), the
// initializer's value, or a zero literal.
func (ctx *Context) codegenStorageInit(decl *ast.Node, d ast.VarDeclNode) {
	switch {
	case d.Type.IsArray():
		ctx.codegenNewArray(decl.Tok, d.Type)
		if d.Init != nil {
			ctx.codegenInitList(d.Init, d.Type.Elem)
		}
	case d.Init != nil:
		ctx.codegenExpr(d.Init, valueCtx)
	default:
		op, args := zeroValue(decl.Tok, d.Type)
		ctx.emit(op, args...)
		ctx.frame.Push(1)
	}
}

func (ctx *Context) codegenNewArray(tok token.Token, t *ast.VcType) {
	if t.Size == nil {
		fail(tok, "array declaration", "array of %s has no size", t.Elem)
	}
	ctx.codegenExpr(t.Size, valueCtx)
	ctx.frame.Pop(1)
	ctx.emit(ir.OpNewarray, newarrayType(tok, t.Elem))
	ctx.frame.Push(1)
}

func (ctx *Context) codegenInit() {
	ctx.comment("standard constructor initializer")
	ctx.out.Directive(ir.DirMethod, "public", "<init>()V")
	ctx.out.Directive(ir.DirLimit, "stack", "1")
	ctx.out.Directive(ir.DirLimit, "locals", "1")
	ctx.emit(ir.OpAload0)
	ctx.emit(ir.OpInvokespecial, "java/lang/Object/<init>()V")
	ctx.emit(ir.OpReturn)
	ctx.out.Directive(ir.DirEnd, "method")
}

func (ctx *Context) codegenFuncDecl(node *ast.Node) {
	d := node.Data.(ast.FuncDeclNode)
	entry := d.Name == ctx.cfg.EntryName

	if IsIntrinsic(d.Name) {
		util.Warn(ctx.cfg, config.WarnIntrinsicShadow, node.Tok,
			"function '%s' is unreachable: calls to '%s' always go to the runtime routine", d.Name, d.Name)
	}

	ctx.out.Blank()
	if entry {
		ctx.out.Directive(ir.DirMethod, "public", "static", "main([Ljava/lang/String;)V")
	} else {
		ctx.out.Directive(ir.DirMethod, d.Name+methodDescriptor(d))
	}
	start := ctx.out.Len()

	ctx.frame = NewFrame(d.Name, entry, ctx.labelCount)
	ctx.frame.AllocateSlot()
	if entry {
		ctx.frame.AllocateSlot()
	}
	for _, p := range d.Params {
		ctx.frame.BindSlot(p)
	}

	if d.Body == nil || d.Body.Type != ast.Block {
		fail(node.Tok, "function "+d.Name, "body is not a block")
	}
	ctx.codegenBlock(d.Body, node)

	switch {
	case entry:
		ctx.emit(ir.OpReturn)
	case d.ReturnType.IsVoid():
		ctx.out.Blank()
		ctx.comment("return may not be present in a VC function returning void")
		ctx.comment("The following return inserted by the VC compiler")
		ctx.emit(ir.OpReturn)
	case !alwaysReturns(d.Body) && ctx.cfg.IsFeatureEnabled(config.FeatSyntheticReturn):
		op, args := zeroValue(node.Tok, d.ReturnType)
		ctx.emit(op, args...)
		ctx.frame.Push(1)
		ctx.emit(returnOp(node.Tok, d.ReturnType))
		ctx.frame.Pop(1)
	}
	ctx.closeMethod(start)
}

// closeMethod sizes the method from its frame and ends it.
func (ctx *Context) closeMethod(start int) {
	f := ctx.frame
	if f.Depth() != 0 {
		fail(token.Token{}, f.Name(), "operand stack holds %d values at method end", f.Depth())
	}
	stack := ctx.cfg.FixedStackLimit
	if ctx.cfg.IsFeatureEnabled(config.FeatExactStack) {
		stack = f.MaxDepth()
	}

	ctx.out.Blank()
	ctx.comment("set limits used by this method")
	ctx.out.Directive(ir.DirLimit, "locals", strconv.Itoa(f.SlotCount()))
	ctx.out.Directive(ir.DirLimit, "stack", strconv.Itoa(stack))
	ctx.out.Directive(ir.DirEnd, "method")

	logger.LogMethod(f.Name(), ctx.out.Len()-start, f.MaxDepth(), f.SlotCount())
	ctx.labelCount = f.LabelCount()
	ctx.frame = nil
}

// varDirective annotates slot with its name and type over the innermost scope.
func (ctx *Context) varDirective(slot int, name, desc string) {
	if !ctx.cfg.IsFeatureEnabled(config.FeatVarDirectives) {
		return
	}
	start, end, ok := ctx.frame.Scope()
	if !ok {
		return
	}
	ctx.out.Directive(ir.DirVar, strconv.Itoa(slot), "is", name, desc, "from", start, "to", end)
}
