// Package astio decodes the typed, resolved syntax tree produced by the
// front end, serialized as YAML, into pkg/ast nodes.
package astio

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/token"
)

// Unit is one decoded compilation unit.
type Unit struct {
	Class   string
	Program *ast.Node
}

// Error is a malformed document, positioned at the offending YAML node.
type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

type decoder struct {
	file   int
	scopes []map[string]*ast.Node
	funcs  map[string]*ast.Node
	fn     *ast.FuncDeclNode
}

// Decode reads a YAML document. fileIndex is recorded in every token so
// diagnostics can point back into the document.
func Decode(data []byte, fileIndex int) (unit *Unit, err error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing syntax tree: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &Error{Tok: token.Token{FileIndex: fileIndex}, Msg: "empty document"}
	}

	d := &decoder{file: fileIndex, funcs: make(map[string]*ast.Node)}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			unit, err = nil, e
		}
	}()
	return d.unit(doc.Content[0]), nil
}

func (d *decoder) tok(n *yaml.Node, typ token.Type) token.Token {
	return token.Token{Type: typ, Value: n.Value, FileIndex: d.file, Line: n.Line, Column: n.Column, Len: len(n.Value)}
}

func (d *decoder) failf(n *yaml.Node, format string, args ...interface{}) {
	panic(&Error{Tok: d.tok(n, token.EOF), Msg: fmt.Sprintf(format, args...)})
}

// fields returns the entries of a mapping node, rejecting keys not in allowed.
func (d *decoder) fields(n *yaml.Node, what string, allowed ...string) map[string]*yaml.Node {
	if n.Kind != yaml.MappingNode {
		d.failf(n, "%s must be a mapping", what)
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		known := false
		for _, a := range allowed {
			if k.Value == a {
				known = true
				break
			}
		}
		if !known {
			d.failf(k, "unknown key '%s' in %s", k.Value, what)
		}
		out[k.Value] = v
	}
	return out
}

func (d *decoder) require(n *yaml.Node, f map[string]*yaml.Node, key, what string) *yaml.Node {
	v, ok := f[key]
	if !ok {
		d.failf(n, "%s is missing '%s'", what, key)
	}
	return v
}

// variant splits a single-key mapping such as {int: 3} into its tag and value.
func (d *decoder) variant(n *yaml.Node, what string) (string, *yaml.Node) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		d.failf(n, "%s must be a mapping with exactly one key", what)
	}
	return n.Content[0].Value, n.Content[1]
}

func (d *decoder) sequence(n *yaml.Node, what string) []*yaml.Node {
	if n == nil || isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.failf(n, "%s must be a sequence", what)
	}
	return n.Content
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func (d *decoder) name(n *yaml.Node, what string) string {
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		d.failf(n, "%s must be a name", what)
	}
	// Names are identities: spellings that differ only in composition
	// resolve to the same declaration.
	return norm.NFC.String(n.Value)
}

func (d *decoder) pushScope() { d.scopes = append(d.scopes, make(map[string]*ast.Node)) }
func (d *decoder) popScope()  { d.scopes = d.scopes[:len(d.scopes)-1] }

func (d *decoder) declare(n *yaml.Node, name string, decl *ast.Node) {
	scope := d.scopes[len(d.scopes)-1]
	if _, dup := scope[name]; dup {
		d.failf(n, "'%s' is declared twice in the same scope", name)
	}
	scope[name] = decl
}

func (d *decoder) lookup(n *yaml.Node, name string) *ast.Node {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if decl, ok := d.scopes[i][name]; ok {
			return decl
		}
	}
	d.failf(n, "undeclared variable '%s'", name)
	return nil
}

func (d *decoder) unit(n *yaml.Node) *Unit {
	f := d.fields(n, "document", "class", "decls")
	u := &Unit{}
	if c, ok := f["class"]; ok {
		u.Class = d.name(c, "class")
	}

	decls := d.sequence(f["decls"], "decls")

	// Functions are visible program-wide, so signatures come first.
	headers := make(map[*yaml.Node]*ast.Node)
	for _, decl := range decls {
		tag, v := d.variant(decl, "declaration")
		if tag == "func" {
			headers[decl] = d.funcHeader(v)
		}
	}

	d.pushScope()
	defer d.popScope()
	var nodes []*ast.Node
	for _, decl := range decls {
		tag, v := d.variant(decl, "declaration")
		switch tag {
		case "var":
			nodes = append(nodes, d.varDecl(v, ast.StorageGlobal))
		case "func":
			fn := headers[decl]
			d.funcBody(v, fn)
			nodes = append(nodes, fn)
		default:
			d.failf(decl, "unknown declaration '%s'", tag)
		}
	}
	tok := d.tok(n, token.EOF)
	u.Program = ast.NewProgram(tok, nodes)
	return u
}

func (d *decoder) funcHeader(n *yaml.Node) *ast.Node {
	f := d.fields(n, "function", "name", "returns", "params", "body")
	nameNode := d.require(n, f, "name", "function")
	name := d.name(nameNode, "function name")
	if _, dup := d.funcs[name]; dup {
		d.failf(nameNode, "function '%s' is declared twice", name)
	}

	ret := ast.TypeVoid
	if r, ok := f["returns"]; ok {
		ret = d.typ(r, false)
		if ret.IsArray() {
			d.failf(r, "functions cannot return arrays")
		}
	}

	var params []*ast.Node
	for _, p := range d.sequence(f["params"], "params") {
		pf := d.fields(p, "parameter", "name", "type")
		pn := d.require(p, pf, "name", "parameter")
		pt := d.typ(d.require(p, pf, "type", "parameter"), true)
		if pt.IsVoid() {
			d.failf(p, "parameter '%s' cannot be void", pn.Value)
		}
		params = append(params, ast.NewVarDecl(d.tok(pn, token.Ident), d.name(pn, "parameter name"), pt, nil, ast.StorageParam))
	}

	fn := ast.NewFuncDecl(d.tok(nameNode, token.Ident), name, params, ret, nil)
	d.funcs[name] = fn
	return fn
}

func (d *decoder) funcBody(n *yaml.Node, fn *ast.Node) {
	data := fn.Data.(ast.FuncDeclNode)
	f := d.fields(n, "function", "name", "returns", "params", "body")

	d.pushScope()
	defer d.popScope()
	for _, p := range data.Params {
		d.declare(n, p.Data.(ast.VarDeclNode).Name, p)
	}

	d.fn = &data
	defer func() { d.fn = nil }()
	data.Body = d.block(d.require(n, f, "body", "function"))
	fn.Data = data
}

func (d *decoder) block(n *yaml.Node) *ast.Node {
	if isNull(n) {
		return ast.NewBlock(d.tok(n, token.LBrace), nil, nil)
	}
	f := d.fields(n, "block", "decls", "stmts")
	d.pushScope()
	defer d.popScope()

	var decls, stmts []*ast.Node
	for _, decl := range d.sequence(f["decls"], "decls") {
		tag, v := d.variant(decl, "declaration")
		if tag != "var" {
			d.failf(decl, "only variables can be declared in a block")
		}
		decls = append(decls, d.varDecl(v, ast.StorageLocal))
	}
	for _, s := range d.sequence(f["stmts"], "stmts") {
		stmts = append(stmts, d.stmt(s))
	}
	return ast.NewBlock(d.tok(n, token.LBrace), decls, stmts)
}

func (d *decoder) varDecl(n *yaml.Node, storage ast.StorageClass) *ast.Node {
	f := d.fields(n, "variable", "name", "type", "init")
	nameNode := d.require(n, f, "name", "variable")
	name := d.name(nameNode, "variable name")
	t := d.typ(d.require(n, f, "type", "variable"), false)
	if t.IsVoid() {
		d.failf(n, "variable '%s' cannot be void", name)
	}
	if t.IsArray() && t.Size == nil {
		d.failf(n, "array '%s' needs a size", name)
	}

	var init *ast.Node
	if v, ok := f["init"]; ok && !isNull(v) {
		if t.IsArray() {
			init = d.initList(v, t)
		} else {
			init = coerce(d.expr(v), t)
		}
	}

	// Declared after decoding the initializer, which cannot refer to it.
	decl := ast.NewVarDecl(d.tok(nameNode, token.Ident), name, t, init, storage)
	d.declare(nameNode, name, decl)
	return decl
}

func (d *decoder) initList(n *yaml.Node, t *ast.VcType) *ast.Node {
	tag, v := d.variant(n, "array initializer")
	if tag != "list" {
		d.failf(n, "array initializer must be a list")
	}
	var elems []*ast.Node
	for _, e := range d.sequence(v, "list") {
		elems = append(elems, coerce(d.expr(e), t.Elem))
	}
	if size, ok := t.Size.Data.(ast.IntLitNode); ok && len(elems) > int(size.Value) {
		d.failf(n, "%d initializers for an array of %d", len(elems), size.Value)
	}
	return ast.NewInitList(d.tok(n, token.LBrace), elems, t.Elem)
}

// typ parses int, float, boolean, void, T[N] and, where allowed, T[].
func (d *decoder) typ(n *yaml.Node, openArray bool) *ast.VcType {
	s := d.name(n, "type")
	base, dims, isArray := strings.Cut(s, "[")

	var t *ast.VcType
	switch base {
	case "int":
		t = ast.TypeInt
	case "float":
		t = ast.TypeFloat
	case "boolean":
		t = ast.TypeBoolean
	case "void":
		t = ast.TypeVoid
	default:
		d.failf(n, "unknown type '%s'", s)
	}
	if !isArray {
		return t
	}
	if t.IsVoid() || !strings.HasSuffix(dims, "]") {
		d.failf(n, "malformed array type '%s'", s)
	}
	dims = strings.TrimSuffix(dims, "]")
	if dims == "" {
		if !openArray {
			d.failf(n, "array type '%s' needs a size here", s)
		}
		return ast.ArrayOf(t, nil)
	}
	size, err := strconv.ParseInt(dims, 10, 32)
	if err != nil || size <= 0 {
		d.failf(n, "bad array size in '%s'", s)
	}
	return ast.ArrayOf(t, ast.NewIntLit(d.tok(n, token.IntLiteral), int32(size)))
}

func (d *decoder) stmt(n *yaml.Node) *ast.Node {
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return ast.NewBreak(d.tok(n, token.Ident))
		case "continue":
			return ast.NewContinue(d.tok(n, token.Ident))
		case "return":
			return ast.NewReturn(d.tok(n, token.Ident), nil)
		}
		d.failf(n, "unknown statement '%s'", n.Value)
	}

	tag, v := d.variant(n, "statement")
	tok := d.tok(n.Content[0], token.Ident)
	switch tag {
	case "block":
		return d.block(v)
	case "if":
		f := d.fields(v, "if", "cond", "then", "else")
		cond := d.expr(d.require(v, f, "cond", "if"))
		then := d.stmt(d.require(v, f, "then", "if"))
		var els *ast.Node
		if e, ok := f["else"]; ok && !isNull(e) {
			els = d.stmt(e)
		}
		return ast.NewIf(tok, cond, then, els)
	case "while":
		f := d.fields(v, "while", "cond", "body")
		cond := d.expr(d.require(v, f, "cond", "while"))
		return ast.NewWhile(tok, cond, d.stmt(d.require(v, f, "body", "while")))
	case "for":
		f := d.fields(v, "for", "init", "cond", "post", "body")
		init, cond, post := d.optExpr(f["init"]), d.optExpr(f["cond"]), d.optExpr(f["post"])
		return ast.NewFor(tok, init, cond, post, d.stmt(d.require(v, f, "body", "for")))
	case "break":
		return ast.NewBreak(tok)
	case "continue":
		return ast.NewContinue(tok)
	case "return":
		var expr *ast.Node
		if !isNull(v) {
			expr = d.expr(v)
			if d.fn != nil {
				expr = coerce(expr, d.fn.ReturnType)
			}
		}
		return ast.NewReturn(tok, expr)
	case "expr":
		return ast.NewExprStmt(tok, d.expr(v))
	}
	d.failf(n, "unknown statement '%s'", tag)
	return nil
}

func (d *decoder) optExpr(n *yaml.Node) *ast.Node {
	if n == nil || isNull(n) {
		return nil
	}
	return d.expr(n)
}

func (d *decoder) expr(n *yaml.Node) *ast.Node {
	tag, v := d.variant(n, "expression")
	tok := d.tok(v, token.EOF)

	switch tag {
	case "int":
		i, err := strconv.ParseInt(v.Value, 10, 32)
		if err != nil {
			d.failf(v, "bad int literal '%s'", v.Value)
		}
		tok.Type = token.IntLiteral
		return ast.NewIntLit(tok, int32(i))
	case "float":
		x, err := strconv.ParseFloat(v.Value, 32)
		if err != nil {
			d.failf(v, "bad float literal '%s'", v.Value)
		}
		tok.Type = token.FloatLiteral
		return ast.NewFloatLit(tok, float32(x))
	case "bool":
		b, err := strconv.ParseBool(v.Value)
		if err != nil {
			d.failf(v, "bad boolean literal '%s'", v.Value)
		}
		tok.Type = token.BoolLiteral
		return ast.NewBoolLit(tok, b)
	case "string":
		tok.Type = token.StringLiteral
		return ast.NewStringLit(tok, v.Value)
	case "ref":
		name := d.name(v, "reference")
		tok.Type = token.Ident
		return ast.NewIdent(tok, name, d.lookup(v, name))
	case "unary":
		return d.unary(v)
	case "binary":
		return d.binary(v)
	case "assign":
		f := d.fields(v, "assignment", "lhs", "rhs")
		lhs := d.expr(d.require(v, f, "lhs", "assignment"))
		if lhs.Type != ast.Ident && lhs.Type != ast.Subscript {
			d.failf(v, "cannot assign to a %s", lhs.Type)
		}
		if lhs.Typ.IsArray() {
			d.failf(v, "cannot assign whole arrays")
		}
		rhs := coerce(d.expr(d.require(v, f, "rhs", "assignment")), lhs.Typ)
		tok.Type = token.Eq
		return ast.NewAssign(tok, lhs, rhs)
	case "call":
		return d.call(v)
	case "index":
		f := d.fields(v, "index", "array", "index")
		arr := d.expr(d.require(v, f, "array", "index"))
		if !arr.Typ.IsArray() {
			d.failf(v, "indexing a value of type %s", arr.Typ)
		}
		idx := d.expr(d.require(v, f, "index", "index"))
		tok.Type = token.LBracket
		return ast.NewSubscript(tok, arr, idx)
	case "list":
		d.failf(n, "a list is only allowed as an array initializer")
	case "i2f":
		e := d.expr(v)
		tok.Type = token.I2F
		return ast.NewUnaryOp(tok, token.I2F, e, ast.TypeFloat)
	}
	d.failf(n, "unknown expression '%s'", tag)
	return nil
}

func (d *decoder) operator(n *yaml.Node) token.Type {
	op, ok := token.OperatorMap[n.Value]
	if !ok || op == token.Eq || op == token.I2F {
		d.failf(n, "unknown operator '%s'", n.Value)
	}
	return op
}

func (d *decoder) unary(n *yaml.Node) *ast.Node {
	f := d.fields(n, "unary expression", "op", "expr")
	opNode := d.require(n, f, "op", "unary expression")
	op := d.operator(opNode)
	e := d.expr(d.require(n, f, "expr", "unary expression"))
	tok := d.tok(opNode, op)

	switch op {
	case token.Plus, token.Minus:
		return ast.NewUnaryOp(tok, op, e, e.Typ)
	case token.Not:
		return ast.NewUnaryOp(tok, op, e, ast.TypeBoolean)
	}
	d.failf(opNode, "'%s' is not a unary operator", opNode.Value)
	return nil
}

func (d *decoder) binary(n *yaml.Node) *ast.Node {
	f := d.fields(n, "binary expression", "op", "left", "right")
	opNode := d.require(n, f, "op", "binary expression")
	op := d.operator(opNode)
	left := d.expr(d.require(n, f, "left", "binary expression"))
	right := d.expr(d.require(n, f, "right", "binary expression"))
	tok := d.tok(opNode, op)

	switch op {
	case token.AndAnd, token.OrOr:
		return ast.NewBinaryOp(tok, op, left, right, ast.TypeBoolean)
	case token.Not:
		d.failf(opNode, "'!' is not a binary operator")
	}

	// Mixed int/float operands are widened to float.
	if left.Typ.IsFloat() || right.Typ.IsFloat() {
		left, right = coerce(left, ast.TypeFloat), coerce(right, ast.TypeFloat)
	}
	switch op {
	case token.Plus, token.Minus, token.Star, token.Slash:
		return ast.NewBinaryOp(tok, op, left, right, left.Typ)
	}
	return ast.NewBinaryOp(tok, op, left, right, ast.TypeBoolean)
}

func (d *decoder) call(n *yaml.Node) *ast.Node {
	f := d.fields(n, "call", "name", "args")
	nameNode := d.require(n, f, "name", "call")
	name := d.name(nameNode, "function name")
	tok := d.tok(nameNode, token.Ident)

	var args []*ast.Node
	for _, a := range d.sequence(f["args"], "args") {
		args = append(args, d.expr(a))
	}

	if sig, ok := ast.Intrinsics[name]; ok {
		if len(args) != len(sig.Params) {
			d.failf(nameNode, "'%s' takes %d arguments, got %d", name, len(sig.Params), len(args))
		}
		for i := range args {
			args[i] = coerce(args[i], sig.Params[i])
		}
		return ast.NewFuncCall(tok, name, args, nil, sig.Return)
	}

	callee, ok := d.funcs[name]
	if !ok {
		d.failf(nameNode, "undeclared function '%s'", name)
	}
	params := callee.Data.(ast.FuncDeclNode).Params
	if len(args) != len(params) {
		d.failf(nameNode, "'%s' takes %d arguments, got %d", name, len(params), len(args))
	}
	for i := range args {
		args[i] = coerce(args[i], params[i].Data.(ast.VarDeclNode).Type)
	}
	return ast.NewFuncCall(tok, name, args, callee, nil)
}

// coerce wraps an int expression used where a float is expected in an i2f.
func coerce(e *ast.Node, want *ast.VcType) *ast.Node {
	if want.IsFloat() && e.Typ != nil && e.Typ.Kind == ast.TYPE_INT {
		return ast.NewUnaryOp(e.Tok, token.I2F, e, ast.TypeFloat)
	}
	return e
}
