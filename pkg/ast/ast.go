// Package ast defines the typed Abstract Syntax Tree handed to the code generator
package ast

import (
	"github.com/xplshn/vcc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	IntLit NodeType = iota
	FloatLit
	BoolLit
	StringLit
	Ident
	Assign
	BinaryOp
	UnaryOp
	FuncCall
	Subscript
	InitList

	// Statements
	Block
	If
	While
	For
	Break
	Continue
	Return
	ExprStmt

	// Declarations
	Program
	FuncDecl
	VarDecl
)

var nodeTypeNames = [...]string{
	IntLit: "IntLit", FloatLit: "FloatLit", BoolLit: "BoolLit", StringLit: "StringLit",
	Ident: "Ident", Assign: "Assign", BinaryOp: "BinaryOp", UnaryOp: "UnaryOp",
	FuncCall: "FuncCall", Subscript: "Subscript", InitList: "InitList",
	Block: "Block", If: "If", While: "While", For: "For", Break: "Break",
	Continue: "Continue", Return: "Return", ExprStmt: "ExprStmt",
	Program: "Program", FuncDecl: "FuncDecl", VarDecl: "VarDecl",
}

func (t NodeType) String() string {
	if int(t) >= 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "NodeType(?)"
}

// Node represents a node in the Abstract Syntax Tree.
// Expressions carry the type resolved by the analyzer in Typ.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
	Typ  *VcType
}

// StorageClass tells where a declared variable lives at run time
type StorageClass int

const (
	StorageLocal StorageClass = iota
	StorageParam
	StorageGlobal
)

func (s StorageClass) String() string {
	switch s {
	case StorageGlobal:
		return "global"
	case StorageParam:
		return "param"
	default:
		return "local"
	}
}

// --- Node Data Structs ---
type IntLitNode struct{ Value int32 }
type FloatLitNode struct{ Value float32 }
type BoolLitNode struct{ Value bool }
type StringLitNode struct{ Value string }

// IdentNode is an applied occurrence; Decl is the VarDecl it resolves to.
type IdentNode struct {
	Name string
	Decl *Node
}
type AssignNode struct{ Lhs, Rhs *Node }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}

// FuncCallNode names its callee; Callee is the FuncDecl it resolves to and
// is nil for calls to intrinsics.
type FuncCallNode struct {
	Name   string
	Args   []*Node
	Callee *Node
}
type SubscriptNode struct{ Array, Index *Node }
type InitListNode struct{ Elems []*Node }

type BlockNode struct{ Decls, Stmts []*Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }

// ForNode clauses Init, Cond and Post may be nil.
type ForNode struct{ Init, Cond, Post, Body *Node }
type BreakNode struct{}
type ContinueNode struct{}
type ReturnNode struct{ Expr *Node }
type ExprStmtNode struct{ Expr *Node }

type ProgramNode struct{ Decls []*Node }
type FuncDeclNode struct {
	Name       string
	Params     []*Node
	ReturnType *VcType
	Body       *Node
}
type VarDeclNode struct {
	Name    string
	Type    *VcType
	Init    *Node
	Storage StorageClass
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, typ *VcType) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data, Typ: typ}
}

func NewIntLit(tok token.Token, value int32) *Node {
	return newNode(tok, IntLit, IntLitNode{Value: value}, TypeInt)
}
func NewFloatLit(tok token.Token, value float32) *Node {
	return newNode(tok, FloatLit, FloatLitNode{Value: value}, TypeFloat)
}
func NewBoolLit(tok token.Token, value bool) *Node {
	return newNode(tok, BoolLit, BoolLitNode{Value: value}, TypeBoolean)
}
func NewStringLit(tok token.Token, value string) *Node {
	return newNode(tok, StringLit, StringLitNode{Value: value}, TypeString)
}

// NewIdent links a reference to decl and takes its declared type.
func NewIdent(tok token.Token, name string, decl *Node) *Node {
	var typ *VcType
	if decl != nil {
		if d, ok := decl.Data.(VarDeclNode); ok {
			typ = d.Type
		}
	}
	return newNode(tok, Ident, IdentNode{Name: name, Decl: decl}, typ)
}
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Lhs: lhs, Rhs: rhs}, lhs.Typ)
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node, typ *VcType) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, typ)
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node, typ *VcType) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, typ)
}

// NewFuncCall takes the callee's return type when callee is known; intrinsic
// calls pass a nil callee and an explicit type.
func NewFuncCall(tok token.Token, name string, args []*Node, callee *Node, typ *VcType) *Node {
	if typ == nil && callee != nil {
		typ = callee.Data.(FuncDeclNode).ReturnType
	}
	return newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args, Callee: callee}, typ)
}
func NewSubscript(tok token.Token, array, index *Node) *Node {
	var typ *VcType
	if array.Typ != nil {
		typ = array.Typ.Elem
	}
	return newNode(tok, Subscript, SubscriptNode{Array: array, Index: index}, typ)
}
func NewInitList(tok token.Token, elems []*Node, elemType *VcType) *Node {
	return newNode(tok, InitList, InitListNode{Elems: elems}, elemType)
}

func NewBlock(tok token.Token, decls, stmts []*Node) *Node {
	return newNode(tok, Block, BlockNode{Decls: decls, Stmts: stmts}, nil)
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, nil)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, nil)
}
func NewFor(tok token.Token, init, cond, post, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Post: post, Body: body}, nil)
}
func NewBreak(tok token.Token) *Node {
	return newNode(tok, Break, BreakNode{}, nil)
}
func NewContinue(tok token.Token) *Node {
	return newNode(tok, Continue, ContinueNode{}, nil)
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, nil)
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, nil)
}

func NewProgram(tok token.Token, decls []*Node) *Node {
	return newNode(tok, Program, ProgramNode{Decls: decls}, nil)
}
func NewFuncDecl(tok token.Token, name string, params []*Node, returnType *VcType, body *Node) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, Params: params, ReturnType: returnType, Body: body}, nil)
}
func NewVarDecl(tok token.Token, name string, typ *VcType, init *Node, storage StorageClass) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Type: typ, Init: init, Storage: storage}, nil)
}

// IsExpr reports whether the node produces a value
func (n *Node) IsExpr() bool {
	return n != nil && n.Type <= InitList
}
