package astio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/token"
)

const sample = `
class: Demo
decls:
  - var: {name: g, type: int, init: {int: 7}}
  - var: {name: xs, type: "float[3]", init: {list: [{int: 1}, {float: 2.5}]}}
  - func:
      name: main
      returns: int
      body:
        decls:
          - var: {name: i, type: int}
        stmts:
          - expr: {assign: {lhs: {ref: i}, rhs: {call: {name: twice, args: [{ref: g}]}}}}
          - expr: {call: {name: putFloat, args: [{ref: i}]}}
          - return: {int: 0}
  - func:
      name: twice
      returns: int
      params: [{name: n, type: int}]
      body:
        stmts:
          - return: {binary: {op: "*", left: {ref: n}, right: {int: 2}}}
`

func TestDecodeLinksDeclarations(t *testing.T) {
	unit, err := Decode([]byte(sample), 0)
	require.NoError(t, err)
	assert.Equal(t, "Demo", unit.Class)

	decls := unit.Program.Data.(ast.ProgramNode).Decls
	require.Len(t, decls, 4)

	g := decls[0].Data.(ast.VarDeclNode)
	assert.Equal(t, ast.StorageGlobal, g.Storage)
	assert.Equal(t, "int", g.Type.String())

	xs := decls[1].Data.(ast.VarDeclNode)
	assert.Equal(t, "float[3]", xs.Type.String())
	elems := xs.Init.Data.(ast.InitListNode).Elems
	require.Len(t, elems, 2)
	assert.Equal(t, ast.UnaryOp, elems[0].Type, "int element is widened")
	assert.Equal(t, token.I2F, elems[0].Data.(ast.UnaryOpNode).Op)

	main := decls[2].Data.(ast.FuncDeclNode)
	body := main.Body.Data.(ast.BlockNode)
	assert.Equal(t, ast.StorageLocal, body.Decls[0].Data.(ast.VarDeclNode).Storage)

	assign := body.Stmts[0].Data.(ast.ExprStmtNode).Expr.Data.(ast.AssignNode)
	assert.Same(t, body.Decls[0], assign.Lhs.Data.(ast.IdentNode).Decl)
	call := assign.Rhs.Data.(ast.FuncCallNode)
	assert.Same(t, decls[3], call.Callee, "calls resolve to functions declared later")
	assert.Same(t, decls[0], call.Args[0].Data.(ast.IdentNode).Decl)
	assert.True(t, assign.Rhs.Typ.Equal(ast.TypeInt))

	put := body.Stmts[1].Data.(ast.ExprStmtNode).Expr.Data.(ast.FuncCallNode)
	assert.Nil(t, put.Callee)
	assert.Equal(t, ast.UnaryOp, put.Args[0].Type)

	twice := decls[3].Data.(ast.FuncDeclNode)
	param := twice.Params[0]
	assert.Equal(t, ast.StorageParam, param.Data.(ast.VarDeclNode).Storage)
	ret := twice.Body.Data.(ast.BlockNode).Stmts[0].Data.(ast.ReturnNode).Expr
	assert.Same(t, param, ret.Data.(ast.BinaryOpNode).Left.Data.(ast.IdentNode).Decl)
}

func TestDecodeExpressionTypes(t *testing.T) {
	src := `
decls:
  - func:
      name: f
      params: [{name: a, type: "int[]"}, {name: x, type: float}]
      body:
        stmts:
          - expr: {binary: {op: "<", left: {index: {array: {ref: a}, index: {int: 0}}}, right: {ref: x}}}
          - expr: {unary: {op: "!", expr: {bool: false}}}
          - expr: {binary: {op: "+", left: {int: 1}, right: {ref: x}}}
          - break
          - return
`
	unit, err := Decode([]byte(src), 0)
	require.NoError(t, err)

	fn := unit.Program.Data.(ast.ProgramNode).Decls[0].Data.(ast.FuncDeclNode)
	assert.True(t, fn.ReturnType.IsVoid())
	assert.Equal(t, "int[]", fn.Params[0].Data.(ast.VarDeclNode).Type.String())

	stmts := fn.Body.Data.(ast.BlockNode).Stmts
	expr := func(i int) *ast.Node { return stmts[i].Data.(ast.ExprStmtNode).Expr }

	cmp := expr(0).Data.(ast.BinaryOpNode)
	assert.True(t, expr(0).Typ.IsBoolean())
	assert.Equal(t, token.I2F, cmp.Left.Data.(ast.UnaryOpNode).Op, "array element widened for the compare")
	assert.True(t, expr(1).Typ.IsBoolean())
	assert.True(t, expr(2).Typ.IsFloat())
	assert.Equal(t, ast.Break, stmts[3].Type)
	assert.Nil(t, stmts[4].Data.(ast.ReturnNode).Expr)
}

func TestDecodeScopes(t *testing.T) {
	src := `
decls:
  - func:
      name: f
      body:
        decls:
          - var: {name: v, type: int}
        stmts:
          - block:
              decls:
                - var: {name: v, type: float}
              stmts:
                - expr: {ref: v}
          - expr: {ref: v}
`
	unit, err := Decode([]byte(src), 0)
	require.NoError(t, err)

	body := unit.Program.Data.(ast.ProgramNode).Decls[0].Data.(ast.FuncDeclNode).Body.Data.(ast.BlockNode)
	inner := body.Stmts[0].Data.(ast.BlockNode)
	assert.Same(t, inner.Decls[0], inner.Stmts[0].Data.(ast.ExprStmtNode).Expr.Data.(ast.IdentNode).Decl)
	assert.Same(t, body.Decls[0], body.Stmts[1].Data.(ast.ExprStmtNode).Expr.Data.(ast.IdentNode).Decl)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{
			name: "undeclared variable",
			src:  "decls:\n  - func:\n      name: f\n      body: {stmts: [{expr: {ref: nope}}]}\n",
			line: 4,
			msg:  "undeclared variable 'nope'",
		},
		{
			name: "unknown function",
			src:  "decls:\n  - func: {name: f, body: {stmts: [{expr: {call: {name: g}}}]}}\n",
			line: 2,
			msg:  "undeclared function 'g'",
		},
		{
			name: "unknown type",
			src:  "decls:\n  - var: {name: x, type: long}\n",
			line: 2,
			msg:  "unknown type 'long'",
		},
		{
			name: "array without size",
			src:  "decls:\n  - var: {name: x, type: \"int[]\"}\n",
			line: 2,
			msg:  "needs a size",
		},
		{
			name: "unknown key",
			src:  "decls:\n  - var: {name: x, type: int, color: red}\n",
			line: 2,
			msg:  "unknown key 'color'",
		},
		{
			name: "arity",
			src:  "decls:\n  - func: {name: f, body: {stmts: [{expr: {call: {name: putInt}}}]}}\n",
			line: 2,
			msg:  "takes 1 arguments, got 0",
		},
		{
			name: "redeclared",
			src:  "decls:\n  - var: {name: x, type: int}\n  - var: {name: x, type: int}\n",
			line: 3,
			msg:  "declared twice",
		},
		{
			name: "list outside initializer",
			src:  "decls:\n  - var: {name: x, type: int, init: {list: []}}\n",
			line: 2,
			msg:  "only allowed as an array initializer",
		},
		{
			name: "hex int literal",
			src:  "decls:\n  - var: {name: x, type: int, init: {int: 0x10}}\n",
			line: 2,
			msg:  "bad int literal '0x10'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), 2)
			require.Error(t, err)
			var de *Error
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.line, de.Tok.Line)
			assert.Equal(t, 2, de.Tok.FileIndex)
			assert.Contains(t, de.Msg, tt.msg)
		})
	}
}

func TestDecodeLiteralsAndNames(t *testing.T) {
	src := `
decls:
  - var: {name: "e\u0301t\u00e9", type: int, init: {int: 010}}
  - func:
      name: main
      body:
        stmts:
          - expr: {call: {name: putStringLn, args: [{string: "e\u0301"}]}}
          - expr: {ref: "\u00e9te\u0301"}
`
	unit, err := Decode([]byte(src), 0)
	require.NoError(t, err)

	decls := unit.Program.Data.(ast.ProgramNode).Decls
	v := decls[0].Data.(ast.VarDeclNode)
	assert.Equal(t, "\u00e9t\u00e9", v.Name)
	assert.Equal(t, int32(10), v.Init.Data.(ast.IntLitNode).Value, "int literals are decimal")

	stmts := decls[1].Data.(ast.FuncDeclNode).Body.Data.(ast.BlockNode).Stmts
	call := stmts[0].Data.(ast.ExprStmtNode).Expr.Data.(ast.FuncCallNode)
	assert.Equal(t, "e\u0301", call.Args[0].Data.(ast.StringLitNode).Value, "string text is kept as written")

	ref := stmts[1].Data.(ast.ExprStmtNode).Expr.Data.(ast.IdentNode)
	assert.Same(t, decls[0], ref.Decl)
}

func TestDecodeRejectsBadYAML(t *testing.T) {
	_, err := Decode([]byte("decls: [\n"), 0)
	assert.Error(t, err)
	_, err = Decode(nil, 0)
	assert.Error(t, err)
}
