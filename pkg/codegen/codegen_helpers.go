package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/vcc/pkg/ast"
	"github.com/xplshn/vcc/pkg/ir"
	"github.com/xplshn/vcc/pkg/token"
)

const descString = "Ljava/lang/String;"

// repr is the machine representation of a value.
type repr int

const (
	reprInt repr = iota
	reprFloat
	reprRef
)

func representation(tok token.Token, t *ast.VcType) repr {
	switch {
	case t.IsIntLike():
		return reprInt
	case t.IsFloat():
		return reprFloat
	case t.IsArray(), t != nil && t.Kind == ast.TYPE_STRING:
		return reprRef
	}
	fail(tok, "instruction selection", "no value representation for type %s", t)
	return reprInt
}

// descriptor renders a type in field descriptor form.
func descriptor(t *ast.VcType) string {
	if t == nil {
		panic(&Error{Construct: "descriptor", Msg: "missing type"})
	}
	switch t.Kind {
	case ast.TYPE_INT:
		return "I"
	case ast.TYPE_FLOAT:
		return "F"
	case ast.TYPE_BOOLEAN:
		return "Z"
	case ast.TYPE_VOID:
		return "V"
	case ast.TYPE_STRING:
		return descString
	case ast.TYPE_ARRAY:
		return "[" + descriptor(t.Elem)
	}
	panic(&Error{Construct: "descriptor", Msg: "unknown type kind " + strconv.Itoa(int(t.Kind))})
}

// methodDescriptor concatenates the declared parameter types and the return type.
func methodDescriptor(fn ast.FuncDeclNode) string {
	sig := ast.Signature{Return: fn.ReturnType}
	for _, p := range fn.Params {
		sig.Params = append(sig.Params, p.Data.(ast.VarDeclNode).Type)
	}
	return signatureDescriptor(sig)
}

// newarrayType is the element keyword operand of newarray.
func newarrayType(tok token.Token, elem *ast.VcType) string {
	switch {
	case elem.IsBoolean():
		return "boolean"
	case elem.IsIntLike():
		return "int"
	case elem.IsFloat():
		return "float"
	}
	fail(tok, "array allocation", "unsupported element type %s", elem)
	return ""
}

func arrayLoadOp(tok token.Token, elem *ast.VcType) ir.Op {
	switch {
	case elem.IsBoolean():
		return ir.OpBaload
	case elem.IsIntLike():
		return ir.OpIaload
	case elem.IsFloat():
		return ir.OpFaload
	}
	fail(tok, "array load", "unsupported element type %s", elem)
	return ir.OpNop
}

func arrayStoreOp(tok token.Token, elem *ast.VcType) ir.Op {
	switch {
	case elem.IsBoolean():
		return ir.OpBastore
	case elem.IsIntLike():
		return ir.OpIastore
	case elem.IsFloat():
		return ir.OpFastore
	}
	fail(tok, "array store", "unsupported element type %s", elem)
	return ir.OpNop
}

// slotOp picks the compact form of a load or store for the first four slots.
// base must be the general form, immediately followed by its _0.._3 forms.
func slotOp(base ir.Op, slot int) (ir.Op, []string) {
	if slot >= 0 && slot <= 3 {
		return base + 1 + ir.Op(slot), nil
	}
	return base, []string{strconv.Itoa(slot)}
}

func loadOp(tok token.Token, t *ast.VcType, slot int) (ir.Op, []string) {
	switch representation(tok, t) {
	case reprFloat:
		return slotOp(ir.OpFload, slot)
	case reprRef:
		return slotOp(ir.OpAload, slot)
	}
	return slotOp(ir.OpIload, slot)
}

func storeOp(tok token.Token, t *ast.VcType, slot int) (ir.Op, []string) {
	switch representation(tok, t) {
	case reprFloat:
		return slotOp(ir.OpFstore, slot)
	case reprRef:
		return slotOp(ir.OpAstore, slot)
	}
	return slotOp(ir.OpIstore, slot)
}

func returnOp(tok token.Token, t *ast.VcType) ir.Op {
	if representation(tok, t) == reprFloat {
		return ir.OpFreturn
	}
	if t.IsArray() {
		fail(tok, "return", "functions cannot return arrays")
	}
	return ir.OpIreturn
}

// intConst selects the shortest constant load for v.
func intConst(v int32) (ir.Op, []string) {
	switch {
	case v == -1:
		return ir.OpIconstM1, nil
	case v >= 0 && v <= 5:
		return ir.OpIconst0 + ir.Op(v), nil
	case v >= -128 && v <= 127:
		return ir.OpBipush, []string{strconv.Itoa(int(v))}
	case v >= -32768 && v <= 32767:
		return ir.OpSipush, []string{strconv.Itoa(int(v))}
	}
	return ir.OpLdc, []string{strconv.Itoa(int(v))}
}

func floatConst(v float32) (ir.Op, []string) {
	switch v {
	case 0:
		if !math.Signbit(float64(v)) {
			return ir.OpFconst0, nil
		}
	case 1:
		return ir.OpFconst1, nil
	case 2:
		return ir.OpFconst2, nil
	}
	return ir.OpLdc, []string{formatFloat(v)}
}

// formatFloat always keeps a decimal point so the assembler reads a float.
func formatFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// quoteString writes s as an assembler string operand. Control characters
// without a short escape are written as \uXXXX.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// alwaysReturns reports whether every path through stmt ends in a return.
func alwaysReturns(stmt *ast.Node) bool {
	if stmt == nil {
		return false
	}
	switch stmt.Type {
	case ast.Return:
		return true
	case ast.Block:
		for _, s := range stmt.Data.(ast.BlockNode).Stmts {
			if alwaysReturns(s) {
				return true
			}
		}
	case ast.If:
		d := stmt.Data.(ast.IfNode)
		return alwaysReturns(d.ThenBody) && alwaysReturns(d.ElseBody)
	}
	return false
}

// zeroValue is the literal a scalar of type t starts from.
func zeroValue(tok token.Token, t *ast.VcType) (ir.Op, []string) {
	if representation(tok, t) == reprFloat {
		return ir.OpFconst0, nil
	}
	return ir.OpIconst0, nil
}
