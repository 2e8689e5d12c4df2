// Package ir holds the instruction sink: an append-only listing of Jasmin
// instructions, labels and directives, and its textual form.
package ir

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

type Op int

const (
	OpNop Op = iota
	OpIconstM1
	OpIconst0
	OpIconst1
	OpIconst2
	OpIconst3
	OpIconst4
	OpIconst5
	OpBipush
	OpSipush
	OpLdc
	OpFconst0
	OpFconst1
	OpFconst2

	OpIload
	OpIload0
	OpIload1
	OpIload2
	OpIload3
	OpFload
	OpFload0
	OpFload1
	OpFload2
	OpFload3
	OpAload
	OpAload0
	OpAload1
	OpAload2
	OpAload3

	OpIstore
	OpIstore0
	OpIstore1
	OpIstore2
	OpIstore3
	OpFstore
	OpFstore0
	OpFstore1
	OpFstore2
	OpFstore3
	OpAstore
	OpAstore0
	OpAstore1
	OpAstore2
	OpAstore3

	OpIaload
	OpFaload
	OpBaload
	OpIastore
	OpFastore
	OpBastore
	OpNewarray
	OpNew

	OpDup
	OpDupX2
	OpPop

	OpIadd
	OpIsub
	OpImul
	OpIdiv
	OpFadd
	OpFsub
	OpFmul
	OpFdiv
	OpIneg
	OpFneg
	OpI2f
	OpFcmpl
	OpFcmpg

	OpIfeq
	OpIfne
	OpIflt
	OpIfle
	OpIfgt
	OpIfge
	OpIfIcmpeq
	OpIfIcmpne
	OpIfIcmplt
	OpIfIcmple
	OpIfIcmpgt
	OpIfIcmpge
	OpGoto

	OpGetstatic
	OpPutstatic
	OpInvokestatic
	OpInvokevirtual
	OpInvokenonvirtual
	OpInvokespecial

	OpReturn
	OpIreturn
	OpFreturn

	opCount
)

var opNames = [opCount]string{
	OpNop: "nop", OpIconstM1: "iconst_m1",
	OpIconst0: "iconst_0", OpIconst1: "iconst_1", OpIconst2: "iconst_2",
	OpIconst3: "iconst_3", OpIconst4: "iconst_4", OpIconst5: "iconst_5",
	OpBipush: "bipush", OpSipush: "sipush", OpLdc: "ldc",
	OpFconst0: "fconst_0", OpFconst1: "fconst_1", OpFconst2: "fconst_2",

	OpIload: "iload", OpIload0: "iload_0", OpIload1: "iload_1", OpIload2: "iload_2", OpIload3: "iload_3",
	OpFload: "fload", OpFload0: "fload_0", OpFload1: "fload_1", OpFload2: "fload_2", OpFload3: "fload_3",
	OpAload: "aload", OpAload0: "aload_0", OpAload1: "aload_1", OpAload2: "aload_2", OpAload3: "aload_3",

	OpIstore: "istore", OpIstore0: "istore_0", OpIstore1: "istore_1", OpIstore2: "istore_2", OpIstore3: "istore_3",
	OpFstore: "fstore", OpFstore0: "fstore_0", OpFstore1: "fstore_1", OpFstore2: "fstore_2", OpFstore3: "fstore_3",
	OpAstore: "astore", OpAstore0: "astore_0", OpAstore1: "astore_1", OpAstore2: "astore_2", OpAstore3: "astore_3",

	OpIaload: "iaload", OpFaload: "faload", OpBaload: "baload",
	OpIastore: "iastore", OpFastore: "fastore", OpBastore: "bastore",
	OpNewarray: "newarray", OpNew: "new",

	OpDup: "dup", OpDupX2: "dup_x2", OpPop: "pop",

	OpIadd: "iadd", OpIsub: "isub", OpImul: "imul", OpIdiv: "idiv",
	OpFadd: "fadd", OpFsub: "fsub", OpFmul: "fmul", OpFdiv: "fdiv",
	OpIneg: "ineg", OpFneg: "fneg", OpI2f: "i2f", OpFcmpl: "fcmpl", OpFcmpg: "fcmpg",

	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfle: "ifle", OpIfgt: "ifgt", OpIfge: "ifge",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmple: "if_icmple", OpIfIcmpgt: "if_icmpgt", OpIfIcmpge: "if_icmpge",
	OpGoto: "goto",

	OpGetstatic: "getstatic", OpPutstatic: "putstatic",
	OpInvokestatic: "invokestatic", OpInvokevirtual: "invokevirtual",
	OpInvokenonvirtual: "invokenonvirtual", OpInvokespecial: "invokespecial",

	OpReturn: "return", OpIreturn: "ireturn", OpFreturn: "freturn",
}

var opByName = make(map[string]Op, opCount)

func init() {
	for op, name := range opNames {
		opByName[name] = Op(op)
	}
}

func (op Op) String() string {
	if op >= 0 && op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// LookupOp returns the opcode spelled name.
func LookupOp(name string) (Op, bool) {
	op, ok := opByName[name]
	return op, ok
}

// IsBranch is true for every op whose single argument is a label.
func (op Op) IsBranch() bool { return op >= OpIfeq && op <= OpGoto }

// IsReturn is true for the method-terminating ops.
func (op Op) IsReturn() bool { return op >= OpReturn && op <= OpFreturn }

// Directive keywords of the assembler dialect
const (
	DirClass  = ".class"
	DirSuper  = ".super"
	DirField  = ".field"
	DirMethod = ".method"
	DirEnd    = ".end"
	DirLimit  = ".limit"
	DirVar    = ".var"
)

type Kind int

const (
	KindOp Kind = iota
	KindLabel
	KindDirective
	KindComment
	KindBlank
)

// Instruction is one line of the listing. For KindOp, Op and Args are set;
// for KindLabel, Name is the label and Scope marks a label that only bounds
// .var ranges; for KindDirective, Name is the keyword
// and Args its operands; for KindComment, Name is the comment text.
type Instruction struct {
	Kind Kind
	Op   Op
	Name  string
	Args  []string
	Scope bool
}

func (in Instruction) String() string {
	switch in.Kind {
	case KindOp:
		if len(in.Args) == 0 {
			return in.Op.String()
		}
		return in.Op.String() + " " + strings.Join(in.Args, " ")
	case KindLabel:
		return in.Name + ":"
	case KindDirective:
		if len(in.Args) == 0 {
			return in.Name
		}
		return in.Name + " " + strings.Join(in.Args, " ")
	case KindComment:
		return "; " + in.Name
	}
	return ""
}

// Listing is the append-only instruction sink for one compilation unit.
type Listing struct {
	Instructions []Instruction
}

func (l *Listing) Emit(op Op, args ...string) {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindOp, Op: op, Args: args})
}

func (l *Listing) Label(name string) {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindLabel, Name: name})
}

// ScopeLabel defines a label no branch targets. It may follow a return.
func (l *Listing) ScopeLabel(name string) {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindLabel, Name: name, Scope: true})
}

func (l *Listing) Directive(name string, args ...string) {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindDirective, Name: name, Args: args})
}

func (l *Listing) Comment(text string) {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindComment, Name: text})
}

func (l *Listing) Blank() {
	l.Instructions = append(l.Instructions, Instruction{Kind: KindBlank})
}

func (l *Listing) Len() int { return len(l.Instructions) }

// WriteTo writes the textual listing, one record per line.
func (l *Listing) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, in := range l.Instructions {
		buf.WriteString(in.String())
		buf.WriteByte('\n')
	}
	return buf.WriteTo(w)
}

func (l *Listing) String() string {
	var sb strings.Builder
	l.WriteTo(&sb)
	return sb.String()
}

// Digest fingerprints the textual listing; equal listings have equal digests.
func (l *Listing) Digest() uint64 {
	h := xxhash.New()
	l.WriteTo(h)
	return h.Sum64()
}
