package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/vcc/pkg/ir"
)

// machine executes a listing the way the target would, closely enough to
// observe the behavior of generated code in tests.
type machine struct {
	class   string
	runtime string
	methods map[string]ir.Method
	labels  map[string]map[string]int
	statics map[string]interface{}
	input   []interface{}
	out     strings.Builder
	steps   int
}

type object struct{}

type array struct{ elems []interface{} }

const maxSteps = 1000000

func newMachine(l *ir.Listing, class, runtime string) *machine {
	m := &machine{
		class:   class,
		runtime: runtime,
		methods: make(map[string]ir.Method),
		labels:  make(map[string]map[string]int),
		statics: make(map[string]interface{}),
	}
	for _, meth := range l.Methods() {
		m.methods[meth.Name] = meth
		labels := make(map[string]int)
		for i, in := range meth.Code {
			if in.Kind == ir.KindLabel {
				labels[in.Name] = i
			}
		}
		m.labels[meth.Name] = labels
	}
	return m
}

// run executes the static initializer and then the entry method.
func (m *machine) run() error {
	if _, err := m.invoke("<clinit>()V", nil); err != nil {
		return err
	}
	_, err := m.invoke("main([Ljava/lang/String;)V", []interface{}{nil})
	return err
}

func localsLimit(meth ir.Method) int {
	for _, in := range meth.Code {
		if in.Kind == ir.KindDirective && in.Name == ir.DirLimit && len(in.Args) == 2 && in.Args[0] == "locals" {
			if n, err := strconv.Atoi(in.Args[1]); err == nil {
				return n
			}
		}
	}
	return 256
}

func (m *machine) invoke(name string, args []interface{}) (interface{}, error) {
	meth, ok := m.methods[name]
	if !ok {
		return nil, fmt.Errorf("no method %s", name)
	}
	locals := make([]interface{}, localsLimit(meth))
	if len(args) > len(locals) {
		return nil, fmt.Errorf("%s: %d arguments exceed %d locals", name, len(args), len(locals))
	}
	copy(locals, args)

	var stack []interface{}
	push := func(v interface{}) { stack = append(stack, v) }
	pop := func() interface{} {
		if len(stack) == 0 {
			panic(fmt.Sprintf("%s: operand stack underflow", name))
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popInt := func() int32 { return pop().(int32) }
	popFloat := func() float32 { return pop().(float32) }

	code := meth.Code
	for pc := 0; pc < len(code); pc++ {
		m.steps++
		if m.steps > maxSteps {
			return nil, fmt.Errorf("%s: step limit exceeded", name)
		}
		in := code[pc]
		if in.Kind != ir.KindOp {
			continue
		}
		jump := func(cond bool) {
			if cond {
				pc = m.labels[name][in.Args[0]]
			}
		}

		switch op := in.Op; op {
		case ir.OpNop:
		case ir.OpIconstM1, ir.OpIconst0, ir.OpIconst1, ir.OpIconst2, ir.OpIconst3, ir.OpIconst4, ir.OpIconst5:
			push(int32(op - ir.OpIconst0))
		case ir.OpBipush, ir.OpSipush:
			n, _ := strconv.Atoi(in.Args[0])
			push(int32(n))
		case ir.OpLdc:
			arg := in.Args[0]
			switch {
			case strings.HasPrefix(arg, `"`):
				s, err := strconv.Unquote(arg)
				if err != nil {
					return nil, err
				}
				push(s)
			case strings.Contains(arg, "."):
				f, _ := strconv.ParseFloat(arg, 32)
				push(float32(f))
			default:
				n, _ := strconv.ParseInt(arg, 10, 32)
				push(int32(n))
			}
		case ir.OpFconst0, ir.OpFconst1, ir.OpFconst2:
			push(float32(op - ir.OpFconst0))

		case ir.OpIload, ir.OpFload, ir.OpAload:
			n, _ := strconv.Atoi(in.Args[0])
			push(locals[n])
		case ir.OpIload0, ir.OpIload1, ir.OpIload2, ir.OpIload3:
			push(locals[op-ir.OpIload0])
		case ir.OpFload0, ir.OpFload1, ir.OpFload2, ir.OpFload3:
			push(locals[op-ir.OpFload0])
		case ir.OpAload0, ir.OpAload1, ir.OpAload2, ir.OpAload3:
			push(locals[op-ir.OpAload0])
		case ir.OpIstore, ir.OpFstore, ir.OpAstore:
			n, _ := strconv.Atoi(in.Args[0])
			locals[n] = pop()
		case ir.OpIstore0, ir.OpIstore1, ir.OpIstore2, ir.OpIstore3:
			locals[op-ir.OpIstore0] = pop()
		case ir.OpFstore0, ir.OpFstore1, ir.OpFstore2, ir.OpFstore3:
			locals[op-ir.OpFstore0] = pop()
		case ir.OpAstore0, ir.OpAstore1, ir.OpAstore2, ir.OpAstore3:
			locals[op-ir.OpAstore0] = pop()

		case ir.OpNewarray:
			n := popInt()
			arr := &array{elems: make([]interface{}, n)}
			for i := range arr.elems {
				if in.Args[0] == "float" {
					arr.elems[i] = float32(0)
				} else {
					arr.elems[i] = int32(0)
				}
			}
			push(arr)
		case ir.OpIaload, ir.OpFaload, ir.OpBaload:
			idx := popInt()
			arr := pop().(*array)
			push(arr.elems[idx])
		case ir.OpIastore, ir.OpFastore, ir.OpBastore:
			v := pop()
			idx := popInt()
			arr := pop().(*array)
			arr.elems[idx] = v
		case ir.OpNew:
			push(&object{})

		case ir.OpDup:
			v := pop()
			push(v)
			push(v)
		case ir.OpDupX2:
			v1, v2, v3 := pop(), pop(), pop()
			push(v1)
			push(v3)
			push(v2)
			push(v1)
		case ir.OpPop:
			pop()

		case ir.OpIadd, ir.OpIsub, ir.OpImul, ir.OpIdiv:
			b, a := popInt(), popInt()
			switch op {
			case ir.OpIadd:
				push(a + b)
			case ir.OpIsub:
				push(a - b)
			case ir.OpImul:
				push(a * b)
			default:
				if b == 0 {
					return nil, fmt.Errorf("%s: division by zero", name)
				}
				push(a / b)
			}
		case ir.OpFadd, ir.OpFsub, ir.OpFmul, ir.OpFdiv:
			b, a := popFloat(), popFloat()
			switch op {
			case ir.OpFadd:
				push(a + b)
			case ir.OpFsub:
				push(a - b)
			case ir.OpFmul:
				push(a * b)
			default:
				push(a / b)
			}
		case ir.OpIneg:
			push(-popInt())
		case ir.OpFneg:
			push(-popFloat())
		case ir.OpI2f:
			push(float32(popInt()))
		case ir.OpFcmpl, ir.OpFcmpg:
			b, a := popFloat(), popFloat()
			switch {
			case math.IsNaN(float64(a)) || math.IsNaN(float64(b)):
				if op == ir.OpFcmpl {
					push(int32(-1))
				} else {
					push(int32(1))
				}
			case a > b:
				push(int32(1))
			case a < b:
				push(int32(-1))
			default:
				push(int32(0))
			}

		case ir.OpIfeq:
			jump(popInt() == 0)
		case ir.OpIfne:
			jump(popInt() != 0)
		case ir.OpIflt:
			jump(popInt() < 0)
		case ir.OpIfle:
			jump(popInt() <= 0)
		case ir.OpIfgt:
			jump(popInt() > 0)
		case ir.OpIfge:
			jump(popInt() >= 0)
		case ir.OpIfIcmpeq, ir.OpIfIcmpne, ir.OpIfIcmplt, ir.OpIfIcmple, ir.OpIfIcmpgt, ir.OpIfIcmpge:
			b, a := popInt(), popInt()
			jump(map[ir.Op]bool{
				ir.OpIfIcmpeq: a == b, ir.OpIfIcmpne: a != b, ir.OpIfIcmplt: a < b,
				ir.OpIfIcmple: a <= b, ir.OpIfIcmpgt: a > b, ir.OpIfIcmpge: a >= b,
			}[op])
		case ir.OpGoto:
			jump(true)

		case ir.OpGetstatic:
			v, ok := m.statics[in.Args[0]]
			if !ok {
				return nil, fmt.Errorf("%s: read of unset static %s", name, in.Args[0])
			}
			push(v)
		case ir.OpPutstatic:
			m.statics[in.Args[0]] = pop()

		case ir.OpInvokestatic:
			if err := m.callRuntime(in.Args[0], pop, push); err != nil {
				return nil, err
			}
		case ir.OpInvokevirtual:
			ref := strings.TrimPrefix(in.Args[0], m.class+"/")
			n, returns, err := ir.ParseMethodDescriptor(ref)
			if err != nil {
				return nil, err
			}
			callArgs := make([]interface{}, n+1)
			for i := n; i >= 0; i-- {
				callArgs[i] = pop()
			}
			if _, ok := callArgs[0].(*object); !ok {
				return nil, fmt.Errorf("%s: %s called without a receiver", name, ref)
			}
			v, err := m.invoke(ref, callArgs)
			if err != nil {
				return nil, err
			}
			if returns {
				push(v)
			}
		case ir.OpInvokenonvirtual, ir.OpInvokespecial:
			pop()

		case ir.OpReturn:
			return nil, nil
		case ir.OpIreturn, ir.OpFreturn:
			return pop(), nil
		default:
			return nil, fmt.Errorf("%s: cannot execute %s", name, op)
		}
	}
	return nil, fmt.Errorf("%s: fell off the end of the method", name)
}

func (m *machine) callRuntime(ref string, pop func() interface{}, push func(interface{})) error {
	routine := strings.TrimPrefix(ref, m.runtime+"/")
	routine = routine[:strings.IndexByte(routine, '(')]
	switch routine {
	case "getInt", "getFloat":
		if len(m.input) == 0 {
			return fmt.Errorf("%s: no input left", routine)
		}
		push(m.input[0])
		m.input = m.input[1:]
	case "putInt", "putIntLn":
		fmt.Fprint(&m.out, pop().(int32))
	case "putFloat", "putFloatLn":
		fmt.Fprint(&m.out, pop().(float32))
	case "putBool", "putBoolLn":
		fmt.Fprint(&m.out, pop().(int32) != 0)
	case "putString", "putStringLn":
		fmt.Fprint(&m.out, pop().(string))
	case "putLn":
	default:
		return fmt.Errorf("unknown runtime routine %s", ref)
	}
	if strings.HasSuffix(routine, "Ln") {
		m.out.WriteByte('\n')
	}
	return nil
}
