package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// VerifyError is a structural defect found in a listing.
type VerifyError struct {
	Method  string
	Index   int
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: instruction %d: %s", e.Method, e.Index, e.Message)
}

// Method is one method body of a listing, as a window into its instructions.
type Method struct {
	Name  string
	Start int // index of the .method directive
	End   int // index of the .end directive
	Code  []Instruction
}

// MethodInfo is what Verify learned about one method.
type MethodInfo struct {
	Name           string
	MaxStack       int
	DeclaredStack  int
	DeclaredLocals int
	MaxLocal       int
	Labels         []string
	Unreachable    []string
}

// Methods splits a listing into its method bodies.
func (l *Listing) Methods() []Method {
	var methods []Method
	cur := -1
	for i, in := range l.Instructions {
		if in.Kind != KindDirective {
			continue
		}
		switch in.Name {
		case DirMethod:
			cur = i
		case DirEnd:
			if cur < 0 {
				continue
			}
			hdr := l.Instructions[cur]
			name := ""
			if len(hdr.Args) > 0 {
				name = hdr.Args[len(hdr.Args)-1]
			}
			methods = append(methods, Method{Name: name, Start: cur, End: i, Code: l.Instructions[cur+1 : i]})
			cur = -1
		}
	}
	return methods
}

// Verify checks every method of the listing: each label is defined once,
// every branch target is defined, the simulated operand stack never
// underflows and agrees at join points, and the declared limits cover what
// the code needs.
func Verify(l *Listing) ([]MethodInfo, error) {
	var infos []MethodInfo
	for _, m := range l.Methods() {
		info, err := verifyMethod(m)
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func verifyMethod(m Method) (MethodInfo, error) {
	info := MethodInfo{Name: m.Name, DeclaredStack: -1, DeclaredLocals: -1, MaxLocal: -1}
	fail := func(i int, format string, args ...interface{}) (MethodInfo, error) {
		return info, &VerifyError{Method: m.Name, Index: m.Start + 1 + i, Message: fmt.Sprintf(format, args...)}
	}

	labels := make(map[string]int)
	for i, in := range m.Code {
		switch in.Kind {
		case KindLabel:
			if _, dup := labels[in.Name]; dup {
				return fail(i, "label %s defined more than once", in.Name)
			}
			labels[in.Name] = i
			info.Labels = append(info.Labels, in.Name)
		case KindDirective:
			if in.Name == DirLimit && len(in.Args) == 2 {
				n, err := strconv.Atoi(in.Args[1])
				if err != nil {
					return fail(i, "bad limit %q", in.Args[1])
				}
				switch in.Args[0] {
				case "stack":
					info.DeclaredStack = n
				case "locals":
					info.DeclaredLocals = n
				}
			}
		case KindOp:
			if slot, ok := localSlot(in); ok && slot > info.MaxLocal {
				info.MaxLocal = slot
			}
		}
	}
	for i, in := range m.Code {
		if in.Kind == KindOp && in.Op.IsBranch() {
			if len(in.Args) != 1 {
				return fail(i, "%s needs one label", in.Op)
			}
			if _, ok := labels[in.Args[0]]; !ok {
				return fail(i, "branch to undefined label %s", in.Args[0])
			}
		}
	}

	depth := make([]int, len(m.Code)+1)
	for i := range depth {
		depth[i] = -1
	}
	work := []int{0}
	depth[0] = 0
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		d := depth[i]
		flow := func(next, nd int) error {
			if next > len(m.Code) {
				return nil
			}
			if depth[next] == -1 {
				depth[next] = nd
				work = append(work, next)
				return nil
			}
			if depth[next] != nd {
				return &VerifyError{Method: m.Name, Index: m.Start + 1 + next,
					Message: fmt.Sprintf("inconsistent stack depth at join: %d vs %d", depth[next], nd)}
			}
			return nil
		}
		if i == len(m.Code) {
			continue
		}
		in := m.Code[i]
		if in.Kind != KindOp {
			if err := flow(i+1, d); err != nil {
				return info, err
			}
			continue
		}
		pops, pushes, err := stackEffect(in)
		if err != nil {
			return fail(i, "%v", err)
		}
		if d < pops {
			return fail(i, "%s underflows the operand stack (depth %d)", in.Op, d)
		}
		nd := d - pops + pushes
		if nd > info.MaxStack {
			info.MaxStack = nd
		}
		switch {
		case in.Op == OpGoto:
			if err := flow(labels[in.Args[0]], nd); err != nil {
				return info, err
			}
		case in.Op.IsBranch():
			if err := flow(labels[in.Args[0]], nd); err != nil {
				return info, err
			}
			if err := flow(i+1, nd); err != nil {
				return info, err
			}
		case in.Op.IsReturn():
		default:
			if err := flow(i+1, nd); err != nil {
				return info, err
			}
		}
	}

	for _, name := range info.Labels {
		if i := labels[name]; depth[i] == -1 && !m.Code[i].Scope {
			info.Unreachable = append(info.Unreachable, name)
		}
	}
	if info.DeclaredStack >= 0 && info.DeclaredStack < info.MaxStack {
		return fail(len(m.Code)-1, ".limit stack %d is below the required %d", info.DeclaredStack, info.MaxStack)
	}
	if info.DeclaredLocals >= 0 && info.DeclaredLocals <= info.MaxLocal {
		return fail(len(m.Code)-1, ".limit locals %d does not cover slot %d", info.DeclaredLocals, info.MaxLocal)
	}
	return info, nil
}

// stackEffect returns how many operands an instruction consumes and produces.
func stackEffect(in Instruction) (pops, pushes int, err error) {
	switch in.Op {
	case OpNop, OpGoto, OpReturn:
		return 0, 0, nil
	case OpIneg, OpFneg, OpI2f, OpNewarray:
		return 1, 1, nil
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpBipush, OpSipush, OpLdc, OpFconst0, OpFconst1, OpFconst2,
		OpIload, OpIload0, OpIload1, OpIload2, OpIload3,
		OpFload, OpFload0, OpFload1, OpFload2, OpFload3,
		OpAload, OpAload0, OpAload1, OpAload2, OpAload3,
		OpGetstatic, OpNew:
		return 0, 1, nil
	case OpIstore, OpIstore0, OpIstore1, OpIstore2, OpIstore3,
		OpFstore, OpFstore0, OpFstore1, OpFstore2, OpFstore3,
		OpAstore, OpAstore0, OpAstore1, OpAstore2, OpAstore3,
		OpPutstatic, OpPop, OpIfeq, OpIfne, OpIflt, OpIfle, OpIfgt, OpIfge,
		OpIreturn, OpFreturn:
		return 1, 0, nil
	case OpIaload, OpFaload, OpBaload:
		return 2, 1, nil
	case OpIastore, OpFastore, OpBastore:
		return 3, 0, nil
	case OpDup:
		return 1, 2, nil
	case OpDupX2:
		return 3, 4, nil
	case OpIadd, OpIsub, OpImul, OpIdiv, OpFadd, OpFsub, OpFmul, OpFdiv, OpFcmpl, OpFcmpg:
		return 2, 1, nil
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmple, OpIfIcmpgt, OpIfIcmpge:
		return 2, 0, nil
	case OpInvokestatic, OpInvokevirtual, OpInvokenonvirtual, OpInvokespecial:
		if len(in.Args) != 1 {
			return 0, 0, fmt.Errorf("%s needs one method reference", in.Op)
		}
		args, ret, err := ParseMethodDescriptor(in.Args[0])
		if err != nil {
			return 0, 0, err
		}
		pops = args
		if in.Op != OpInvokestatic {
			pops++
		}
		if ret {
			pushes = 1
		}
		return pops, pushes, nil
	}
	return 0, 0, fmt.Errorf("no stack effect known for %s", in.Op)
}

// ParseMethodDescriptor counts the parameters of a method reference such as
// "C/f(I[FLjava/lang/String;)V" and reports whether it returns a value.
func ParseMethodDescriptor(ref string) (params int, returnsValue bool, err error) {
	open := strings.IndexByte(ref, '(')
	closing := strings.LastIndexByte(ref, ')')
	if open < 0 || closing < open || closing == len(ref)-1 {
		return 0, false, fmt.Errorf("malformed method descriptor %q", ref)
	}
	desc := ref[open+1 : closing]
	for i := 0; i < len(desc); i++ {
		switch desc[i] {
		case '[':
			continue
		case 'L':
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				return 0, false, fmt.Errorf("unterminated class type in %q", ref)
			}
			i += end
		}
		params++
	}
	return params, ref[closing+1:] != "V", nil
}

func localSlot(in Instruction) (int, bool) {
	switch in.Op {
	case OpIload0, OpFload0, OpAload0, OpIstore0, OpFstore0, OpAstore0:
		return 0, true
	case OpIload1, OpFload1, OpAload1, OpIstore1, OpFstore1, OpAstore1:
		return 1, true
	case OpIload2, OpFload2, OpAload2, OpIstore2, OpFstore2, OpAstore2:
		return 2, true
	case OpIload3, OpFload3, OpAload3, OpIstore3, OpFstore3, OpAstore3:
		return 3, true
	case OpIload, OpFload, OpAload, OpIstore, OpFstore, OpAstore:
		if len(in.Args) == 1 {
			if n, err := strconv.Atoi(in.Args[0]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
