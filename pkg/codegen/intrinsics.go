package codegen

import (
	"sort"
	"strings"

	"github.com/xplshn/vcc/pkg/ast"
)

// IsIntrinsic reports whether name is reserved for a runtime routine.
func IsIntrinsic(name string) bool {
	_, ok := ast.Intrinsics[name]
	return ok
}

// IntrinsicNames lists the reserved names in a stable order.
func IntrinsicNames() []string {
	names := make([]string, 0, len(ast.Intrinsics))
	for name := range ast.Intrinsics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func signatureDescriptor(sig ast.Signature) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range sig.Params {
		sb.WriteString(descriptor(p))
	}
	sb.WriteByte(')')
	sb.WriteString(descriptor(sig.Return))
	return sb.String()
}
