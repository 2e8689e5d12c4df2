package codegen

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/vcc/pkg/ir"
)

const helloProgram = `
class: Hello
decls:
  - func:
      name: main
      body: {stmts: [{expr: {call: {name: putStringLn, args: [{string: "hello"}]}}}]}
`

func TestJasminBackendRendersListing(t *testing.T) {
	l := compile(t, helloProgram)
	buf, err := NewJasminBackend().Generate(l, newTestConfig(t, "Hello"))
	require.NoError(t, err)
	assert.Equal(t, l.String(), buf.String())
	assert.Contains(t, buf.String(), "ldc \"hello\"\ninvokestatic VC/lang/System/putStringLn(Ljava/lang/String;)V\n")
}

func TestJasminBackendRejectsBrokenListings(t *testing.T) {
	var l ir.Listing
	l.Directive(ir.DirMethod, "f()V")
	l.Emit(ir.OpGoto, "Lnowhere")
	l.Directive(ir.DirEnd, "method")

	_, err := NewJasminBackend().Generate(&l, newTestConfig(t, "Broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Listing Verification Failed")
	assert.Contains(t, err.Error(), "undefined label Lnowhere")
}

func TestJasminBackendFixedStackLimit(t *testing.T) {
	cfg := newTestConfig(t, "Hello", "-Fno-exact-stack")
	cfg.FixedStackLimit = 1
	l, err := NewContext(cfg).Generate(decode(t, helloProgram).Program)
	require.NoError(t, err)

	_, err = NewJasminBackend().Generate(l, cfg)
	assert.Error(t, err, "main needs two stack slots to construct its instance")
}

func TestAssemblerMissingCommand(t *testing.T) {
	t.Setenv("PATH", "")
	err := NewAssembler().Assemble(context.Background(), "Hello.j", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assembler not found")
}

func TestAssemblerReportsFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("no 'false' command available")
	}
	a := &Assembler{Command: "false"}
	err := a.Assemble(context.Background(), filepath.Join(t.TempDir(), "Hello.j"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Assembly Failed")
}
