package codegen

import (
	"fmt"

	"github.com/xplshn/vcc/pkg/token"
)

// Error is an internal defect of the code generator: a node shape or type
// combination it cannot translate, or emitted code that disagrees with the
// stack model. It aborts the whole compilation.
type Error struct {
	Tok       token.Token
	Construct string
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("internal code generator error in %s: %s", e.Construct, e.Msg)
}

func fail(tok token.Token, construct, format string, args ...interface{}) {
	panic(&Error{Tok: tok, Construct: construct, Msg: fmt.Sprintf(format, args...)})
}
