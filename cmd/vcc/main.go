package main

import (
	"errors"

	"github.com/xplshn/vcc/pkg/astio"
	"github.com/xplshn/vcc/pkg/codegen"
	"github.com/xplshn/vcc/pkg/token"
	"github.com/xplshn/vcc/pkg/util"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		report(err)
	}
}

// report prints err as a positioned diagnostic and exits.
func report(err error) {
	var decodeErr *astio.Error
	var genErr *codegen.Error
	switch {
	case errors.As(err, &decodeErr):
		util.Error(decodeErr.Tok, "%s", decodeErr.Msg)
	case errors.As(err, &genErr):
		util.Error(genErr.Tok, "%s", genErr.Error())
	default:
		util.Error(token.Token{}, "%v", err)
	}
}
