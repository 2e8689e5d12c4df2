package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/vcc/pkg/config"
	"github.com/xplshn/vcc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a listing and a configuration, and produces the target
	// assembly text as a byte buffer.
	Generate(l *ir.Listing, cfg *config.Config) (*bytes.Buffer, error)
}

type jasminBackend struct{}

func NewJasminBackend() Backend { return jasminBackend{} }

// Generate checks the listing's labels and stack accounting before rendering
// it, so that a defective listing is never handed to the assembler.
func (jasminBackend) Generate(l *ir.Listing, cfg *config.Config) (*bytes.Buffer, error) {
	infos, err := ir.Verify(l)
	if err != nil {
		return nil, fmt.Errorf("\n--- Listing Verification Failed ---\nGenerated listing:\n%s\n\nverifier error: %w", l, err)
	}
	if !cfg.IsFeatureEnabled(config.FeatExactStack) {
		for _, info := range infos {
			if info.MaxStack > cfg.FixedStackLimit {
				return nil, fmt.Errorf("method %s needs a stack of %d, above the fixed limit %d", info.Name, info.MaxStack, cfg.FixedStackLimit)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
