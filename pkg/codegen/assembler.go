package codegen

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Assembler runs an external Jasmin assembler over a written listing.
type Assembler struct {
	// Command is the assembler executable, looked up in PATH.
	Command string
}

func NewAssembler() *Assembler { return &Assembler{Command: "jasmin"} }

// Assemble turns the listing at src into a class file under outDir.
func (a *Assembler) Assemble(ctx context.Context, src, outDir string) error {
	path, err := exec.LookPath(a.Command)
	if err != nil {
		return fmt.Errorf("assembler not found in PATH: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-d", filepath.Clean(outDir), src)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("\n--- Assembly Failed ---\nListing: %s\n%s\nError: %w", src, stderr.String(), err)
	}
	return nil
}
