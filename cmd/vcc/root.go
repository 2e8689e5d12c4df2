package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/xplshn/vcc/pkg/astio"
	"github.com/xplshn/vcc/pkg/codegen"
	"github.com/xplshn/vcc/pkg/config"
	"github.com/xplshn/vcc/pkg/logger"
	"github.com/xplshn/vcc/pkg/util"
)

// options holds the command line flags.
type options struct {
	output     string
	class      string
	configFile string
	logFormat  string
	verbose    bool
	dump       bool
	assemble   bool
	warnings   []string
	features   []string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "vcc [flags] <input.yaml>",
		Short: "Generate Jasmin assembly from a typed VC syntax tree",
		Long: `vcc reads the typed, resolved syntax tree of a VC program (YAML) and
writes the Jasmin listing of its class. Warnings and features are toggled
with -W<name>/-Wno-<name> and -F<name>/-Fno-<name>.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.output, "output", "o", "", "place the listing into <file> (default <class>.j)")
	fs.StringVar(&opts.class, "class", "", "name of the generated class")
	fs.StringVar(&opts.configFile, "config", "", "read settings from a YAML file")
	fs.StringVar(&opts.logFormat, "log-format", "text", "log format (text|json)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log every phase and emitted method")
	fs.BoolVar(&opts.dump, "dump", false, "print the listing to stdout instead of writing a file")
	fs.BoolVar(&opts.assemble, "assemble", false, "run the jasmin assembler on the written listing")
	fs.StringArrayVarP(&opts.warnings, "warn", "W", nil, "enable a warning, or disable it with no-<name> (all for every warning)")
	fs.StringArrayVarP(&opts.features, "feature", "F", nil, "enable a feature, or disable it with no-<name>")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + switchesHelp())
	return cmd
}

func switchesHelp() string {
	cfg := config.NewConfig()
	var sb strings.Builder
	sb.WriteString("Warnings:\n")
	for _, name := range cfg.WarningNames() {
		info := cfg.Warnings[cfg.WarningMap[name]]
		fmt.Fprintf(&sb, "  %-22s %s\n", name, info.Description)
	}
	sb.WriteString("Features:\n")
	for _, name := range cfg.FeatureNames() {
		info := cfg.Features[cfg.FeatureMap[name]]
		fmt.Fprintf(&sb, "  %-22s %s\n", name, info.Description)
	}
	return sb.String()
}

func run(cmd *cobra.Command, opts *options, input string) error {
	cfg := config.NewConfig()
	if opts.configFile != "" {
		if err := cfg.LoadFile(opts.configFile); err != nil {
			return err
		}
	}
	for _, w := range opts.warnings {
		if err := cfg.ApplyFlag("-W" + w); err != nil {
			return err
		}
	}
	for _, f := range opts.features {
		if err := cfg.ApplyFlag("-F" + f); err != nil {
			return err
		}
	}

	logCfg := logger.DefaultConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.Level, logCfg.Format = cfg.LogLevel, cfg.LogFormat
	if cmd.Flags().Changed("log-format") {
		logCfg.Format = opts.logFormat
	}
	if opts.verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}

	logger.LogPhase("decode")
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	util.SetSourceFiles([]util.SourceFileRecord{{Name: input, Content: []rune(string(data))}})
	unit, err := astio.Decode(data, 0)
	if err != nil {
		return err
	}
	logger.LogPhaseComplete("decode")

	cfg.ClassName = className(opts.class, cfg.ClassName, unit.Class, input)
	logger.LogPhase("codegen")
	listing, err := codegen.NewContext(cfg).Generate(unit.Program)
	if err != nil {
		return err
	}
	out, err := codegen.NewJasminBackend().Generate(listing, cfg)
	if err != nil {
		return err
	}
	logger.LogPhaseComplete("codegen")

	if opts.dump {
		_, err := out.WriteTo(cmd.OutOrStdout())
		return err
	}

	path := opts.output
	if path == "" {
		path = cfg.ClassName + ".j"
	}
	logger.LogPhase("write")
	written, err := writeIfChanged(path, out, listing.Digest())
	if err != nil {
		return err
	}
	logger.Info("Listing ready", "path", path, "class", cfg.ClassName, "written", written)

	if opts.assemble {
		logger.LogPhase("assemble")
		if err := codegen.NewAssembler().Assemble(cmd.Context(), path, filepath.Dir(path)); err != nil {
			return err
		}
		logger.LogPhaseComplete("assemble")
	}
	return nil
}

// className picks the first non-empty candidate; the input file's base name
// is the fallback.
func className(candidates ...string) string {
	input := candidates[len(candidates)-1]
	for _, c := range candidates[:len(candidates)-1] {
		if c != "" {
			return c
		}
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeIfChanged replaces path with out through a temporary file, unless the
// file already holds a listing with the same digest.
func writeIfChanged(path string, out *bytes.Buffer, digest uint64) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && xxhash.Sum64(old) == digest {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".vcc-*.j")
	if err != nil {
		return false, fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := out.WriteTo(tmp); err != nil {
		tmp.Close()
		return false, fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return false, fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("writing output: %w", err)
	}
	return true, nil
}
