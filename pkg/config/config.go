package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Feature int

const (
	FeatVarDirectives Feature = iota
	FeatComments
	FeatExactStack
	FeatSyntheticReturn
	FeatCount
)

type Warning int

const (
	WarnIntrinsicShadow Warning = iota
	WarnEntryReturnValue
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	DefaultRuntimeClass    = "VC/lang/System"
	DefaultEntryName       = "main"
	DefaultFixedStackLimit = 50
)

type Config struct {
	Features        map[Feature]Info
	Warnings        map[Warning]Info
	FeatureMap      map[string]Feature
	WarningMap      map[string]Warning
	ClassName       string
	RuntimeClass    string
	EntryName       string
	FixedStackLimit int
	LogLevel        string
	LogFormat       string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:        make(map[Feature]Info),
		Warnings:        make(map[Warning]Info),
		FeatureMap:      make(map[string]Feature),
		WarningMap:      make(map[string]Warning),
		RuntimeClass:    DefaultRuntimeClass,
		EntryName:       DefaultEntryName,
		FixedStackLimit: DefaultFixedStackLimit,
		LogLevel:        "info",
		LogFormat:       "text",
	}

	features := map[Feature]Info{
		FeatVarDirectives:   {"var-directives", true, "Emit `.var` debug annotations for receivers, parameters and locals."},
		FeatComments:        {"comments", true, "Emit `;` comment lines in the listing."},
		FeatExactStack:      {"exact-stack", true, "Size `.limit stack` from the tracked watermark instead of a fixed limit."},
		FeatSyntheticReturn: {"synthetic-return", true, "End non-void functions lacking a guaranteed return with a zero-valued return."},
	}

	warnings := map[Warning]Info{
		WarnIntrinsicShadow:  {"intrinsic-shadow", true, "Warn when a function is named like a runtime intrinsic; calls still reach the intrinsic."},
		WarnEntryReturnValue: {"entry-return-value", false, "Warn when a value returned from the entry function is discarded."},
		WarnExtra:            {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag understands -W<name>, -Wno-<name>, -F<name>, -Fno-<name> and -Wall.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// FeatureNames lists the feature names in a stable order.
func (c *Config) FeatureNames() []string {
	names := make([]string, 0, len(c.FeatureMap))
	for name := range c.FeatureMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WarningNames lists the warning names in a stable order.
func (c *Config) WarningNames() []string {
	names := make([]string, 0, len(c.WarningMap))
	for name := range c.WarningMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fileConfig struct {
	Class    string          `yaml:"class"`
	Runtime  string          `yaml:"runtime"`
	Entry    string          `yaml:"entry"`
	Stack    int             `yaml:"stack"`
	Features map[string]bool `yaml:"features"`
	Warnings map[string]bool `yaml:"warnings"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFile applies the settings of a YAML configuration file on top of c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return c.Load(data)
}

// Load applies YAML configuration data on top of c.
func (c *Config) Load(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if fc.Class != "" {
		c.ClassName = fc.Class
	}
	if fc.Runtime != "" {
		c.RuntimeClass = fc.Runtime
	}
	if fc.Entry != "" {
		c.EntryName = fc.Entry
	}
	if fc.Stack > 0 {
		c.FixedStackLimit = fc.Stack
	}
	if fc.Log.Level != "" {
		c.LogLevel = fc.Log.Level
	}
	if fc.Log.Format != "" {
		c.LogFormat = fc.Log.Format
	}
	for name, enabled := range fc.Features {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("config: unknown feature '%s'", name)
		}
		c.SetFeature(ft, enabled)
	}
	for name, enabled := range fc.Warnings {
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("config: unknown warning '%s'", name)
		}
		c.SetWarning(wt, enabled)
	}
	return nil
}
