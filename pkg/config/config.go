// Package config holds the target properties of the one supported ABI
// (x86-64 System V) and the compiler's named warning switches.
package config

import (
	"fmt"
	"strings"

	"modernc.org/libqbe"
)

type Warning int

const (
	// WarnMissingReturn fires when a function body's last statement is not
	// a return; such a function returns the residue of its last evaluated
	// expression, or an undefined value for an empty body.
	WarnMissingReturn Warning = iota
	// WarnImplicitDecl fires on a call to a name that is never defined in
	// the compilation unit. The call is emitted anyway; the symbol is left
	// for the linker.
	WarnImplicitDecl
	// WarnExtra enables miscellaneous extra warnings.
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Warnings   map[Warning]Info
	WarningMap map[string]Warning

	TargetArch     string
	QbeTarget      string
	WordSize       int
	StackAlignment int
}

func NewConfig() *Config {
	cfg := &Config{
		Warnings:   make(map[Warning]Info),
		WarningMap: make(map[string]Warning),
	}

	warnings := map[Warning]Info{
		WarnMissingReturn: {"missing-return", true, "Warn when a function can fall off its end without an explicit return."},
		WarnImplicitDecl:  {"implicit-decl", true, "Warn about calls to functions not defined in this compilation unit."},
		WarnExtra:         {"extra", false, "Enable extra miscellaneous warnings."},
	}

	cfg.Warnings = warnings
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SetTarget configures the compiler for the host architecture. The code
// generator emits GNU-as Intel-syntax x86-64 only, so anything whose
// default target is not amd64_sysv is rejected.
func (c *Config) SetTarget(goos, goarch string) error {
	c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
	c.TargetArch = goarch

	if c.QbeTarget != "amd64_sysv" {
		return fmt.Errorf("unsupported target '%s': only amd64_sysv is supported", c.QbeTarget)
	}
	c.WordSize, c.StackAlignment = 8, 16
	return nil
}

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// ApplyWarningFlag handles a -W<name> / -Wno-<name> flag value (without the
// leading "-W"). "all" toggles every warning.
func (c *Config) ApplyWarningFlag(name string) error {
	enable := true
	if strings.HasPrefix(name, "no-") {
		enable = false
		name = strings.TrimPrefix(name, "no-")
	}
	if name == "all" {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}
	wt, ok := c.WarningMap[name]
	if !ok {
		return fmt.Errorf("unknown warning '%s'", name)
	}
	c.SetWarning(wt, enable)
	return nil
}
