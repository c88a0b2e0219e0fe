package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/tinaxd/tc2/pkg/cli"
	"github.com/tinaxd/tc2/pkg/codegen"
	"github.com/tinaxd/tc2/pkg/config"
	"github.com/tinaxd/tc2/pkg/lexer"
	"github.com/tinaxd/tc2/pkg/parser"
	"github.com/tinaxd/tc2/pkg/util"
)

func main() {
	app := cli.NewApp("tc2")
	app.Synopsis = "[options] <input.tc>"
	app.Description = "A compiler for a small C subset, emitting x86-64 assembly in Intel syntax. Pass '-' to read the program from standard input."
	app.Repository = "https://github.com/tinaxd/tc2"

	var (
		outFile      string
		binFile      string
		warningFlags []string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the assembly output into <file>.", "file")
	fs.String(&binFile, "bin", "b", "", "Assemble and link into an executable with cc.", "file")
	fs.Special(&warningFlags, "W", "Toggle a warning (e.g. -Wall, -Wno-missing-return)", "warning")

	cfg := config.NewConfig()

	app.Action = func(inputFiles []string) error {
		for _, w := range warningFlags {
			if err := cfg.ApplyWarningFlag(w); err != nil {
				return err
			}
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH); err != nil {
			return err
		}

		if len(inputFiles) != 1 {
			return fmt.Errorf("expected exactly one input file, got %d", len(inputFiles))
		}
		name, source, err := readSource(inputFiles[0])
		if err != nil {
			return err
		}

		asm, err := compile(cfg, source)
		if err != nil {
			if d, ok := err.(*util.Diagnostic); ok {
				fmt.Fprintln(os.Stderr, util.Render(d, name, []rune(source)))
				os.Exit(1)
			}
			return err
		}

		if binFile != "" {
			return assembleAndLink(binFile, asm)
		}
		return writeOutput(outFile, asm)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// compile runs the whole pipeline over one source text and returns the
// generated assembly. Any stage failure aborts with no partial output.
func compile(cfg *config.Config, source string) (string, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return "", err
	}
	p := parser.NewParser(tokens)
	funcs, table, err := p.Parse()
	if err != nil {
		return "", err
	}
	var buf codegen.Buffer
	e := codegen.New(cfg, table, &buf)
	if err := e.Generate(funcs); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readSource(path string) (name, source string, err error) {
	if path == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("could not read standard input: %w", err)
		}
		return "<stdin>", string(content), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("could not read file '%s': %v", path, err)
	}
	return path, string(content), nil
}

func writeOutput(path, asm string) error {
	if path == "-" {
		_, err := io.WriteString(os.Stdout, asm)
		return err
	}
	return os.WriteFile(path, []byte(asm), 0o644)
}

func assembleAndLink(outFile, asm string) error {
	asmFile, err := os.CreateTemp("", "tc2-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		return fmt.Errorf("failed to write temp file for asm: %w", err)
	}
	asmFile.Close()

	cmd := exec.Command("cc", "-no-pie", "-o", outFile, asmFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
