package codegen

import (
	"fmt"
	"strings"

	"github.com/tinaxd/tc2/pkg/types"
)

// System V AMD64 integer argument registers, widest first.
var (
	argRegs64 = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	argRegs32 = [6]string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
	argRegs8  = [6]string{"dil", "sil", "dl", "cl", "r8b", "r9b"}
)

// argRegister picks the argument register for parameter index i at the
// width of ty.
func argRegister(i int, ty *types.Type) (string, error) {
	if i < 0 || i >= len(argRegs64) {
		return "", fmt.Errorf("argument index %d exceeds register arguments", i)
	}
	switch ty.Size() {
	case 8:
		return argRegs64[i], nil
	case 4:
		return argRegs32[i], nil
	case 1:
		return argRegs8[i], nil
	}
	return "", fmt.Errorf("no argument register for %d-byte type %s", ty.Size(), ty)
}

// memOperand returns the size directive for a memory access of ty.
func memOperand(ty *types.Type) string {
	switch ty.Size() {
	case 8:
		return "QWORD PTR"
	case 4:
		return "DWORD PTR"
	case 1:
		return "BYTE PTR"
	}
	return "QWORD PTR"
}

// Buffer is the default Sink: it collects lines in memory and renders them
// newline-joined.
type Buffer struct {
	lines []string
}

func (b *Buffer) Emit(line string) { b.lines = append(b.lines, line) }

// Lines returns the emitted lines in order.
func (b *Buffer) Lines() []string { return b.lines }

func (b *Buffer) String() string { return strings.Join(b.lines, "\n") }
