// Package trace prints a per-instruction register/flag dump when a VM's
// debug mode is enabled.
package trace

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Snapshot is the subset of CPU state trace needs; it is defined here
// rather than importing internal/vm to keep the dependency direction one
// way (vm calls trace, trace never calls back into vm).
type Snapshot struct {
	EIP                              uint32
	EAX, EBX, ECX, EDX               uint32
	ESI, EDI, EBP, ESP               uint32
	CF, PF, AF, ZF, SF, OF           bool
	InstrCount                       uint64
	OpcodeByte                       byte
}

// Dump writes a colorized register/flag line for one executed
// instruction to w.
func Dump(w io.Writer, s Snapshot) {
	regs := color.New(color.FgCyan)
	flags := color.New(color.FgYellow)
	opc := color.New(color.FgGreen)

	regs.Fprintf(w, "EAX=%#08x EBX=%#08x ECX=%#08x EDX=%#08x\n", s.EAX, s.EBX, s.ECX, s.EDX)
	regs.Fprintf(w, "ESI=%#08x EDI=%#08x EBP=%#08x ESP=%#08x EIP=%#08x\n", s.ESI, s.EDI, s.EBP, s.ESP, s.EIP)
	flags.Fprintf(w, "CF=%d PF=%d AF=%d ZF=%d SF=%d OF=%d\n",
		b2i(s.CF), b2i(s.PF), b2i(s.AF), b2i(s.ZF), b2i(s.SF), b2i(s.OF))
	opc.Fprintf(w, "(#%d opcode=%#x)\n", s.InstrCount, s.OpcodeByte)
	fmt.Fprintln(w)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
