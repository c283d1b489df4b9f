// Package repl implements an interactive single-step shell over a VM,
// backed by a readline prompt showing the current EIP.
package repl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aiern/ia32vm/internal/vm"
)

// Repl drives one vm.CPU through a readline session: step, continue,
// inspect registers, set breakpoints. Breakpoints cannot be cleared once
// set.
type Repl struct {
	c    *vm.CPU
	rl   *readline.Instance
	out  io.Writer
	bps  map[uint32]bool
}

// New builds a Repl around c, printing command output to out. The prompt
// itself is written by readline to its default output, not to out.
func New(c *vm.CPU, out io.Writer) (*Repl, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ia32vm> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, err
	}
	return &Repl{c: c, rl: rl, out: out, bps: map[uint32]bool{}}, nil
}

func (r *Repl) Close() error { return r.rl.Close() }

// Run reads and executes commands until the user quits, input ends, or
// the prompt is interrupted. A halted VM does not end the session; step
// and continue then just report that it has halted.
func (r *Repl) Run() error {
	for {
		r.rl.SetPrompt(fmt.Sprintf("%#08x> ", r.c.EIP))
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := r.dispatch(strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func (r *Repl) dispatch(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "q", "quit", "exit":
		return true
	case "s", "step":
		r.step()
	case "c", "continue":
		r.continueRun()
	case "r", "regs":
		r.printRegs()
	case "b", "break":
		if len(fields) == 2 {
			r.setBreakpoint(fields[1])
		}
	default:
		fmt.Fprintf(r.out, "unknown command: %s\n", fields[0])
	}
	return false
}

func (r *Repl) step() {
	if r.c.Halted {
		fmt.Fprintln(r.out, "vm halted")
		return
	}
	if err := r.c.Step(); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	r.printRegs()
}

func (r *Repl) continueRun() {
	for !r.c.Halted {
		if r.bps[r.c.EIP] {
			fmt.Fprintf(r.out, "breakpoint hit at %#08x\n", r.c.EIP)
			return
		}
		if err := r.c.Step(); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
	}
	fmt.Fprintf(r.out, "vm halted, exit code %d\n", r.c.ExitCode)
}

func (r *Repl) printRegs() {
	regs := r.c.Regs
	fmt.Fprintf(r.out, "eax=%#08x ebx=%#08x ecx=%#08x edx=%#08x\n",
		regs.Read(vm.RegEAX, 4, false), regs.Read(vm.RegEBX, 4, false),
		regs.Read(vm.RegECX, 4, false), regs.Read(vm.RegEDX, 4, false))
	fmt.Fprintf(r.out, "esi=%#08x edi=%#08x ebp=%#08x esp=%#08x eip=%#08x\n",
		regs.Read(vm.RegESI, 4, false), regs.Read(vm.RegEDI, 4, false),
		regs.Read(vm.RegEBP, 4, false), regs.Read(vm.RegESP, 4, false), r.c.EIP)
}

func (r *Repl) setBreakpoint(addrStr string) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(addrStr, "0x"), 16, 32)
	if err != nil {
		fmt.Fprintf(r.out, "bad address %q: %v\n", addrStr, err)
		return
	}
	r.bps[uint32(addr)] = true
	fmt.Fprintf(r.out, "breakpoint set at %#08x\n", addr)
}
