package vm

import (
	"io"
	"os"

	"github.com/aiern/ia32vm/internal/trace"
)

// Handler implements one opcode (or one /digit variant of a ModR/M-routed
// opcode). It is a pure transformer of CPU state: it reads whatever
// operands it needs via the decoder methods on *CPU, reads/writes Memory
// and Registers, and updates EFLAGS. EIP has already been advanced past
// the opcode byte(s) by the time a handler runs; handlers that branch set
// EIP themselves and everyone else leaves the fetch loop's advancement in
// place.
type Handler func(c *CPU) error

// primaryTable and secondaryTable (for the 0x0F escape) are fixed-size
// dispatch tables indexed by opcode byte, per spec.md §9's "avoid
// reflective lookup" design note. Each instr_*.go file populates its
// slice of these tables from an init function, grouped by category the
// way spec.md §4.5 groups the instruction set.
var primaryTable [256]Handler
var secondaryTable [256]Handler

// CPU owns Memory and Registers and drives the fetch-decode-dispatch
// loop. It is the "VM state" record of spec.md §3: EIP, halted, exit
// code, and the three host byte streams live here, plus the per-VM debug
// flag spec.md §9 insists stays an attribute rather than a global.
type CPU struct {
	Mem  *Memory
	Regs *Registers
	EIP  uint32

	Halted   bool
	ExitCode uint8

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Debug      bool
	InstrCount uint64

	// Prefix state, reset at the start of every Step and consumed by the
	// handler the prefixes precede.
	operandSize uint32
	addressSize uint32
	repPrefix   byte
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// WithDebug enables per-instruction tracing via the configured Stderr.
func WithDebug(debug bool) Option {
	return func(c *CPU) { c.Debug = debug }
}

// WithStreams overrides the default os.Stdin/os.Stdout/os.Stderr streams
// the syscall gate and MMIO-free I/O route fd 0/1/2 to.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *CPU) {
		c.Stdin = stdin
		c.Stdout = stdout
		c.Stderr = stderr
	}
}

// NewVM constructs a CPU with a freshly zero-filled Memory of the given
// size and the canonical register reset state.
func NewVM(size int, opts ...Option) *CPU {
	c := &CPU{
		Mem:    NewMemory(size),
		Regs:   &Registers{},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExecuteBytes writes data into Memory at offset, sets EIP to offset and
// ESP to the memory size, then runs to halt.
func (c *CPU) ExecuteBytes(data []byte, offset uint32) error {
	if err := c.Mem.Set(offset, offset, data); err != nil {
		return err
	}
	c.EIP = offset
	c.Regs.Write(RegESP, 4, c.Mem.Size(), false)
	return c.Run()
}

// ExecuteFile reads path and calls ExecuteBytes with its contents.
func (c *CPU) ExecuteFile(path string, offset uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.ExecuteBytes(data, offset)
}

// Run steps the CPU until it halts (via exit or a fatal error).
func (c *CPU) Run() error {
	for !c.Halted {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step performs one fetch-decode-dispatch cycle: it consumes any run of
// prefix bytes, then dispatches the following opcode (and, for 0x0F, the
// secondary byte) to its handler.
func (c *CPU) Step() error {
	c.operandSize = 4
	c.addressSize = 4
	c.repPrefix = 0
	startEIP := c.EIP

	for {
		b, err := c.fetch8()
		if err != nil {
			return err
		}
		op := byte(b)
		switch {
		case op == 0x66:
			c.operandSize = 2
			continue
		case op == 0x67:
			c.addressSize = 2
			continue
		case op == 0xF2, op == 0xF3:
			c.repPrefix = op
			continue
		case isSegmentOverride(op):
			// Flat memory model (spec.md non-goal: segmentation is
			// identity); the override is recognized and discarded.
			continue
		case op == 0x0F:
			b2, err := c.fetch8()
			if err != nil {
				return err
			}
			h := secondaryTable[byte(b2)]
			if h == nil {
				return c.unknownOpcode(startEIP)
			}
			c.InstrCount++
			err = h(c)
			c.traceStep(op)
			return err
		default:
			h := primaryTable[op]
			if h == nil {
				return c.unknownOpcode(startEIP)
			}
			c.InstrCount++
			err = h(c)
			c.traceStep(op)
			return err
		}
	}
}

// traceStep prints a register/flag dump to Stderr when Debug is set.
func (c *CPU) traceStep(opcode byte) {
	if !c.Debug {
		return
	}
	trace.Dump(c.Stderr, trace.Snapshot{
		EIP:        c.EIP,
		EAX:        c.Regs.Read(RegEAX, 4, false),
		EBX:        c.Regs.Read(RegEBX, 4, false),
		ECX:        c.Regs.Read(RegECX, 4, false),
		EDX:        c.Regs.Read(RegEDX, 4, false),
		ESI:        c.Regs.Read(RegESI, 4, false),
		EDI:        c.Regs.Read(RegEDI, 4, false),
		EBP:        c.Regs.Read(RegEBP, 4, false),
		ESP:        c.Regs.Read(RegESP, 4, false),
		CF:         c.Regs.FlagGet(FlagCF) != 0,
		PF:         c.Regs.FlagGet(FlagPF) != 0,
		AF:         c.Regs.FlagGet(FlagAF) != 0,
		ZF:         c.Regs.FlagGet(FlagZF) != 0,
		SF:         c.Regs.FlagGet(FlagSF) != 0,
		OF:         c.Regs.FlagGet(FlagOF) != 0,
		InstrCount: c.InstrCount,
		OpcodeByte: opcode,
	})
}

func isSegmentOverride(b byte) bool {
	switch b {
	case 0x2E, 0x36, 0x3E, 0x26, 0x64, 0x65:
		return true
	default:
		return false
	}
}

func (c *CPU) unknownOpcode(startEIP uint32) error {
	n := c.EIP - startEIP
	bytes, _ := c.Mem.Get(c.EIP, startEIP, n)
	return newUnknownOpcode(startEIP, append([]byte(nil), bytes...))
}

// operandWidth returns the currently active operand size: 4 bytes unless
// a 0x66 prefix switched it to 2 for this instruction.
func (c *CPU) operandWidth() uint32 {
	return c.operandSize
}

// Push decrements ESP by width and writes value at the new ESP.
func (c *CPU) Push(width, value uint32) error {
	sp := c.Regs.Read(RegESP, 4, false)
	if sp < width {
		return &StackUnderflow{fatalBase{eip: c.EIP}, sp}
	}
	newSP := sp - width
	if err := c.Mem.write(c.EIP, newSP, width, value); err != nil {
		return &StackUnderflow{fatalBase{eip: c.EIP}, sp}
	}
	c.Regs.Write(RegESP, 4, newSP, false)
	return nil
}

// Pop reads width bytes at ESP and increments ESP by width.
func (c *CPU) Pop(width uint32) (uint32, error) {
	sp := c.Regs.Read(RegESP, 4, false)
	v, err := c.Mem.read(c.EIP, sp, width)
	if err != nil {
		return 0, &StackUnderflow{fatalBase{eip: c.EIP}, sp}
	}
	c.Regs.Write(RegESP, 4, sp+width, false)
	return v, nil
}
