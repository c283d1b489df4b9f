package vm

// Misc category: nop, hlt. XCHG eAX, eAX (0x90) collapses to the same
// no-op so the opcode is simply registered here rather than through
// xchgAccReg.

func nopHandler(c *CPU) error { return nil }

// hltHandler implements 0xF4: HLT, spec.md §2's "explicit halt opcode"
// termination path — distinct from the exit syscall, it leaves exit_code
// at whatever it already was (0 unless something set it earlier).
func hltHandler(c *CPU) error {
	c.Halted = true
	return nil
}

func init() {
	primaryTable[0x90] = nopHandler
	primaryTable[0xF4] = hltHandler
}
