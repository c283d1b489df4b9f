package vm

// Control-flow category: jmp, jcc, call, ret, int, int3, and the
// jcxz/loop family. Near-relative branches only; far call/jmp/ret and
// task-switching interrupts are the explicit non-goal.

// condition evaluates one of the 16 IA-32 condition codes (Intel SDM
// table 3-1) against the current EFLAGS.
func condition(r *Registers, code int) bool {
	cf := r.FlagGet(FlagCF) != 0
	zf := r.FlagGet(FlagZF) != 0
	sf := r.FlagGet(FlagSF) != 0
	of := r.FlagGet(FlagOF) != 0
	pf := r.FlagGet(FlagPF) != 0
	switch code {
	case 0x0: // O
		return of
	case 0x1: // NO
		return !of
	case 0x2: // B/NAE/C
		return cf
	case 0x3: // NB/AE/NC
		return !cf
	case 0x4: // E/Z
		return zf
	case 0x5: // NE/NZ
		return !zf
	case 0x6: // BE/NA
		return cf || zf
	case 0x7: // NBE/A
		return !cf && !zf
	case 0x8: // S
		return sf
	case 0x9: // NS
		return !sf
	case 0xA: // P/PE
		return pf
	case 0xB: // NP/PO
		return !pf
	case 0xC: // L/NGE
		return sf != of
	case 0xD: // NL/GE
		return sf == of
	case 0xE: // LE/NG
		return zf || sf != of
	case 0xF: // NLE/G
		return !zf && sf == of
	default:
		panic("vm: invalid condition code")
	}
}

func jmpRel8(c *CPU) error {
	target, err := c.fetchRel8()
	if err != nil {
		return err
	}
	c.EIP = target
	return nil
}

func jmpRel32(c *CPU) error {
	target, err := c.fetchRel32()
	if err != nil {
		return err
	}
	c.EIP = target
	return nil
}

// jccShort builds the 0x70-0x7F handlers: Jcc rel8.
func jccShort(code int) Handler {
	return func(c *CPU) error {
		target, err := c.fetchRel8()
		if err != nil {
			return err
		}
		if condition(c.Regs, code) {
			c.EIP = target
		}
		return nil
	}
}

// jccNear builds the 0x0F 0x80-0x8F handlers: Jcc rel32.
func jccNear(code int) Handler {
	return func(c *CPU) error {
		target, err := c.fetchRel32()
		if err != nil {
			return err
		}
		if condition(c.Regs, code) {
			c.EIP = target
		}
		return nil
	}
}

// callRel32 implements 0xE8: CALL rel32, near relative.
func callRel32(c *CPU) error {
	target, err := c.fetchRel32()
	if err != nil {
		return err
	}
	if err := c.Push(4, c.EIP); err != nil {
		return err
	}
	c.EIP = target
	return nil
}

// retNear implements 0xC3: RET.
func retNear(c *CPU) error {
	target, err := c.Pop(4)
	if err != nil {
		return err
	}
	c.EIP = target
	return nil
}

// retNearImm16 implements 0xC2: RET imm16 — pop the return address, then
// deallocate imm16 additional bytes from the stack.
func retNearImm16(c *CPU) error {
	target, err := c.Pop(4)
	if err != nil {
		return err
	}
	n, err := c.fetch16()
	if err != nil {
		return err
	}
	sp := c.Regs.Read(RegESP, 4, false)
	c.Regs.Write(RegESP, 4, sp+n, false)
	c.EIP = target
	return nil
}

// int3Handler implements 0xCC: a breakpoint trap. Since no debugger is
// attached, it is a documented no-op that merely advances past itself.
func int3Handler(c *CPU) error {
	return nil
}

// intImm8 implements 0xCD: INT imm8. 0x80 is the Linux-style syscall gate
// (syscall.go); every other vector is unsupported.
func intImm8(c *CPU) error {
	vector, err := c.fetch8()
	if err != nil {
		return err
	}
	if vector == 0x80 {
		return c.syscall()
	}
	return &UnsupportedInterrupt{fatalBase{eip: c.EIP}, byte(vector)}
}

// jcxzHandler implements 0xE3: JECXZ rel8 (jump if ECX == 0).
func jcxzHandler(c *CPU) error {
	target, err := c.fetchRel8()
	if err != nil {
		return err
	}
	if c.Regs.Read(RegECX, 4, false) == 0 {
		c.EIP = target
	}
	return nil
}

// loopDecrement decrements ECX and returns its new value.
func loopDecrement(c *CPU) uint32 {
	ecx := c.Regs.Read(RegECX, 4, false) - 1
	c.Regs.Write(RegECX, 4, ecx, false)
	return ecx
}

// loopHandler implements 0xE2: LOOP rel8.
func loopHandler(c *CPU) error {
	target, err := c.fetchRel8()
	if err != nil {
		return err
	}
	if loopDecrement(c) != 0 {
		c.EIP = target
	}
	return nil
}

// loopeHandler implements 0xE1: LOOPE/LOOPZ rel8.
func loopeHandler(c *CPU) error {
	target, err := c.fetchRel8()
	if err != nil {
		return err
	}
	if loopDecrement(c) != 0 && c.Regs.FlagGet(FlagZF) != 0 {
		c.EIP = target
	}
	return nil
}

// loopneHandler implements 0xE0: LOOPNE/LOOPNZ rel8.
func loopneHandler(c *CPU) error {
	target, err := c.fetchRel8()
	if err != nil {
		return err
	}
	if loopDecrement(c) != 0 && c.Regs.FlagGet(FlagZF) == 0 {
		c.EIP = target
	}
	return nil
}

func init() {
	primaryTable[0xEB] = jmpRel8
	primaryTable[0xE9] = jmpRel32

	for code := 0; code < 16; code++ {
		primaryTable[0x70+byte(code)] = jccShort(code)
		secondaryTable[0x80+byte(code)] = jccNear(code)
	}

	primaryTable[0xE8] = callRel32
	primaryTable[0xC3] = retNear
	primaryTable[0xC2] = retNearImm16

	primaryTable[0xCC] = int3Handler
	primaryTable[0xCD] = intImm8

	primaryTable[0xE0] = loopneHandler
	primaryTable[0xE1] = loopeHandler
	primaryTable[0xE2] = loopHandler
	primaryTable[0xE3] = jcxzHandler
}
