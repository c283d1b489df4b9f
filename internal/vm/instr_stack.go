package vm

// Stack category: push/pop of a register or immediate, leave, and
// pushf/popf. push r/m and pop r/m route through ffGroup's digit 6 and
// the 0x8F handler here respectively.

func pushReg(index int) Handler {
	return func(c *CPU) error {
		width := c.operandWidth()
		v := c.Regs.Read(index, int(width), false)
		return c.Push(width, v)
	}
}

func popReg(index int) Handler {
	return func(c *CPU) error {
		width := c.operandWidth()
		v, err := c.Pop(width)
		if err != nil {
			return err
		}
		c.Regs.Write(index, int(width), v, false)
		return nil
	}
}

// popRm implements 0x8F /0: POP r/m.
func popRm(c *CPU) error {
	width := c.operandWidth()
	eip := c.EIP
	digit, rm, err := c.decodeModRM(width)
	if err != nil {
		return err
	}
	if digit != 0 {
		bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
		return newUnknownOpcode(eip, append([]byte(nil), bytes...))
	}
	v, err := c.Pop(width)
	if err != nil {
		return err
	}
	return c.writeOperand(rm, v)
}

// pushImm32/pushImm8 implement 0x68 and 0x6A: PUSH imm32/imm8 (the imm8
// form sign-extends to the current operand size).
func pushImm32(c *CPU) error {
	width := c.operandWidth()
	imm, err := c.fetchWidth(width)
	if err != nil {
		return err
	}
	return c.Push(width, imm)
}

func pushImm8(c *CPU) error {
	width := c.operandWidth()
	imm, err := c.fetchSigned8()
	if err != nil {
		return err
	}
	return c.Push(width, imm&maskOf(width))
}

// leaveHandler implements 0xC9: LEAVE (MOV ESP, EBP; POP EBP).
func leaveHandler(c *CPU) error {
	ebp := c.Regs.Read(RegEBP, 4, false)
	c.Regs.Write(RegESP, 4, ebp, false)
	v, err := c.Pop(4)
	if err != nil {
		return err
	}
	c.Regs.Write(RegEBP, 4, v, false)
	return nil
}

// pushfHandler implements 0x9C: PUSHF/PUSHFD.
func pushfHandler(c *CPU) error {
	width := c.operandWidth()
	return c.Push(width, c.Regs.EFLAGS()&maskOf(width))
}

// popfHandler implements 0x9D: POPF/POPFD.
func popfHandler(c *CPU) error {
	width := c.operandWidth()
	v, err := c.Pop(width)
	if err != nil {
		return err
	}
	if width == 2 {
		c.Regs.SetEFLAGS((c.Regs.EFLAGS() &^ 0xFFFF) | v)
	} else {
		c.Regs.SetEFLAGS(v)
	}
	return nil
}

func init() {
	for i := 0; i < 8; i++ {
		primaryTable[0x50+i] = pushReg(i)
		primaryTable[0x58+i] = popReg(i)
	}
	primaryTable[0x8F] = popRm
	primaryTable[0x68] = pushImm32
	primaryTable[0x6A] = pushImm8
	primaryTable[0xC9] = leaveHandler
	primaryTable[0x9C] = pushfHandler
	primaryTable[0x9D] = popfHandler
}
