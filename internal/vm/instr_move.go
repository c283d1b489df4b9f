package vm

// Move category: mov (all encodings), movzx, movsx, xchg, lea. None of
// these touch EFLAGS.

// movRmR implements 0x88/0x89: MOV r/m, r.
func movRmR(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		regField, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, width)
		v, err := c.readOperand(regOp)
		if err != nil {
			return err
		}
		return c.writeOperand(rm, v)
	}
}

// movRRm implements 0x8A/0x8B: MOV r, r/m.
func movRRm(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		regField, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, width)
		v, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		return c.writeOperand(regOp, v)
	}
}

// movRmImm implements 0xC6/0xC7: MOV r/m, imm (ModR/M reg field is always
// /0, the only digit the ISA defines here).
func movRmImm(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		if digit != 0 {
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
		imm, err := c.fetchWidth(width)
		if err != nil {
			return err
		}
		return c.writeOperand(rm, imm)
	}
}

// movRegImm implements 0xB0-0xB7 (8-bit) and 0xB8-0xBF (operand-size): MOV
// r, imm, with the register selected by the low 3 bits of the opcode
// rather than a ModR/M byte.
func movRegImm(wide bool, field int) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		imm, err := c.fetchWidth(width)
		if err != nil {
			return err
		}
		return c.writeOperand(regOperandFromField(field, width), imm)
	}
}

// movAccMoffs implements 0xA0-0xA3: MOV AL/eAX, [moffs] and the reverse,
// where moffs is a bare 32-bit absolute address (no ModR/M, no base/index).
func movAccMoffs(wide, toAcc bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		addr, err := c.fetch32()
		if err != nil {
			return err
		}
		mem := memOperand(addr, width)
		acc := regOperand(RegEAX, width, false)
		if toAcc {
			v, err := c.readOperand(mem)
			if err != nil {
				return err
			}
			return c.writeOperand(acc, v)
		}
		v, err := c.readOperand(acc)
		if err != nil {
			return err
		}
		return c.writeOperand(mem, v)
	}
}

// movzxHandler implements 0x0F B6/B7: MOV r, r/m with zero extension from
// an 8- or 16-bit source into the current operand-size destination.
func movzxHandler(srcWidth uint32) Handler {
	return func(c *CPU) error {
		dstWidth := c.operandWidth()
		regField, rm, err := c.decodeModRM(srcWidth)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, dstWidth)
		src, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		return c.writeOperand(regOp, src&maskOf(srcWidth))
	}
}

// movsxHandler implements 0x0F BE/BF: MOV r, r/m with sign extension from
// an 8- or 16-bit source into the current operand-size destination.
func movsxHandler(srcWidth uint32) Handler {
	return func(c *CPU) error {
		dstWidth := c.operandWidth()
		regField, rm, err := c.decodeModRM(srcWidth)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, dstWidth)
		src, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		ext := signExtendTo64(src, srcWidth)
		return c.writeOperand(regOp, uint32(ext)&maskOf(dstWidth))
	}
}

// xchgRmR implements 0x86/0x87: XCHG r/m, r.
func xchgRmR(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		regField, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, width)
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		b, err := c.readOperand(regOp)
		if err != nil {
			return err
		}
		if err := c.writeOperand(rm, b); err != nil {
			return err
		}
		return c.writeOperand(regOp, a)
	}
}

// xchgAccReg implements 0x91-0x97: XCHG eAX, r (0x90 itself is NOP, the
// degenerate XCHG eAX, eAX case, registered separately by instr_misc.go).
func xchgAccReg(index int) Handler {
	return func(c *CPU) error {
		width := c.operandWidth()
		acc := regOperand(RegEAX, width, false)
		other := regOperand(index, width, false)
		a, err := c.readOperand(acc)
		if err != nil {
			return err
		}
		b, err := c.readOperand(other)
		if err != nil {
			return err
		}
		if err := c.writeOperand(acc, b); err != nil {
			return err
		}
		return c.writeOperand(other, a)
	}
}

// leaHandler implements 0x8D: LEA r, m — computes the effective address
// but never dereferences memory.
func leaHandler(c *CPU) error {
	width := c.operandWidth()
	b, err := c.fetch8()
	if err != nil {
		return err
	}
	mod := (uint32(b) >> 6) & 0x3
	regField := int(uint32(b)>>3) & 0x7
	rmField := int(b) & 0x7
	if mod == 0b11 {
		// LEA r, r is not a valid encoding; treat as unknown rather than
		// silently reading a register value as an address.
		return newUnknownOpcode(c.EIP-1, []byte{0x8D, byte(b)})
	}
	addr, err := c.decodeEffectiveAddress(mod, rmField)
	if err != nil {
		return err
	}
	return c.writeOperand(regOperandFromField(regField, width), addr)
}

func init() {
	primaryTable[0x88] = movRmR(false)
	primaryTable[0x89] = movRmR(true)
	primaryTable[0x8A] = movRRm(false)
	primaryTable[0x8B] = movRRm(true)
	primaryTable[0xC6] = movRmImm(false)
	primaryTable[0xC7] = movRmImm(true)

	for i := 0; i < 8; i++ {
		primaryTable[0xB0+i] = movRegImm(false, i)
		primaryTable[0xB8+i] = movRegImm(true, i)
	}

	primaryTable[0xA0] = movAccMoffs(false, true)
	primaryTable[0xA1] = movAccMoffs(true, true)
	primaryTable[0xA2] = movAccMoffs(false, false)
	primaryTable[0xA3] = movAccMoffs(true, false)

	secondaryTable[0xB6] = movzxHandler(1)
	secondaryTable[0xB7] = movzxHandler(2)
	secondaryTable[0xBE] = movsxHandler(1)
	secondaryTable[0xBF] = movsxHandler(2)

	primaryTable[0x86] = xchgRmR(false)
	primaryTable[0x87] = xchgRmR(true)
	for i := 1; i < 8; i++ {
		primaryTable[0x90+i] = xchgAccReg(i)
	}

	primaryTable[0x8D] = leaHandler
}
