package vm

// Shift category: shl/sal, shr, sar. All three route through flagsShift
// (flags.go). digit 4 and 6 both mean SHL/SAL (the ISA aliases them),
// digit 5 is SHR, digit 7 is SAR; other digits are unused (RCL/RCR/ROL/ROR
// live at digits 0-3 and are an explicit non-goal).

// shiftGroup builds the shared handler for 0xC0/0xC1 (count is an imm8)
// and 0xD2/0xD3 (count is CL).
func shiftGroup(wide bool, countFromCL bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		var count uint32
		if countFromCL {
			count = c.Regs.Read(RegECX, 1, false) & 0x1F
		} else {
			imm, err := c.fetch8()
			if err != nil {
				return err
			}
			count = imm & 0x1F
		}
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		var result uint32
		switch digit {
		case 4, 6:
			result = flagsShift(c.Regs, shiftLeft, a, count, width)
		case 5:
			result = flagsShift(c.Regs, shiftRightLogical, a, count, width)
		case 7:
			result = flagsShift(c.Regs, shiftRightArith, a, count, width)
		default:
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
		return c.writeOperand(rm, result)
	}
}

// shiftBy1 builds the 0xD0/0xD1 handler: count is the fixed literal 1.
func shiftBy1(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		var result uint32
		switch digit {
		case 4, 6:
			result = flagsShift(c.Regs, shiftLeft, a, 1, width)
		case 5:
			result = flagsShift(c.Regs, shiftRightLogical, a, 1, width)
		case 7:
			result = flagsShift(c.Regs, shiftRightArith, a, 1, width)
		default:
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
		return c.writeOperand(rm, result)
	}
}

func init() {
	primaryTable[0xC0] = shiftGroup(false, false)
	primaryTable[0xC1] = shiftGroup(true, false)
	primaryTable[0xD0] = shiftBy1(false)
	primaryTable[0xD1] = shiftBy1(true)
	primaryTable[0xD2] = shiftGroup(false, true)
	primaryTable[0xD3] = shiftGroup(true, true)
}
