package vm

// String category: movsb/movsw/movsd. ESI/EDI advance by the operand
// width in the direction DF selects; an F3 (REP) prefix repeats the move
// ECX times, decrementing ECX each iteration. Other string forms
// (stos/lods/scas/cmps) are the explicit non-goal.

func movsStep(c *CPU, width uint32) error {
	esi := c.Regs.Read(RegESI, 4, false)
	edi := c.Regs.Read(RegEDI, 4, false)
	v, err := c.Mem.read(c.EIP, esi, width)
	if err != nil {
		return err
	}
	if err := c.Mem.write(c.EIP, edi, width, v); err != nil {
		return err
	}
	if c.Regs.FlagGet(FlagDF) != 0 {
		esi -= width
		edi -= width
	} else {
		esi += width
		edi += width
	}
	c.Regs.Write(RegESI, 4, esi, false)
	c.Regs.Write(RegEDI, 4, edi, false)
	return nil
}

// movsHandler builds the 0xA4 (byte) / 0xA5 (operand-size) handler,
// honoring a live F3 (REP) prefix by repeating while ECX is nonzero. An F2
// prefix does not repeat the move.
func movsHandler(byteForm bool) Handler {
	return func(c *CPU) error {
		width := uint32(1)
		if !byteForm {
			width = c.operandWidth()
		}
		if c.repPrefix != 0xF3 {
			return movsStep(c, width)
		}
		for c.Regs.Read(RegECX, 4, false) != 0 {
			if err := movsStep(c, width); err != nil {
				return err
			}
			ecx := c.Regs.Read(RegECX, 4, false) - 1
			c.Regs.Write(RegECX, 4, ecx, false)
		}
		return nil
	}
}

func init() {
	primaryTable[0xA4] = movsHandler(true)
	primaryTable[0xA5] = movsHandler(false)
}
