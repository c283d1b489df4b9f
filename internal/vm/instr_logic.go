package vm

// Logical category: and, or, xor, not, test. CF and OF are always
// cleared, SF/ZF/PF come from the result, AF is left unchanged. not
// changes no flags at all. NOT/TEST for the ModR/M+imm and ModR/M+reg
// forms are handled by f6f7Group (instr_arith.go) and the rm/reg rows
// below respectively; NOT r/m is digit 2 of 0xF6/0xF7.

type logicOp func(a, b uint32) uint32

func logicAnd(a, b uint32) uint32 { return a & b }
func logicOr(a, b uint32) uint32  { return a | b }
func logicXor(a, b uint32) uint32 { return a ^ b }

// logicRmR builds a handler for "op r/m, r" (dest r/m, source reg).
// wide selects between the fixed 8-bit form and the operand-size-prefix
// sensitive 16/32-bit form, resolved at dispatch time via opWidth.
func logicRmR(op logicOp, wide bool) Handler {
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
		result := flagsLogical(c.Regs, op(a, b), width)
		return c.writeOperand(rm, result)
	}
}

// logicRRm builds a handler for "op r, r/m" (dest reg, source r/m).
func logicRRm(op logicOp, wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		regField, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, width)
		a, err := c.readOperand(regOp)
		if err != nil {
			return err
		}
		b, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		result := flagsLogical(c.Regs, op(a, b), width)
		return c.writeOperand(regOp, result)
	}
}

// logicAccImm builds a handler for "op AL/eAX, imm".
func logicAccImm(op logicOp, wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		imm, err := c.fetchWidth(width)
		if err != nil {
			return err
		}
		accOp := regOperand(RegEAX, width, false)
		a, err := c.readOperand(accOp)
		if err != nil {
			return err
		}
		result := flagsLogical(c.Regs, op(a, imm), width)
		return c.writeOperand(accOp, result)
	}
}

// testRmR implements 0x84/0x85: TEST r/m, r — sets flags, discards AND.
func testRmR(wide bool) Handler {
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
		flagsLogical(c.Regs, a&b, width)
		return nil
	}
}

// testAccImm implements 0xA8/0xA9: TEST AL/eAX, imm.
func testAccImm(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		imm, err := c.fetchWidth(width)
		if err != nil {
			return err
		}
		a, err := c.readOperand(regOperand(RegEAX, width, false))
		if err != nil {
			return err
		}
		flagsLogical(c.Regs, a&imm, width)
		return nil
	}
}

func init() {
	type row struct {
		base byte
		op   logicOp
	}
	rows := []row{
		{0x08, logicOr},
		{0x20, logicAnd},
		{0x30, logicXor},
	}
	for _, rw := range rows {
		primaryTable[rw.base+0] = logicRmR(rw.op, false)
		primaryTable[rw.base+1] = logicRmR(rw.op, true)
		primaryTable[rw.base+2] = logicRRm(rw.op, false)
		primaryTable[rw.base+3] = logicRRm(rw.op, true)
		primaryTable[rw.base+4] = logicAccImm(rw.op, false)
		primaryTable[rw.base+5] = logicAccImm(rw.op, true)
	}

	primaryTable[0x84] = testRmR(false)
	primaryTable[0x85] = testRmR(true)
	primaryTable[0xA8] = testAccImm(false)
	primaryTable[0xA9] = testAccImm(true)
}
