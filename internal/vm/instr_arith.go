package vm

// Arithmetic category: add, adc, sub, sbb, cmp, inc, dec, neg, mul, imul,
// div, idiv, cdq, cwd, cwde, cbw. Flags per the functions in flags.go.

type arithKind int

const (
	arithAdd arithKind = iota
	arithAdc
	arithSub
	arithSbb
	arithCmp // like sub, but the result is discarded
)

func (k arithKind) apply(r *Registers, a, b, width uint32) uint32 {
	switch k {
	case arithAdd:
		return flagsAdd(r, a, b, width)
	case arithAdc:
		return flagsAdc(r, a, b, r.FlagGet(FlagCF), width)
	case arithSub, arithCmp:
		return flagsSub(r, a, b, width)
	case arithSbb:
		return flagsSbb(r, a, b, r.FlagGet(FlagCF), width)
	default:
		panic("vm: invalid arith kind")
	}
}

func opWidth(c *CPU, wide bool) uint32 {
	if wide {
		return c.operandWidth()
	}
	return 1
}

// arithRmR builds a handler for the "op r/m, r" encoding (dest is r/m,
// source is register).
func arithRmR(kind arithKind, wide bool) Handler {
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
		result := kind.apply(c.Regs, a, b, width)
		if kind != arithCmp {
			return c.writeOperand(rm, result)
		}
		return nil
	}
}

// arithRRm builds a handler for the "op r, r/m" encoding (dest is
// register, source is r/m).
func arithRRm(kind arithKind, wide bool) Handler {
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
		result := kind.apply(c.Regs, a, b, width)
		if kind != arithCmp {
			return c.writeOperand(regOp, result)
		}
		return nil
	}
}

// arithAccImm builds a handler for "op AL/eAX, imm" (accumulator forms).
func arithAccImm(kind arithKind, wide bool) Handler {
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
		result := kind.apply(c.Regs, a, imm, width)
		if kind != arithCmp {
			return c.writeOperand(accOp, result)
		}
		return nil
	}
}

func incDecReg(isInc bool, index int) Handler {
	return func(c *CPU) error {
		width := c.operandWidth()
		op := regOperand(index, width, false)
		a, err := c.readOperand(op)
		if err != nil {
			return err
		}
		var result uint32
		if isInc {
			result = flagsInc(c.Regs, a, width)
		} else {
			result = flagsDec(c.Regs, a, width)
		}
		return c.writeOperand(op, result)
	}
}

// f6f7Group implements the /digit handlers shared by 0xF6 (8-bit)
// and 0xF7 (operand-size): TEST(0), NOT(2), NEG(3), MUL(4), IMUL(5),
// DIV(6), IDIV(7). Digit 1 is unused by the ISA and falls through to
// UnknownOpcode.
func f6f7Group(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		switch digit {
		case 0: // TEST r/m, imm
			imm, err := c.fetchWidth(width)
			if err != nil {
				return err
			}
			a, err := c.readOperand(rm)
			if err != nil {
				return err
			}
			flagsLogical(c.Regs, a&imm, width)
			return nil
		case 2: // NOT r/m
			a, err := c.readOperand(rm)
			if err != nil {
				return err
			}
			return c.writeOperand(rm, (^a)&maskOf(width))
		case 3: // NEG r/m
			a, err := c.readOperand(rm)
			if err != nil {
				return err
			}
			result := flagsNeg(c.Regs, a, width)
			return c.writeOperand(rm, result)
		case 4: // MUL r/m (unsigned): AX<-AL*r/m8, or eDX:eAX <- eAX*r/m
			return c.mulUnsigned(rm, width)
		case 5: // IMUL r/m (signed, 1-operand form)
			return c.imulOneOperand(rm, width)
		case 6: // DIV r/m (unsigned)
			return c.divUnsigned(rm, width)
		case 7: // IDIV r/m (signed)
			return c.idivSigned(rm, width)
		default:
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
	}
}

func (c *CPU) mulUnsigned(rm Operand, width uint32) error {
	a, err := c.readOperand(rm)
	if err != nil {
		return err
	}
	acc, err := c.readOperand(regOperand(RegEAX, width, false))
	if err != nil {
		return err
	}
	full := uint64(acc) * uint64(a)
	if width == 1 {
		c.Regs.Write(RegEAX, 2, uint32(full), false)
	} else {
		c.Regs.Write(RegEAX, int(width), uint32(full), false)
		c.Regs.Write(RegEDX, int(width), uint32(full>>(width*8)), false)
	}
	overflow := full > uint64(maskOf(width))
	c.Regs.FlagSet(FlagCF, overflow)
	c.Regs.FlagSet(FlagOF, overflow)
	return nil
}

func (c *CPU) imulOneOperand(rm Operand, width uint32) error {
	a, err := c.readOperand(rm)
	if err != nil {
		return err
	}
	acc, err := c.readOperand(regOperand(RegEAX, width, false))
	if err != nil {
		return err
	}
	as := signExtendTo64(a, width)
	accs := signExtendTo64(acc, width)
	full := as * accs
	if width == 1 {
		c.Regs.Write(RegEAX, 2, uint32(full), false)
	} else {
		c.Regs.Write(RegEAX, int(width), uint32(full), false)
		c.Regs.Write(RegEDX, int(width), uint32(full>>(width*8)), false)
	}
	truncated := signExtendTo64(uint32(full)&maskOf(width), width)
	overflow := truncated != full
	c.Regs.FlagSet(FlagCF, overflow)
	c.Regs.FlagSet(FlagOF, overflow)
	return nil
}

func signExtendTo64(v, width uint32) int64 {
	switch width {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	default:
		return int64(int32(v))
	}
}

func (c *CPU) divUnsigned(rm Operand, width uint32) error {
	divisor, err := c.readOperand(rm)
	if err != nil {
		return err
	}
	if divisor == 0 {
		return newDivideError(c.EIP)
	}
	var dividend uint64
	if width == 1 {
		dividend = uint64(c.Regs.Read(RegEAX, 2, false))
	} else {
		lo := uint64(c.Regs.Read(RegEAX, int(width), false))
		hi := uint64(c.Regs.Read(RegEDX, int(width), false))
		dividend = lo | hi<<(width*8)
	}
	quotient := dividend / uint64(divisor)
	remainder := dividend % uint64(divisor)
	if quotient > uint64(maskOf(width)) {
		return newDivideError(c.EIP)
	}
	if width == 1 {
		c.Regs.Write(RegEAX, 1, uint32(quotient), false)
		c.Regs.Write(RegEAX, 1, uint32(remainder), true)
	} else {
		c.Regs.Write(RegEAX, int(width), uint32(quotient), false)
		c.Regs.Write(RegEDX, int(width), uint32(remainder), false)
	}
	return nil
}

func (c *CPU) idivSigned(rm Operand, width uint32) error {
	divisorU, err := c.readOperand(rm)
	if err != nil {
		return err
	}
	divisor := signExtendTo64(divisorU, width)
	if divisor == 0 {
		return newDivideError(c.EIP)
	}
	var dividend int64
	if width == 1 {
		dividend = int64(int16(c.Regs.Read(RegEAX, 2, false)))
	} else {
		lo := uint64(c.Regs.Read(RegEAX, int(width), false))
		hi := uint64(c.Regs.Read(RegEDX, int(width), false))
		dividend = int64(int32(lo | hi<<(width*8)))
		if width == 4 {
			dividend = int64(lo | hi<<32)
		}
	}
	quotient := dividend / divisor
	remainder := dividend % divisor
	if quotient != signExtendTo64(uint32(quotient)&maskOf(width), width) {
		return newDivideError(c.EIP)
	}
	if width == 1 {
		c.Regs.Write(RegEAX, 1, uint32(quotient), false)
		c.Regs.Write(RegEAX, 1, uint32(remainder), true)
	} else {
		c.Regs.Write(RegEAX, int(width), uint32(quotient), false)
		c.Regs.Write(RegEDX, int(width), uint32(remainder), false)
	}
	return nil
}

// imul3 implements the 2- and 3-operand IMUL forms (0x0F AF, 0x69, 0x6B).
func imul3(threeOperand, immSignByte bool) Handler {
	return func(c *CPU) error {
		width := c.operandWidth()
		regField, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		regOp := regOperandFromField(regField, width)
		src, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		var multiplicand uint32
		if threeOperand {
			var imm uint32
			if immSignByte {
				imm, err = c.fetchSigned8()
			} else {
				imm, err = c.fetchWidth(width)
			}
			if err != nil {
				return err
			}
			multiplicand = imm
		} else {
			multiplicand, err = c.readOperand(regOp)
			if err != nil {
				return err
			}
		}
		a := signExtendTo64(src, width)
		b := signExtendTo64(multiplicand, width)
		full := a * b
		result := uint32(full) & maskOf(width)
		truncated := signExtendTo64(result, width)
		overflow := truncated != full
		c.Regs.FlagSet(FlagCF, overflow)
		c.Regs.FlagSet(FlagOF, overflow)
		return c.writeOperand(regOp, result)
	}
}

// cbwCwdeHandler implements opcode 0x98: CBW (AL->AX) under a 0x66
// prefix, CWDE (AX->EAX) otherwise.
func cbwCwdeHandler(c *CPU) error {
	if c.operandWidth() == 2 {
		al := int8(c.Regs.Read(RegEAX, 1, false))
		c.Regs.Write(RegEAX, 2, uint32(int16(al)), false)
	} else {
		ax := int16(c.Regs.Read(RegEAX, 2, false))
		c.Regs.Write(RegEAX, 4, uint32(int32(ax)), false)
	}
	return nil
}

// cwdCdqHandler implements opcode 0x99: CWD (AX->DX:AX) under a 0x66
// prefix, CDQ (EAX->EDX:EAX) otherwise.
func cwdCdqHandler(c *CPU) error {
	if c.operandWidth() == 2 {
		ax := int16(c.Regs.Read(RegEAX, 2, false))
		if ax < 0 {
			c.Regs.Write(RegEDX, 2, 0xFFFF, false)
		} else {
			c.Regs.Write(RegEDX, 2, 0, false)
		}
	} else {
		eax := int32(c.Regs.Read(RegEAX, 4, false))
		if eax < 0 {
			c.Regs.Write(RegEDX, 4, 0xFFFFFFFF, false)
		} else {
			c.Regs.Write(RegEDX, 4, 0, false)
		}
	}
	return nil
}

func init() {
	// ADD=0, OR=1, ADC=2, SBB=3, AND=4, SUB=5, XOR=6, CMP=7 — the standard
	// IA-32 ALU group ordering used both by the 0x00-0x3D rows and by the
	// /digit field of 0x80/0x81/0x83 (routed through aluRmImmDigit below,
	// which covers both the arithmetic and logical kinds in one table).
	type row struct {
		base byte
		kind arithKind
	}
	rows := []row{
		{0x00, arithAdd},
		{0x10, arithAdc},
		{0x18, arithSbb},
		{0x28, arithSub},
		{0x38, arithCmp},
	}
	for _, rw := range rows {
		primaryTable[rw.base+0] = arithRmR(rw.kind, false)
		primaryTable[rw.base+1] = arithRmR(rw.kind, true)
		primaryTable[rw.base+2] = arithRRm(rw.kind, false)
		primaryTable[rw.base+3] = arithRRm(rw.kind, true)
		primaryTable[rw.base+4] = arithAccImm(rw.kind, false)
		primaryTable[rw.base+5] = arithAccImm(rw.kind, true)
	}

	primaryTable[0x80] = aluRmImmDigit(false, false, false)
	primaryTable[0x81] = aluRmImmDigit(true, true, false)
	primaryTable[0x83] = aluRmImmDigit(true, false, true)

	primaryTable[0xF6] = f6f7Group(false)
	primaryTable[0xF7] = f6f7Group(true)

	primaryTable[0xFE] = incDecDigit(false)
	primaryTable[0xFF] = ffGroup

	for i := 0; i < 8; i++ {
		primaryTable[0x40+i] = incDecReg(true, i)
		primaryTable[0x48+i] = incDecReg(false, i)
	}

	primaryTable[0x69] = imul3(true, false)
	primaryTable[0x6B] = imul3(true, true)
	secondaryTable[0xAF] = imul3(false, false)

	primaryTable[0x98] = cbwCwdeHandler
	primaryTable[0x99] = cwdCdqHandler
}

// aluRmImmDigit builds the shared 0x80/0x81/0x83 handler: it decodes
// ModR/M, routes on the /digit reg field to the right ALU kind (covering
// both the arithmetic kinds here and the logical kinds registered by
// instr_logic.go's table), then applies op r/m, imm.
func aluRmImmDigit(wide, immWide, signExtend bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		var imm uint32
		if signExtend {
			imm, err = c.fetchSigned8()
		} else {
			imm, err = c.fetchWidth(opWidth(c, immWide))
		}
		if err != nil {
			return err
		}
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		var result uint32
		write := true
		switch digit {
		case 0:
			result = flagsAdd(c.Regs, a, imm, width)
		case 1:
			result = flagsLogical(c.Regs, a|imm, width)
		case 2:
			result = flagsAdc(c.Regs, a, imm, c.Regs.FlagGet(FlagCF), width)
		case 3:
			result = flagsSbb(c.Regs, a, imm, c.Regs.FlagGet(FlagCF), width)
		case 4:
			result = flagsLogical(c.Regs, a&imm, width)
		case 5:
			result = flagsSub(c.Regs, a, imm, width)
		case 6:
			result = flagsLogical(c.Regs, a^imm, width)
		case 7:
			flagsSub(c.Regs, a, imm, width)
			write = false
		default:
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
		if write {
			return c.writeOperand(rm, result)
		}
		return nil
	}
}

func incDecDigit(wide bool) Handler {
	return func(c *CPU) error {
		width := opWidth(c, wide)
		eip := c.EIP
		digit, rm, err := c.decodeModRM(width)
		if err != nil {
			return err
		}
		switch digit {
		case 0:
			a, err := c.readOperand(rm)
			if err != nil {
				return err
			}
			return c.writeOperand(rm, flagsInc(c.Regs, a, width))
		case 1:
			a, err := c.readOperand(rm)
			if err != nil {
				return err
			}
			return c.writeOperand(rm, flagsDec(c.Regs, a, width))
		default:
			bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
			return newUnknownOpcode(eip, append([]byte(nil), bytes...))
		}
	}
}

// ffGroup implements opcode 0xFF's /digit variants: INC(0), DEC(1),
// CALL r/m32 near indirect(2), JMP r/m32 near indirect(4), PUSH r/m32(6).
// Far call/jmp (/3, /5) are the explicit far-variant non-goal.
func ffGroup(c *CPU) error {
	width := c.operandWidth()
	eip := c.EIP
	digit, rm, err := c.decodeModRM(width)
	if err != nil {
		return err
	}
	switch digit {
	case 0:
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		return c.writeOperand(rm, flagsInc(c.Regs, a, width))
	case 1:
		a, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		return c.writeOperand(rm, flagsDec(c.Regs, a, width))
	case 2: // CALL r/m, near indirect
		target, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		if err := c.Push(4, c.EIP); err != nil {
			return err
		}
		c.EIP = target
		return nil
	case 4: // JMP r/m, near indirect
		target, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		c.EIP = target
		return nil
	case 6: // PUSH r/m
		v, err := c.readOperand(rm)
		if err != nil {
			return err
		}
		return c.Push(4, v)
	default:
		bytes, _ := c.Mem.Get(c.EIP, eip, c.EIP-eip)
		return newUnknownOpcode(eip, append([]byte(nil), bytes...))
	}
}
