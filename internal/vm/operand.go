package vm

// OperandKind tags the variant held by an Operand, per spec.md §9's
// "tagged sum {Register, Memory, Immediate}" design note.
type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandMem
	OperandImm
)

// Operand is the uniform handle the decoder hands to instruction
// handlers: a register view, a computed memory address, or an immediate
// value, always carrying its width in bytes (1, 2, or 4).
type Operand struct {
	Kind     OperandKind
	Width    uint32
	RegIndex int
	HighByte bool
	Addr     uint32
	Imm      uint32
}

func regOperand(index int, width uint32, highByte bool) Operand {
	return Operand{Kind: OperandReg, Width: width, RegIndex: index, HighByte: highByte}
}

// regOperandFromField builds a register Operand from a raw 3-bit ModR/M
// field, applying the 8-bit AH/CH/DH/BH aliasing (Reg8Index) when width
// is 1. reg/rm fields that are actually a /digit sub-opcode are never
// passed through this helper.
func regOperandFromField(field int, width uint32) Operand {
	if width == 1 {
		slot, high := Reg8Index(field)
		return regOperand(slot, 1, high)
	}
	return regOperand(field, width, false)
}

func memOperand(addr, width uint32) Operand {
	return Operand{Kind: OperandMem, Width: width, Addr: addr}
}

func immOperand(value, width uint32) Operand {
	return Operand{Kind: OperandImm, Width: width, Imm: value}
}

// readOperand returns the current unsigned value of op, reading through
// Memory or the register file as appropriate.
func (c *CPU) readOperand(op Operand) (uint32, error) {
	switch op.Kind {
	case OperandReg:
		return c.Regs.Read(op.RegIndex, int(op.Width), op.HighByte), nil
	case OperandMem:
		return c.Mem.read(c.EIP, op.Addr, op.Width)
	case OperandImm:
		return op.Imm, nil
	default:
		panic("vm: invalid operand kind")
	}
}

// writeOperand stores value into op. Writing an Immediate operand is a
// programmer error (the decoder never produces one as a destination).
func (c *CPU) writeOperand(op Operand, value uint32) error {
	switch op.Kind {
	case OperandReg:
		c.Regs.Write(op.RegIndex, int(op.Width), value, op.HighByte)
		return nil
	case OperandMem:
		return c.Mem.write(c.EIP, op.Addr, op.Width, value)
	default:
		panic("vm: cannot write to an immediate operand")
	}
}

// fetch8/16/32 read a little-endian immediate of the given width at EIP
// and advance EIP past it.
func (c *CPU) fetch8() (uint32, error) {
	v, err := c.Mem.read(c.EIP, c.EIP, 1)
	if err != nil {
		return 0, err
	}
	c.EIP++
	return v, nil
}

func (c *CPU) fetch16() (uint32, error) {
	v, err := c.Mem.read(c.EIP, c.EIP, 2)
	if err != nil {
		return 0, err
	}
	c.EIP += 2
	return v, nil
}

func (c *CPU) fetch32() (uint32, error) {
	v, err := c.Mem.read(c.EIP, c.EIP, 4)
	if err != nil {
		return 0, err
	}
	c.EIP += 4
	return v, nil
}

// fetchWidth reads an unsigned immediate of the given width (1, 2, or 4).
func (c *CPU) fetchWidth(width uint32) (uint32, error) {
	switch width {
	case 1:
		return c.fetch8()
	case 2:
		return c.fetch16()
	case 4:
		return c.fetch32()
	default:
		panic("vm: invalid immediate width")
	}
}

// fetchSigned8 reads a signed 8-bit immediate, sign-extended to 32 bits.
func (c *CPU) fetchSigned8() (uint32, error) {
	v, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	return uint32(int32(int8(v))), nil
}

// fetchRel8/fetchRel32 read a signed displacement and return the absolute
// target EIP (relative to the address of the byte *following* the
// displacement, per IA-32 near-relative branch semantics).
func (c *CPU) fetchRel8() (uint32, error) {
	v, err := c.fetch8()
	if err != nil {
		return 0, err
	}
	return c.EIP + uint32(int32(int8(v))), nil
}

func (c *CPU) fetchRel32() (uint32, error) {
	v, err := c.fetch32()
	if err != nil {
		return 0, err
	}
	return c.EIP + v, nil
}

// sibNoBaseField is the SIB special case: base field 5 with mod=00 means
// "no base register, a 32-bit displacement follows" instead of [EBP].
// sibNoIndexField is the index value meaning "no index"; as an rm value it
// also signals that a SIB byte follows.
const sibNoBaseField = 5
const sibNoIndexField = 4

// decodeModRM reads a ModR/M byte (and SIB/displacement if present) at
// EIP, advancing EIP past all of it. It returns the 3-bit reg field
// (either a register operand selector or a /digit sub-opcode, depending
// on the caller) and the r/m side already resolved to an Operand.
func (c *CPU) decodeModRM(width uint32) (reg int, rm Operand, err error) {
	b, err := c.fetch8()
	if err != nil {
		return 0, Operand{}, err
	}
	mod := (b >> 6) & 0x3
	reg = int((b >> 3) & 0x7)
	rmField := int(b & 0x7)

	if mod == 0b11 {
		return reg, regOperandFromField(rmField, width), nil
	}

	addr, err := c.decodeEffectiveAddress(mod, rmField)
	if err != nil {
		return 0, Operand{}, err
	}
	return reg, memOperand(addr, width), nil
}

// decodeEffectiveAddress computes the memory address for a ModR/M
// (mod, rm) pair with mod != 0b11, following spec.md §4.3's 32-bit
// addressing rules, including the SIB byte and its base/index special
// cases.
func (c *CPU) decodeEffectiveAddress(mod uint32, rmField int) (uint32, error) {
	var base uint32
	var haveBase bool

	if rmField == sibNoIndexField { // rm==4: a SIB byte follows
		sib, err := c.fetch8()
		if err != nil {
			return 0, err
		}
		scale := (sib >> 6) & 0x3
		index := int((sib >> 3) & 0x7)
		sibBase := int(sib & 0x7)

		if index != sibNoIndexField { // ESP is never used as an index
			base = c.Regs.Read(index, 4, false) << scale
			haveBase = true
		}
		if sibBase == sibNoBaseField && mod == 0b00 {
			disp, err := c.fetch32()
			if err != nil {
				return 0, err
			}
			if haveBase {
				return base + disp, nil
			}
			return disp, nil
		}
		baseReg := c.Regs.Read(sibBase, 4, false)
		if haveBase {
			base += baseReg
		} else {
			base = baseReg
		}
		haveBase = true
	} else if mod == 0b00 && rmField == sibNoBaseField {
		// mod=00, rm=5: 32-bit displacement only, no base register.
		disp, err := c.fetch32()
		if err != nil {
			return 0, err
		}
		return disp, nil
	} else {
		base = c.Regs.Read(rmField, 4, false)
		haveBase = true
	}

	switch mod {
	case 0b00:
		if !haveBase {
			return 0, nil
		}
		return base, nil
	case 0b01:
		disp, err := c.fetchSigned8()
		if err != nil {
			return 0, err
		}
		return base + disp, nil
	case 0b10:
		disp, err := c.fetch32()
		if err != nil {
			return 0, err
		}
		return base + disp, nil
	default:
		panic("vm: unreachable mod value")
	}
}
