package vm

// Canonical IA-32 general-purpose register indices (Intel SDM table 2-2 /
// the REG and R/M field encoding), also spec.md's §3 ordering.
const (
	RegEAX = 0
	RegECX = 1
	RegEDX = 2
	RegEBX = 3
	RegESP = 4
	RegEBP = 5
	RegESI = 6
	RegEDI = 7
)

var reg32Names = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
var reg16Names = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var reg8LoNames = [4]string{"al", "cl", "dl", "bl"}
var reg8HiNames = [4]string{"ah", "ch", "dh", "bh"}

// EFLAGS bit positions; only the ones spec.md calls out have semantic
// meaning (DF for string direction), the rest are storage only.
const (
	FlagCF = 0
	FlagPF = 2
	FlagAF = 4
	FlagZF = 6
	FlagSF = 7
	FlagTF = 8
	FlagIF = 9
	FlagDF = 10
	FlagOF = 11
)

// Registers holds the eight 32-bit general-purpose slots plus EFLAGS.
// 16- and 8-bit views are computed on read/write, not stored separately,
// so that the aliasing invariant (narrow writes never disturb unaliased
// upper bytes) falls out of the arithmetic rather than needing to be kept
// in sync by hand.
type Registers struct {
	slots  [8]uint32
	eflags uint32
}

// Reg8Index maps a 3-bit ModR/M register field (0..7) used in an 8-bit
// context to the underlying 32-bit slot and whether it addresses the high
// byte. Per spec.md §3, only slots 0..3 have 8-bit views: field 0..3 is
// AL/CL/DL/BL (low byte of slot 0..3), field 4..7 is AH/CH/DH/BH (bits
// 8..15 of slot 0..3).
func Reg8Index(field int) (slot int, high bool) {
	return field & 3, field&4 != 0
}

// Read returns the unsigned value of the register view named by (index,
// width, highByte). width is 1, 2, or 4 bytes.
func (r *Registers) Read(index int, width int, highByte bool) uint32 {
	v := r.slots[index]
	switch width {
	case 4:
		return v
	case 2:
		return v & 0xFFFF
	case 1:
		if highByte {
			return (v >> 8) & 0xFF
		}
		return v & 0xFF
	default:
		panic("vm: invalid register width")
	}
}

// Write stores value into the register view named by (index, width,
// highByte), leaving the rest of the 32-bit slot untouched — no write
// beyond the requested width ever zero-extends the destination.
func (r *Registers) Write(index int, width int, value uint32, highByte bool) {
	switch width {
	case 4:
		r.slots[index] = value
	case 2:
		r.slots[index] = (r.slots[index] &^ 0xFFFF) | (value & 0xFFFF)
	case 1:
		if highByte {
			r.slots[index] = (r.slots[index] &^ 0xFF00) | ((value & 0xFF) << 8)
		} else {
			r.slots[index] = (r.slots[index] &^ 0xFF) | (value & 0xFF)
		}
	default:
		panic("vm: invalid register width")
	}
}

// FlagSet sets or clears a single EFLAGS bit.
func (r *Registers) FlagSet(bit int, set bool) {
	if set {
		r.eflags |= 1 << bit
	} else {
		r.eflags &^= 1 << bit
	}
}

// FlagGet returns 0 or 1 for the given EFLAGS bit.
func (r *Registers) FlagGet(bit int) uint32 {
	return (r.eflags >> bit) & 1
}

// EFLAGS returns the raw EFLAGS register (used by pushf/popf/lahf/sahf).
func (r *Registers) EFLAGS() uint32 { return r.eflags }

// SetEFLAGS overwrites the raw EFLAGS register.
func (r *Registers) SetEFLAGS(v uint32) { r.eflags = v }
