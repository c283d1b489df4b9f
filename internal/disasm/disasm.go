// Package disasm renders a flat IA-32 byte image as a linear listing of
// mnemonic, offset pairs, independent of and without exercising the vm
// package's execution side effects. It decodes only the small subset of
// internal/vm's opcodes listed in decodeOne (no prefixes, no 0x0F
// opcodes); any other byte is rendered as a raw db byte.
package disasm

import (
	"encoding/binary"
	"fmt"
)

// Instruction is one decoded line of a disassembly listing.
type Instruction struct {
	Offset uint32
	Length uint32
	Text   string
}

// reader walks code without mutating anything outside itself.
type reader struct {
	code []byte
	pos  uint32
}

func (r *reader) u8() (byte, bool) {
	if int(r.pos) >= len(r.code) {
		return 0, false
	}
	b := r.code[r.pos]
	r.pos++
	return b, true
}

func (r *reader) u32() (uint32, bool) {
	if int(r.pos)+4 > len(r.code) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.code[r.pos:])
	r.pos += 4
	return v, true
}

var modrmRegNames32 = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}

// modrm consumes a ModR/M byte (and SIB/displacement, if present),
// returning a rendered operand string and the reg field.
func (r *reader) modrm() (reg int, operand string, ok bool) {
	b, ok := r.u8()
	if !ok {
		return 0, "", false
	}
	mod := b >> 6
	reg = int(b>>3) & 0x7
	rm := int(b) & 0x7

	if mod == 0b11 {
		return reg, modrmRegNames32[rm], true
	}
	base := modrmRegNames32[rm]
	if rm == 4 { // SIB byte
		sib, ok := r.u8()
		if !ok {
			return 0, "", false
		}
		scale := 1 << (sib >> 6)
		index := int(sib>>3) & 0x7
		sibBase := int(sib) & 0x7
		var parts string
		if index != 4 {
			parts = fmt.Sprintf("%s*%d", modrmRegNames32[index], scale)
		}
		if sibBase == 5 && mod == 0b00 {
			disp, ok := r.u32()
			if !ok {
				return 0, "", false
			}
			if parts != "" {
				return reg, fmt.Sprintf("[%s+%#x]", parts, disp), true
			}
			return reg, fmt.Sprintf("[%#x]", disp), true
		}
		base = modrmRegNames32[sibBase]
		if parts != "" {
			base = base + "+" + parts
		}
	} else if mod == 0b00 && rm == 5 {
		disp, ok := r.u32()
		if !ok {
			return 0, "", false
		}
		return reg, fmt.Sprintf("[%#x]", disp), true
	}
	switch mod {
	case 0b00:
		return reg, fmt.Sprintf("[%s]", base), true
	case 0b01:
		disp, ok := r.u8()
		if !ok {
			return 0, "", false
		}
		return reg, fmt.Sprintf("[%s%+d]", base, int8(disp)), true
	case 0b10:
		disp, ok := r.u32()
		if !ok {
			return 0, "", false
		}
		return reg, fmt.Sprintf("[%s%+#x]", base, int32(disp)), true
	}
	return 0, "", false
}

// Disassemble decodes code starting at offset base through the end of the
// buffer. A byte it cannot decode becomes a one-byte "db" entry and
// decoding resumes at the next byte.
func Disassemble(code []byte, base uint32) []Instruction {
	var out []Instruction
	r := &reader{code: code}
	for int(r.pos) < len(code) {
		start := r.pos
		text, ok := decodeOne(r)
		if !ok {
			r.pos = start
			b, _ := r.u8()
			out = append(out, Instruction{Offset: base + start, Length: 1, Text: fmt.Sprintf("db %#x", b)})
			continue
		}
		out = append(out, Instruction{Offset: base + start, Length: r.pos - start, Text: text})
	}
	return out
}

func decodeOne(r *reader) (string, bool) {
	op, ok := r.u8()
	if !ok {
		return "", false
	}
	switch op {
	case 0x90:
		return "nop", true
	case 0xC3:
		return "ret", true
	case 0xC9:
		return "leave", true
	case 0xCC:
		return "int3", true
	case 0xF4:
		return "hlt", true
	case 0xF8:
		return "clc", true
	case 0xF9:
		return "stc", true
	case 0xFC:
		return "cld", true
	case 0xFD:
		return "std", true
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF:
		imm, ok := r.u32()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("mov %s, %#x", modrmRegNames32[op-0xB8], imm), true
	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57:
		return fmt.Sprintf("push %s", modrmRegNames32[op-0x50]), true
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F:
		return fmt.Sprintf("pop %s", modrmRegNames32[op-0x58]), true
	case 0x89:
		reg, rm, ok := r.modrm()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("mov %s, %s", rm, modrmRegNames32[reg]), true
	case 0x8B:
		reg, rm, ok := r.modrm()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("mov %s, %s", modrmRegNames32[reg], rm), true
	case 0x01:
		reg, rm, ok := r.modrm()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("add %s, %s", rm, modrmRegNames32[reg]), true
	case 0x29:
		reg, rm, ok := r.modrm()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("sub %s, %s", rm, modrmRegNames32[reg]), true
	case 0x83:
		_, rm, ok := r.modrm()
		if !ok {
			return "", false
		}
		imm, ok := r.u8()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("alu %s, %#x", rm, imm), true
	case 0xE8:
		rel, ok := r.u32()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("call %+d", int32(rel)), true
	case 0xE9:
		rel, ok := r.u32()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("jmp %+d", int32(rel)), true
	case 0xEB:
		rel, ok := r.u8()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("jmp %+d", int8(rel)), true
	case 0xCD:
		vector, ok := r.u8()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("int %#x", vector), true
	}
	if op >= 0x70 && op <= 0x7F {
		rel, ok := r.u8()
		if !ok {
			return "", false
		}
		return fmt.Sprintf("jcc%d %+d", op-0x70, int8(rel)), true
	}
	return "", false
}
