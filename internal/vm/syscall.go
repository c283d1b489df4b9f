package vm

import "io"

// Linux-style int 0x80 syscall numbers this gate implements. Anything
// else is UnsupportedSyscall.
const (
	sysExit  = 1
	sysRead  = 3
	sysWrite = 4
)

// syscall dispatches on EAX using the standard Linux int 0x80 calling
// convention: EBX, ECX, EDX carry the first three arguments, and the
// return value (or -1 on error) goes back into EAX.
func (c *CPU) syscall() error {
	num := c.Regs.Read(RegEAX, 4, false)
	switch num {
	case sysExit:
		c.Halted = true
		c.ExitCode = uint8(c.Regs.Read(RegEBX, 4, false))
		return nil
	case sysRead:
		return c.sysReadWrite(true)
	case sysWrite:
		return c.sysReadWrite(false)
	default:
		return &UnsupportedSyscall{fatalBase{eip: c.EIP}, num}
	}
}

// sysReadWrite implements both read(2) and write(2): fd is EBX, the
// buffer address is ECX, the byte count is EDX. fd 0 only supports read,
// fds 1/2 only support write; anything else, or a host I/O error, yields
// -1 in EAX rather than a fatal error (matching Linux syscall semantics).
func (c *CPU) sysReadWrite(isRead bool) error {
	fd := c.Regs.Read(RegEBX, 4, false)
	addr := c.Regs.Read(RegECX, 4, false)
	count := c.Regs.Read(RegEDX, 4, false)

	var n int
	var err error
	switch {
	case isRead && fd == 0:
		buf := make([]byte, count)
		n, err = c.Stdin.Read(buf)
		if n > 0 {
			if werr := c.Mem.Set(c.EIP, addr, buf[:n]); werr != nil {
				c.Regs.Write(RegEAX, 4, 0xFFFFFFFF, false)
				return nil
			}
		}
		if err != nil && err != io.EOF {
			c.Regs.Write(RegEAX, 4, 0xFFFFFFFF, false)
			return nil
		}
	case !isRead && (fd == 1 || fd == 2):
		buf, gerr := c.Mem.Get(c.EIP, addr, count)
		if gerr != nil {
			c.Regs.Write(RegEAX, 4, 0xFFFFFFFF, false)
			return nil
		}
		w := c.Stdout
		if fd == 2 {
			w = c.Stderr
		}
		n, err = w.Write(buf)
		if err != nil {
			c.Regs.Write(RegEAX, 4, 0xFFFFFFFF, false)
			return nil
		}
	default:
		c.Regs.Write(RegEAX, 4, 0xFFFFFFFF, false)
		return nil
	}
	c.Regs.Write(RegEAX, 4, uint32(n), false)
	return nil
}
