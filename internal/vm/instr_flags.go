package vm

// Flags category: the direct EFLAGS-bit setters/complementers, plus
// lahf/sahf's byte-wide view into AH.

func stcHandler(c *CPU) error { c.Regs.FlagSet(FlagCF, true); return nil }
func clcHandler(c *CPU) error { c.Regs.FlagSet(FlagCF, false); return nil }
func cmcHandler(c *CPU) error {
	c.Regs.FlagSet(FlagCF, c.Regs.FlagGet(FlagCF) == 0)
	return nil
}
func stdHandler(c *CPU) error { c.Regs.FlagSet(FlagDF, true); return nil }
func cldHandler(c *CPU) error { c.Regs.FlagSet(FlagDF, false); return nil }
func stiHandler(c *CPU) error { c.Regs.FlagSet(FlagIF, true); return nil }
func cliHandler(c *CPU) error { c.Regs.FlagSet(FlagIF, false); return nil }

// lahfHandler implements 0x9F: LAHF — loads SF/ZF/AF/PF/CF (plus the
// architecturally-fixed bit 1) into AH.
func lahfHandler(c *CPU) error {
	v := c.Regs.EFLAGS()&0xFF | 0x02
	c.Regs.Write(RegEAX, 1, v, true)
	return nil
}

// sahfHandler implements 0x9E: SAHF — stores AH into SF/ZF/AF/PF/CF.
func sahfHandler(c *CPU) error {
	ah := c.Regs.Read(RegEAX, 1, true)
	const mask = 1<<FlagCF | 1<<FlagPF | 1<<FlagAF | 1<<FlagZF | 1<<FlagSF
	c.Regs.SetEFLAGS((c.Regs.EFLAGS() &^ mask) | (ah & mask))
	return nil
}

func init() {
	primaryTable[0xF8] = clcHandler
	primaryTable[0xF9] = stcHandler
	primaryTable[0xF5] = cmcHandler
	primaryTable[0xFC] = cldHandler
	primaryTable[0xFD] = stdHandler
	primaryTable[0xFA] = cliHandler
	primaryTable[0xFB] = stiHandler
	primaryTable[0x9F] = lahfHandler
	primaryTable[0x9E] = sahfHandler
}
