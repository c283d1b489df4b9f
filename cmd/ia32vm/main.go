// Command ia32vm runs flat IA-32 binary images against the emulator core.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiern/ia32vm/internal/disasm"
	"github.com/aiern/ia32vm/internal/loader"
	"github.com/aiern/ia32vm/internal/repl"
	"github.com/aiern/ia32vm/internal/vm"
)

func main() {
	var (
		memSize uint
		debug   bool
		offset  uint
	)

	rootCmd := &cobra.Command{
		Use:   "ia32vm",
		Short: "A minimal IA-32 emulator core",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().UintVar(&memSize, "mem", 1<<20, "flat memory size in bytes")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "m", false, "trace every instruction to stderr")
	rootCmd.PersistentFlags().UintVar(&offset, "offset", 0, "load address of the image")

	runCmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Load an image and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			c := vm.NewVM(int(memSize), vm.WithDebug(debug))
			if err := c.ExecuteBytes(code, uint32(offset)); err != nil {
				return err
			}
			os.Exit(int(c.ExitCode))
			return nil
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl <image>",
		Short: "Load an image and single-step it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			c := vm.NewVM(int(memSize), vm.WithDebug(debug))
			if err := c.Mem.Set(0, uint32(offset), code); err != nil {
				return err
			}
			c.EIP = uint32(offset)
			c.Regs.Write(vm.RegESP, 4, c.Mem.Size(), false)

			r, err := repl.New(c, os.Stdout)
			if err != nil {
				return err
			}
			defer r.Close()
			return r.Run()
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm <image>",
		Short: "Disassemble an image without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			for _, inst := range disasm.Disassemble(code, uint32(offset)) {
				fmt.Printf("%#08x: %s\n", inst.Offset, inst.Text)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, replCmd, disasmCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
