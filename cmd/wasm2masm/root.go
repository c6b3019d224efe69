package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wasm2masm",
		Short:         "Compile WebAssembly core modules to Miden Assembly",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}
