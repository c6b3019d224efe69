package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/midenhir/compiler/internal/driver"
)

// newCompileCmd is the CLI's single subcommand (spec.md §6): it carries
// --test-harness plus the pipeline options a config file can also
// supply (SPEC_FULL.md §2), CLI flags always winning over the file.
func newCompileCmd() *cobra.Command {
	var (
		testHarness   bool
		configPath    string
		heapBasePages uint32
		entryFunction string
	)

	cmd := &cobra.Command{
		Use:   "compile <input.wasm>",
		Short: "Compile a core WebAssembly module to MASM text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := driver.Options{
				TestHarness:   testHarness,
				HeapBasePages: heapBasePages,
				EntryFunction: entryFunction,
			}
			if configPath != "" {
				cfg, err := driver.LoadConfig(configPath)
				if err != nil {
					return err
				}
				opts = opts.WithConfig(cfg)
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			session := driver.NewSession(opts)
			prog, compileErr := session.Compile(in)
			for _, d := range session.Diagnostics {
				fmt.Fprintln(cmd.ErrOrStderr(), d.String())
			}
			if compileErr != nil {
				return compileErr
			}

			out := cmd.OutOrStdout()
			for _, m := range prog.Library.Modules() {
				fmt.Fprint(out, m.Text())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&testHarness, "test-harness", false, "emit the test preamble")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML pipeline-options file")
	cmd.Flags().Uint32Var(&heapBasePages, "heap-base-pages", 0, "override the computed heap base, in 64KiB pages")
	cmd.Flags().StringVar(&entryFunction, "entry", "", "override the resolved entry function")

	return cmd
}
