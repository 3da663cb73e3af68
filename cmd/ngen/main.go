// Command ngen drives the code generator and DWARF emitter against a
// handful of synthetic procedures, for manual and scripted end-to-end
// exercise of the library (SPEC_FULL.md §D). It owns no front end: the
// procedures it compiles are built in Go by sample.go, not parsed from
// source.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hramberg-labs/ngen/src/objfile"
	"github.com/hramberg-labs/ngen/src/target"
)

var (
	archFlag    string
	verboseFlag bool
	outFlag     string

	log = logrus.StandardLogger()
)

func resolveTarget() (*target.Target, error) {
	switch archFlag {
	case "amd64":
		return target.AMD64, nil
	case "386":
		return target.X86, nil
	default:
		return nil, fmt.Errorf("unknown target architecture %q (want amd64 or 386)", archFlag)
	}
}

// openOutput returns the writer compile/dwarfdump write their result to:
// outFlag if set, stdout otherwise. Mirrors vslc/src/main.go's -o handling.
func openOutput() (*os.File, func(), error) {
	if outFlag == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(outFlag, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ngen",
		Short: "amd64/386 code generator and DWARF emitter driver",
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&archFlag, "arch", "a", "amd64", "target architecture: amd64 or 386")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "log each compilation stage")
	flags.StringVarP(&outFlag, "out", "o", "", "output file path (default: stdout)")

	// "--target-arch" is accepted as an alias of "--arch" the way a
	// cross-compiling driver's flags often grow a longer synonym over
	// time; pflag's normalization hook is the idiomatic place to fold it
	// rather than a second StringVar bound to the same variable.
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "target-arch" {
			name = "arch"
		}
		return pflag.NormalizedName(name)
	})

	root.AddCommand(newCompileCmd(), newDWARFDumpCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "compile the built-in sample procedures and print their assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}
			if verboseFlag {
				log.SetLevel(logrus.DebugLevel)
			}

			out, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			listings, err := compileSamples(t)
			if err != nil {
				return err
			}
			for _, l := range listings {
				fmt.Fprintf(out, "TEXT %s\n%s\n", l.Name, l.Asm)
			}
			return nil
		},
	}
}

func newDWARFDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dwarfdump",
		Short: "compile the built-in sample procedures and summarize their DWARF sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}
			if verboseFlag {
				log.SetLevel(logrus.DebugLevel)
			}

			out, closeOut, err := openOutput()
			if err != nil {
				return err
			}
			defer closeOut()

			summary, err := dumpSamples(t)
			if err != nil {
				return err
			}
			fmt.Fprint(out, summary)
			return nil
		},
	}
}

func main() {
	if p := objfile.HostPageSize(); p != 0 {
		log.WithField("host_page_size", p).Debug("ngen: starting")
	}
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
