package main

import (
	"fmt"
	"os"
	"sort"

	"ix-decoder-sol/internal/discriminator"

	"github.com/spf13/cobra"
)

var (
	methodsFile string
	outputFile  string
	lookupDisc  string
	methodName  string
)

func init() {
	discriminatorsCmd.Flags().StringVarP(&methodsFile, "in", "i", "etc/prog_func.yaml", "program methods document (YAML)")
	discriminatorsCmd.Flags().StringVarP(&outputFile, "out", "o", "", "write the discriminator table (JSON) to this file")
	discriminatorsCmd.Flags().StringVar(&lookupDisc, "lookup", "", "look up the method name of a hex discriminator")
	discriminatorsCmd.Flags().StringVar(&methodName, "name", "", "print the global discriminator of a method name")
}

var discriminatorsCmd = &cobra.Command{
	Use:   "discriminators",
	Short: "Build Anchor discriminator tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if methodName != "" {
			d := discriminator.Global(methodName)
			fmt.Printf("%s %s %d\n", methodName, d.Hex(), d.Uint64())
			return nil
		}

		programs, err := discriminator.LoadProgramMethods(methodsFile)
		if err != nil {
			return err
		}
		doc, err := discriminator.BuildDocument(programs)
		if err != nil {
			return err
		}

		if lookupDisc != "" {
			return lookup(doc, lookupDisc)
		}
		if outputFile == "" {
			return writeJSON(doc)
		}
		if err := doc.WriteFile(outputFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d programs to %s\n", len(doc), outputFile)
		return nil
	},
}

func lookup(doc discriminator.Document, disc string) error {
	programs := make([]string, 0, len(doc))
	for name := range doc {
		programs = append(programs, name)
	}
	sort.Strings(programs)

	found := false
	for _, prog := range programs {
		if name, ok := doc[prog].Lookup(disc); ok {
			fmt.Printf("%s: %s\n", prog, name)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("discriminator %s not found", disc)
	}
	return nil
}
