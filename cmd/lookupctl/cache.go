package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronolookup-api/internal/model"
)

func init() {
	cacheCmd := &cobra.Command{Use: "cache", Short: "Cache maintenance"}

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per cache and namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(os.Stdout, application.Maintainer.Stats())
		},
	}
	cacheCmd.AddCommand(statsCmd)

	// sweep
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evict expired entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(os.Stdout, "removed %d expired entries\n", application.Maintainer.Sweep())
			return nil
		},
	}
	cacheCmd.AddCommand(sweepCmd)

	// clear
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			return application.Maintainer.ClearAll()
		},
	}
	cacheCmd.AddCommand(clearCmd)

	// export
	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export KIND",
		Short: "Write a cache snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				return application.Persisters[kind].Export(os.Stdout)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return application.Persisters[kind].Export(f)
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (defaults to stdout)")
	cacheCmd.AddCommand(exportCmd)

	// import
	var inPath string
	importCmd := &cobra.Command{
		Use:   "import KIND",
		Short: "Merge an exported snapshot into a cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			in := os.Stdin
			if inPath != "" && inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			n, err := application.Persisters[kind].Import(in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "imported %d entries\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&inPath, "input", "i", "", "Input file (defaults to stdin)")
	cacheCmd.AddCommand(importCmd)

	rootCmd.AddCommand(cacheCmd)
}
