package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/filter"
	"github.com/zero-day-ai/cpuinfo/source"
	"github.com/zero-day-ai/cpuinfo/types"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a processor listing",
		Long: `Parse a processor listing and print it.

The listing is read from /proc/cpuinfo unless a file is given; "-" reads
standard input. A malformed listing is reported with the line, column and
field of the first error.`,
		Example: `  cpuinfo parse
  cpuinfo parse --format table
  cpuinfo parse --filter '"avx2" in flags && core_id == 0u' saved.txt
  ssh node-a cat /proc/cpuinfo | cpuinfo parse --format summary -`,
		Args: cobra.MaximumNArgs(1),
		RunE: parseHandler,
	}

	cmd.Flags().StringP("format", "f", formatJSON, "Output format: json, yaml, table or summary")
	cmd.Flags().String("filter", "", "CEL expression selecting processors")
	cmd.Flags().Bool("strict", false, "Reject a blank line after the last record")

	return cmd
}

func parseHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	expr, _ := cmd.Flags().GetString("filter")
	strict, _ := cmd.Flags().GetBool("strict")

	if err := validateFormat(format); err != nil {
		return err
	}

	var f *filter.Filter
	if expr != "" {
		var err error
		if f, err = filter.Compile(expr); err != nil {
			return err
		}
	}

	logger := newLogger(cmd, nil)

	src := source.Config{Path: source.DefaultPath, Stdin: cmd.InOrStdin()}
	if len(args) == 1 {
		src.Path = args[0]
	}

	res, err := source.Read(cmd.Context(), src)
	if err != nil {
		return err
	}

	opts := []cpuinfo.Option{cpuinfo.WithLogger(logger)}
	if !strict {
		opts = append(opts, cpuinfo.WithTrailingSeparator())
	}
	p, err := cpuinfo.New(opts...)
	if err != nil {
		return err
	}

	info, err := p.Parse(cmd.Context(), res.Text)
	if err != nil {
		return fmt.Errorf("%s: %w", res.Origin, err)
	}

	if f != nil {
		selected, err := f.Select(info)
		if err != nil {
			return err
		}
		info = &types.CPUInfo{Processors: selected}
	}

	return writeCPUInfo(cmd.OutOrStdout(), format, info)
}
