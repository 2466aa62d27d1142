package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/cpuinfo/types"
)

const (
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatTable   = "table"
	formatSummary = "summary"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatYAML, formatTable, formatSummary:
		return nil
	default:
		return fmt.Errorf("unknown format %q: want json, yaml, table or summary", format)
	}
}

// writeValue encodes v as JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCPUInfo(w io.Writer, format string, info *types.CPUInfo) error {
	switch format {
	case formatTable:
		writeProcessorTable(w, info)
		return nil
	case formatSummary:
		writeSummaryTable(w, info.Summary())
		return nil
	default:
		return writeValue(w, format, info)
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	return table
}

func writeProcessorTable(w io.Writer, info *types.CPUInfo) {
	var data [][]string
	for _, p := range info.Processors {
		data = append(data, []string{
			strconv.FormatUint(uint64(p.Processor), 10),
			strconv.FormatUint(uint64(p.PhysicalID), 10),
			strconv.FormatUint(uint64(p.CoreID), 10),
			strconv.FormatUint(uint64(p.APICID), 10),
			strconv.FormatFloat(p.CPUMHz, 'f', 3, 64),
			humanBytes(p.CacheSize),
			p.ModelName,
		})
	}

	table := newTable(w)
	table.SetHeader([]string{"PROCESSOR", "PACKAGE", "CORE", "APICID", "MHZ", "CACHE", "MODEL"})
	table.AppendBulk(data)
	table.Render()
}

func writeSummaryTable(w io.Writer, s types.Summary) {
	table := newTable(w)
	table.SetTablePadding(" ")
	table.AppendBulk([][]string{
		{"Vendor:", s.Vendor},
		{"Model:", s.ModelName},
		{"Packages:", strconv.Itoa(s.Packages)},
		{"Cores:", strconv.Itoa(s.PhysicalCores)},
		{"Threads:", strconv.Itoa(s.LogicalProcessors)},
		{"Max MHz:", strconv.FormatFloat(s.MaxMHz, 'f', 3, 64)},
		{"Flags:", strconv.Itoa(len(s.CommonFlags))},
	})
	table.Render()
}

func writeHealth(w io.Writer, format string, status types.HealthStatus) error {
	if format == formatJSON || format == formatYAML {
		return writeValue(w, format, status)
	}

	fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(status.Status), status.Message)
	if len(status.Details) == 0 {
		return nil
	}

	keys := make([]string, 0, len(status.Details))
	for k := range status.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable(w)
	table.SetTablePadding(" ")
	for _, k := range keys {
		table.Append([]string{"  " + k + ":", fmt.Sprint(status.Details[k])})
	}
	table.Render()
	return nil
}

// humanBytes formats n with a binary unit, as the kernel lists cache sizes.
func humanBytes(n uint64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return fmt.Sprintf("%d GiB", n>>30)
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
