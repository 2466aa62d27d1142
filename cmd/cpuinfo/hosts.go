package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
)

func newHostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List hosts published to the registry",
		Args:  cobra.NoArgs,
		RunE:  hostsHandler,
	}

	cmd.Flags().StringP("config", "c", "", "Path to cpuinfo.yaml or its directory")
	cmd.Flags().StringP("format", "f", formatTable, "Output format: table, json or yaml")

	return cmd
}

func hostsHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	format, _ := cmd.Flags().GetString("format")

	if format != formatTable && format != formatJSON && format != formatYAML {
		return fmt.Errorf("unknown format %q: want table, json or yaml", format)
	}
	if !cfg.Etcd.Enabled() {
		return errors.New("no etcd endpoints configured")
	}

	client, err := registry.NewClient(cfg.Etcd.RegistryConfig())
	if err != nil {
		return err
	}
	defer cpuinfo.CloseWithLog(client, logger, "registry")

	entries, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	if format != formatTable {
		return writeValue(cmd.OutOrStdout(), format, entries)
	}

	var data [][]string
	for _, e := range entries {
		data = append(data, []string{
			e.Host,
			e.Summary.ModelName,
			strconv.Itoa(e.Summary.Packages),
			strconv.Itoa(e.Summary.PhysicalCores),
			strconv.Itoa(e.Summary.LogicalProcessors),
			e.PublishedAt.Local().Format(time.DateTime),
		})
	}

	table := newTable(cmd.OutOrStdout())
	table.SetHeader([]string{"HOST", "MODEL", "PACKAGES", "CORES", "THREADS", "PUBLISHED"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <host>",
		Short: "Print the latest stored snapshot of a host",
		Args:  cobra.ExactArgs(1),
		RunE:  showHandler,
	}

	cmd.Flags().StringP("config", "c", "", "Path to cpuinfo.yaml or its directory")
	cmd.Flags().StringP("format", "f", formatSummary, "Output format: json, yaml, table or summary")
	cmd.Flags().Int("history", 0, "Also list up to this many past snapshots")

	return cmd
}

func showHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	format, _ := cmd.Flags().GetString("format")
	history, _ := cmd.Flags().GetInt("history")

	if err := validateFormat(format); err != nil {
		return err
	}
	if !cfg.Redis.Enabled() {
		return errors.New("no redis url configured")
	}

	store, err := snapshot.NewRedisStore(cfg.Redis.Options())
	if err != nil {
		return err
	}
	defer cpuinfo.CloseWithLog(store, logger, "snapshot store")

	host := args[0]
	snap, err := store.Latest(cmd.Context(), host)
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("no snapshot stored for %s", host)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatJSON || format == formatYAML {
		if err := writeValue(out, format, snap); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Snapshot %s collected %s from %s\n", snap.ID, snap.CollectedAt.Local().Format(time.DateTime), snap.Origin)
		if err := writeCPUInfo(out, format, snap.CPUInfo); err != nil {
			return err
		}
	}

	if history <= 0 {
		return nil
	}

	past, err := store.History(cmd.Context(), host, history)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	var data [][]string
	for _, s := range past {
		data = append(data, []string{s.ID, s.CollectedAt.Local().Format(time.DateTime), strconv.Itoa(s.CPUInfo.Len())})
	}
	table := newTable(out)
	table.SetHeader([]string{"SNAPSHOT", "COLLECTED", "PROCESSORS"})
	table.AppendBulk(data)
	table.Render()
	return nil
}
