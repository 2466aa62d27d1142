package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/cpuinfotest"
	"github.com/zero-day-ai/cpuinfo/filter"
	"github.com/zero-day-ai/cpuinfo/types"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_JSON(t *testing.T) {
	path := writeFile(t, "cpuinfo", cpuinfotest.KernelListing(8))

	out, err := run(t, "", "parse", path)
	require.NoError(t, err)

	var info types.CPUInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, 8, info.Len())
	assert.Equal(t, cpuinfotest.Processor(7), info.Processors[7])
}

func TestParse_Stdin(t *testing.T) {
	out, err := run(t, cpuinfotest.KernelListing(8), "parse", "--format", "summary", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "GenuineIntel")
	assert.Regexp(t, `Threads:\s+8`, out)
	assert.Regexp(t, `Cores:\s+4`, out)
}

func TestParse_YAML(t *testing.T) {
	out, err := run(t, cpuinfotest.Listing(1), "parse", "-f", "yaml", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "vendor_id: GenuineIntel")
	assert.Contains(t, out, "cache_size: 8388608")
}

func TestParse_Table(t *testing.T) {
	out, err := run(t, cpuinfotest.Listing(2), "parse", "-f", "table", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "PROCESSOR")
	assert.Contains(t, lines[1], "8 MiB")
	assert.Contains(t, lines[2], "4000.000")
}

func TestParse_Filter(t *testing.T) {
	out, err := run(t, cpuinfotest.KernelListing(8), "parse", "--filter", "core_id == 1u", "-")
	require.NoError(t, err)

	var info types.CPUInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Len(t, info.Processors, 2)
	assert.Equal(t, uint32(1), info.Processors[0].Processor)
	assert.Equal(t, uint32(5), info.Processors[1].Processor)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		is      error
		wantErr string
	}{
		{
			name:  "strict rejects trailing blank line",
			stdin: cpuinfotest.KernelListing(1),
			args:  []string{"parse", "--strict", "-"},
			is:    cpuinfo.ErrMalformedInput,
		},
		{
			name:    "malformed listing",
			stdin:   "vendor_id\t: GenuineIntel\n",
			args:    []string{"parse", "-"},
			is:      cpuinfo.ErrMalformedInput,
			wantErr: "MALFORMED_FIELD",
		},
		{
			name:  "empty input",
			stdin: "",
			args:  []string{"parse", "-"},
			is:    cpuinfo.ErrMalformedInput,
		},
		{
			name:  "invalid filter",
			stdin: cpuinfotest.Listing(1),
			args:  []string{"parse", "--filter", "core_id", "-"},
			is:    filter.ErrInvalidExpression,
		},
		{
			name:    "unknown format",
			args:    []string{"parse", "--format", "xml", "-"},
			wantErr: "unknown format",
		},
		{
			name:    "missing file",
			args:    []string{"parse", filepath.Join(t.TempDir(), "missing")},
			wantErr: "open listing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	cfg := writeFile(t, "cpuinfo.yaml", "checks:\n  required_flags: [sse2]\n")
	good := writeFile(t, "good", cpuinfotest.KernelListing(4))
	bad := writeFile(t, "bad", cpuinfotest.Listing(2)[:100])

	out, err := run(t, "", "check", "--config", cfg, good)
	require.NoError(t, err)
	assert.Contains(t, out, "HEALTHY")

	out, err = run(t, "", "check", "--config", cfg, "--require-flag", "avx512f", good)
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, "avx512f")

	out, err = run(t, "", "check", "--config", cfg, "-f", "json", bad)
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, `"status": "unhealthy"`)
	assert.Contains(t, out, "MALFORMED_VALUE")

	out, err = run(t, "", "check", "--config", cfg, "--min-processors", "16", good)
	require.NoError(t, err, "degraded is not a failure")
	assert.Contains(t, out, "DEGRADED")
}

func TestCheck_BadConfig(t *testing.T) {
	cfg := writeFile(t, "cpuinfo.yaml", "logging:\n  format: xml\n")
	_, err := run(t, "", "check", "--config", cfg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUnhealthy)
}

func TestCollect_Once(t *testing.T) {
	listing := writeFile(t, "listing", cpuinfotest.KernelListing(8))
	cfg := writeFile(t, "cpuinfo.yaml", "host: node-a\nsource:\n  path: "+listing+"\n")

	out, err := run(t, "", "collect", "--config", cfg, "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "of node-a from "+listing)
	assert.Regexp(t, `Threads:\s+8`, out)
}

func TestCollect_OnceStrictFails(t *testing.T) {
	listing := writeFile(t, "listing", cpuinfotest.KernelListing(1))
	cfg := writeFile(t, "cpuinfo.yaml", "source:\n  path: "+listing+"\nparser:\n  strict: true\n")

	_, err := run(t, "", "collect", "--config", cfg, "--once")
	assert.ErrorIs(t, err, cpuinfo.ErrMalformedInput)
}

func TestHostsAndShow_RequireBackends(t *testing.T) {
	cfg := writeFile(t, "cpuinfo.yaml", "host: node-a\n")

	_, err := run(t, "", "hosts", "--config", cfg)
	assert.ErrorContains(t, err, "no etcd endpoints")

	_, err = run(t, "", "show", "--config", cfg, "node-a")
	assert.ErrorContains(t, err, "no redis url")
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1536 B"},
		{32 * 1024, "32 KiB"},
		{8192 * 1024, "8 MiB"},
		{1 << 30, "1 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.n))
	}
}

func TestAddresses(t *testing.T) {
	assert.Equal(t, "localhost:6379", redisAddress("redis://localhost:6379/0"))
	assert.Equal(t, "cache:6379", redisAddress("rediss://:secret@cache/1"))
	assert.Equal(t, "", redisAddress("::not a url"))

	assert.Equal(t, "etcd-1:2379", endpointAddress("etcd-1:2379"))
	assert.Equal(t, "etcd-1:2379", endpointAddress("https://etcd-1:2379"))
}

func TestCollect_OnceTraced(t *testing.T) {
	listing := writeFile(t, "listing", cpuinfotest.KernelListing(2))
	cfg := writeFile(t, "cpuinfo.yaml", "host: node-a\nsource:\n  path: "+listing+"\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"collect", "--config", cfg, "--once", "--trace", "--log-level", "debug"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "span=cpuinfo.parse")
	assert.Contains(t, errOut.String(), "attributes.cpuinfo.processors=2")
}
