package collector

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/cpuinfotest"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
	"github.com/zero-day-ai/cpuinfo/source"
)

type memStore struct {
	mu    sync.Mutex
	saved []*snapshot.Snapshot
	err   error
}

func (m *memStore) Save(_ context.Context, snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memStore) Latest(_ context.Context, host string) (*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Host == host {
			return m.saved[i], nil
		}
	}
	return nil, snapshot.ErrNotFound
}

func (m *memStore) History(context.Context, string, int) ([]*snapshot.Snapshot, error) {
	return nil, nil
}

func (m *memStore) Hosts(context.Context) ([]string, error) { return nil, nil }

func (m *memStore) Delete(context.Context, string) error { return nil }

func (m *memStore) Subscribe(context.Context) (<-chan snapshot.Update, error) {
	return nil, errors.New("not supported")
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type memRegistry struct {
	mu        sync.Mutex
	entries   map[string]registry.Entry
	withdrawn []string
}

func newMemRegistry() *memRegistry {
	return &memRegistry{entries: make(map[string]registry.Entry)}
}

func (m *memRegistry) Publish(_ context.Context, entry registry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Host] = entry
	return nil
}

func (m *memRegistry) Withdraw(_ context.Context, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, host)
	m.withdrawn = append(m.withdrawn, host)
	return nil
}

func (m *memRegistry) Lookup(_ context.Context, host string) (*registry.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[host]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return &e, nil
}

func (m *memRegistry) List(context.Context) ([]registry.Entry, error) { return nil, nil }

func (m *memRegistry) Watch(context.Context) (<-chan []registry.Entry, error) {
	return nil, errors.New("not supported")
}

func (m *memRegistry) Close() error { return nil }

func writeListing(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cpuinfo")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func quietLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// healthClient serves c over an in-memory listener and returns a client for
// its health service.
func healthClient(t *testing.T, c *Collector) grpc_health_v1.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = c.Serve(lis) }()
	t.Cleanup(c.GRPCServer().Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return grpc_health_v1.NewHealthClient(conn)
}

func servingStatus(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.NotEmpty(t, cfg.Host)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.GracefulTimeout)

	cfg = Config{Host: "node-a", Interval: time.Second, GracefulTimeout: time.Second}.withDefaults()
	assert.Equal(t, "node-a", cfg.Host)
	assert.Equal(t, time.Second, cfg.Interval)
}

func TestNew_BadTLS(t *testing.T) {
	_, err := New(Config{TLSCertFile: "missing.pem", TLSKeyFile: "missing.pem"})
	assert.ErrorContains(t, err, "TLS")
}

func TestRunOnce_Pipeline(t *testing.T) {
	store := &memStore{}
	reg := newMemRegistry()
	logger, logs := quietLogger()

	c, err := New(Config{
		Host:   "node-a",
		Source: source.Config{Path: writeListing(t, cpuinfotest.KernelListing(8))},
	}, WithStore(store), WithRegistry(reg), WithLogger(logger))
	require.NoError(t, err)

	client := healthClient(t, c)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, servingStatus(t, client, ServiceName))
	assert.True(t, c.Status().IsDegraded())

	snap, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "node-a", snap.Host)
	assert.Equal(t, 8, snap.CPUInfo.Len())
	assert.NoError(t, snap.Validate())

	latest, err := store.Latest(context.Background(), "node-a")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)

	entry, err := reg.Lookup(context.Background(), "node-a")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, entry.SnapshotID)
	assert.Equal(t, 8, entry.Summary.LogicalProcessors)
	assert.Equal(t, 4, entry.Summary.PhysicalCores)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, client, ServiceName))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, client, ""))
	assert.True(t, c.Status().IsHealthy())
	assert.Contains(t, logs.String(), "cpuinfo collected")
}

func TestRunOnce_MalformedListing(t *testing.T) {
	store := &memStore{}
	reg := newMemRegistry()
	logger, logs := quietLogger()

	path := writeListing(t, cpuinfotest.KernelListing(2))

	c, err := New(Config{Host: "node-a", Source: source.Config{Path: path}},
		WithStore(store), WithRegistry(reg), WithLogger(logger))
	require.NoError(t, err)
	client := healthClient(t, c)

	_, err = c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, client, ServiceName))

	require.NoError(t, os.WriteFile(path, []byte("vendor_id\t: GenuineIntel\n"), 0o644))

	snap, err := c.RunOnce(context.Background())
	assert.Nil(t, snap)
	require.ErrorIs(t, err, cpuinfo.ErrMalformedInput)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, servingStatus(t, client, ServiceName))
	status := c.Status()
	require.True(t, status.IsUnhealthy())
	assert.Equal(t, "MALFORMED_FIELD", status.Details["code"])
	assert.Equal(t, 1, status.Details["failures"])

	assert.Equal(t, 1, store.count(), "a rejected listing is not saved")
	assert.Contains(t, logs.String(), "cpuinfo collection failed")
}

func TestRunOnce_StrictParser(t *testing.T) {
	p, err := cpuinfo.New()
	require.NoError(t, err)

	c, err := New(Config{
		Host:   "node-a",
		Source: source.Config{Path: writeListing(t, cpuinfotest.KernelListing(1))},
	}, WithParser(p), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, err)

	_, err = c.RunOnce(context.Background())
	assert.ErrorIs(t, err, cpuinfo.ErrMalformedInput, "strict parser rejects the trailing blank line")
}

func TestRunOnce_SourceError(t *testing.T) {
	logger, _ := quietLogger()
	c, err := New(Config{
		Host:   "node-a",
		Source: source.Config{Path: filepath.Join(t.TempDir(), "missing")},
	}, WithLogger(logger))
	require.NoError(t, err)

	_, err = c.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read source")
	assert.True(t, c.Status().IsUnhealthy())
}

func TestRunOnce_StoreError(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	reg := newMemRegistry()
	logger, _ := quietLogger()

	c, err := New(Config{
		Host:   "node-a",
		Source: source.Config{Path: writeListing(t, cpuinfotest.KernelListing(1))},
	}, WithStore(store), WithRegistry(reg), WithLogger(logger))
	require.NoError(t, err)

	_, err = c.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")

	_, err = reg.Lookup(context.Background(), "node-a")
	assert.ErrorIs(t, err, registry.ErrNotFound, "nothing is published when saving fails")
}

func TestRun_UntilCancelled(t *testing.T) {
	store := &memStore{}
	logger, _ := quietLogger()

	c, err := New(Config{
		Host:   "node-a",
		Source: source.Config{Path: writeListing(t, cpuinfotest.KernelListing(2))},
	}, WithStore(store), WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return store.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdown_Withdraws(t *testing.T) {
	reg := newMemRegistry()
	logger, _ := quietLogger()

	c, err := New(Config{
		Host:            "node-a",
		Source:          source.Config{Path: writeListing(t, cpuinfotest.KernelListing(1))},
		GracefulTimeout: time.Second,
	}, WithRegistry(reg), WithLogger(logger))
	require.NoError(t, err)
	client := healthClient(t, c)

	_, err = c.RunOnce(context.Background())
	require.NoError(t, err)

	// Query before shutdown closes the connection
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, client, ServiceName))

	require.NoError(t, c.Shutdown(context.Background()))
	assert.Equal(t, []string{"node-a"}, reg.withdrawn)

	_, err = reg.Lookup(context.Background(), "node-a")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestShutdown_NothingPublished(t *testing.T) {
	reg := newMemRegistry()
	logger, _ := quietLogger()

	c, err := New(Config{Host: "node-a"}, WithRegistry(reg), WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, c.Shutdown(context.Background()))
	assert.Empty(t, reg.withdrawn)
}
