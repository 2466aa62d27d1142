package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client implements Registry on etcd.
//
// Each published host gets its own lease, renewed every TTL/3 by a
// background goroutine. Re-publishing a host reuses its lease.
//
// Example usage:
//
//	client, err := registry.NewClient(registry.Config{
//	    Endpoints: []string{"localhost:2379"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, registry.Entry{Host: host, Summary: info.Summary()})
//
// Thread-safety: All methods are safe for concurrent use.
type Client struct {
	backend    backend
	namespace  string
	ttl        int
	instanceID string
	logger     *slog.Logger

	// keepaliveInterval defaults to TTL/3
	keepaliveInterval time.Duration

	mu         sync.RWMutex
	leases     map[string]leaseID // key: host
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	closedChan chan struct{}
}

// NewClient connects to etcd and verifies connectivity.
// The client must be closed with Close to stop keepalive goroutines.
func NewClient(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	b, err := dialEtcd(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(b, cfg, slog.Default()), nil
}

func newClient(b backend, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		backend:           b,
		namespace:         cfg.Namespace,
		ttl:               cfg.TTL,
		instanceID:        uuid.NewString(),
		logger:            logger,
		keepaliveInterval: time.Duration(cfg.TTL) * time.Second / 3,
		leases:            make(map[string]leaseID),
		cancelFns:         make(map[string]context.CancelFunc),
		closedChan:        make(chan struct{}),
	}
}

// WithLogger replaces the client's logger and returns the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// InstanceID identifies this client in published entries.
func (c *Client) InstanceID() string {
	return c.instanceID
}

// Publish writes entry under its host key. InstanceID and PublishedAt are
// filled in when empty.
func (c *Client) Publish(ctx context.Context, entry Entry) error {
	if entry.Host == "" {
		return fmt.Errorf("entry host is required")
	}
	if entry.InstanceID == "" {
		entry.InstanceID = c.instanceID
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	key := c.buildKey(entry.Host)

	if lease, ok := c.leases[entry.Host]; ok {
		if err := c.backend.put(ctx, key, string(data), lease); err == nil {
			return nil
		}
		// The lease may have expired; start over with a new one
		c.stopKeepalive(entry.Host)
	}

	lease, err := c.backend.grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	if err := c.backend.put(ctx, key, string(data), lease); err != nil {
		return fmt.Errorf("failed to publish host %s: %w", entry.Host, err)
	}

	c.leases[entry.Host] = lease
	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[entry.Host] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, lease, entry.Host)

	return nil
}

// Withdraw revokes the lease of host, deleting its entry.
func (c *Client) Withdraw(ctx context.Context, host string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	lease, ok := c.leases[host]
	c.stopKeepalive(host)
	if !ok {
		return nil
	}

	if err := c.backend.revoke(ctx, lease); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}

// Lookup returns the published entry of host.
func (c *Client) Lookup(ctx context.Context, host string) (*Entry, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	data, ok, err := c.backend.get(ctx, c.buildKey(host))
	if err != nil {
		return nil, fmt.Errorf("failed to look up host %s: %w", host, err)
	}
	if !ok {
		return nil, fmt.Errorf("host %s: %w", host, ErrNotFound)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// List returns every published entry, sorted by host.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	values, err := c.backend.getPrefix(ctx, c.prefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			// Skip invalid entries
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Host < entries[j].Host })
	return entries, nil
}

// Watch emits the entry list immediately and after every change.
func (c *Client) Watch(ctx context.Context) (<-chan []Entry, error) {
	initial, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	ch := make(chan []Entry, 1)
	ch <- initial

	changes := c.backend.watchPrefix(ctx, c.prefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case _, ok := <-changes:
				if !ok {
					return
				}

				entries, err := c.List(ctx)
				if err != nil {
					// Skip this update if we can't query
					continue
				}

				select {
				case ch <- entries:
				case <-ctx.Done():
					return
				case <-c.closedChan:
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close stops keepalives and watches and closes the etcd connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)

	close(c.closedChan)
	c.mu.Unlock()

	c.wg.Wait()

	return c.backend.close()
}

// stopKeepalive cancels the keepalive of host and forgets its lease.
// c.mu must be held.
func (c *Client) stopKeepalive(host string) {
	if cancel, ok := c.cancelFns[host]; ok {
		cancel()
		delete(c.cancelFns, host)
	}
	delete(c.leases, host)
}

// keepalive renews lease until ctx is cancelled or the lease is lost.
func (c *Client) keepalive(ctx context.Context, lease leaseID, host string) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			if err := c.backend.keepAliveOnce(ctx, lease); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("registry lease lost", "host", host, "error", err)
				c.mu.Lock()
				if c.leases[host] == lease {
					delete(c.leases, host)
					delete(c.cancelFns, host)
				}
				c.mu.Unlock()
				return
			}
		}
	}
}

func (c *Client) prefix() string {
	return fmt.Sprintf("/%s/cpuinfo/", c.namespace)
}

// buildKey constructs the etcd key of a host: /namespace/cpuinfo/host
func (c *Client) buildKey(host string) string {
	return c.prefix() + host
}
