// Package registry publishes host processor inventories to etcd.
//
// Every collector publishes one Entry per host under
// /<namespace>/cpuinfo/<host>. Entries are attached to an etcd lease that a
// background goroutine keeps alive, so a host disappears from the inventory
// when its collector stops or crashes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zero-day-ai/cpuinfo/types"
)

// ErrNotFound is returned by Lookup when no entry is published for a host.
var ErrNotFound = errors.New("registry entry not found")

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("registry client is closed")

// Entry is the published inventory of one host.
type Entry struct {
	// Host names the machine
	Host string `json:"host"`

	// InstanceID identifies the collector process that published the entry
	InstanceID string `json:"instance_id"`

	// SnapshotID is the ID of the snapshot the summary was computed from
	SnapshotID string `json:"snapshot_id,omitempty"`

	// Summary condenses the host's processor listing
	Summary types.Summary `json:"summary"`

	// PublishedAt is when the entry was last written
	PublishedAt time.Time `json:"published_at"`
}

// Registry publishes and discovers host inventories.
type Registry interface {
	// Publish writes entry under its host key, attached to a kept-alive lease.
	// Publishing the same host again replaces the entry and keeps the lease.
	Publish(ctx context.Context, entry Entry) error

	// Withdraw revokes the lease of host, deleting its entry. Withdrawing a
	// host that was never published is a no-op.
	Withdraw(ctx context.Context, host string) error

	// Lookup returns the entry of host, or ErrNotFound.
	Lookup(ctx context.Context, host string) (*Entry, error)

	// List returns every published entry, sorted by host.
	List(ctx context.Context) ([]Entry, error)

	// Watch emits the full entry list immediately and after every change,
	// until ctx is done or the registry is closed.
	Watch(ctx context.Context) (<-chan []Entry, error)

	// Close stops keepalives and releases the connection. Leases are left to
	// expire.
	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints (required)
	// Format: ["host1:2379", "host2:2379"]
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	// Namespace is the etcd key prefix.
	// Default: "cpuinfo"
	Namespace string `json:"namespace" yaml:"namespace"`

	// TTL is the lease time-to-live in seconds.
	// Default: 30
	TTL int `json:"ttl" yaml:"ttl"`

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration `json:"dial_timeout" yaml:"-"`

	// TLS enables mutual TLS when set and enabled
	TLS *TLSConfig `json:"tls" yaml:"tls"`
}

// withDefaults validates cfg and fills in defaults.
func (cfg Config) withDefaults() (Config, error) {
	if len(cfg.Endpoints) == 0 {
		return cfg, fmt.Errorf("registry endpoints cannot be empty")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "cpuinfo"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return cfg, nil
}

// TLSConfig holds TLS certificate configuration for etcd communication.
type TLSConfig struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CertFile is the client certificate (PEM)
	CertFile string `json:"cert_file" yaml:"cert_file"`

	// KeyFile is the client private key (PEM)
	KeyFile string `json:"key_file" yaml:"key_file"`

	// CAFile verifies the etcd server certificate (PEM)
	CAFile string `json:"ca_file" yaml:"ca_file"`
}
