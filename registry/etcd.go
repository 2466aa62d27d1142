package registry

import (
	"context"
	"errors"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// leaseID identifies an etcd lease.
type leaseID = clientv3.LeaseID

// backend is the subset of etcd the Client relies on.
type backend interface {
	grant(ctx context.Context, ttl int64) (leaseID, error)
	put(ctx context.Context, key, value string, lease leaseID) error
	get(ctx context.Context, key string) ([]byte, bool, error)
	getPrefix(ctx context.Context, prefix string) ([][]byte, error)
	revoke(ctx context.Context, lease leaseID) error
	keepAliveOnce(ctx context.Context, lease leaseID) error

	// watchPrefix signals every change under prefix. The channel closes when
	// ctx is done or the watch fails.
	watchPrefix(ctx context.Context, prefix string) <-chan struct{}

	close() error
}

// errLeaseNotFound is returned by keepAliveOnce when the lease expired.
var errLeaseNotFound = errors.New("lease not found")

type etcdBackend struct {
	client *clientv3.Client
}

func dialEtcd(cfg Config) (*etcdBackend, error) {
	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}

	tlsConfig, err := clientTLS(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConfig

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Verify connectivity with a quick read
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &etcdBackend{client: cli}, nil
}

func (b *etcdBackend) grant(ctx context.Context, ttl int64) (leaseID, error) {
	resp, err := b.client.Grant(ctx, ttl)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (b *etcdBackend) put(ctx context.Context, key, value string, lease leaseID) error {
	_, err := b.client.Put(ctx, key, value, clientv3.WithLease(lease))
	return err
}

func (b *etcdBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := b.client.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

func (b *etcdBackend) getPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	resp, err := b.client.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	return values, nil
}

func (b *etcdBackend) revoke(ctx context.Context, lease leaseID) error {
	_, err := b.client.Revoke(ctx, lease)
	return err
}

func (b *etcdBackend) keepAliveOnce(ctx context.Context, lease leaseID) error {
	_, err := b.client.KeepAliveOnce(ctx, lease)
	if err != nil {
		return fmt.Errorf("%w: %v", errLeaseNotFound, err)
	}
	return nil
}

func (b *etcdBackend) watchPrefix(ctx context.Context, prefix string) <-chan struct{} {
	changes := make(chan struct{}, 1)
	watchChan := b.client.Watch(ctx, prefix, clientv3.WithPrefix())

	go func() {
		defer close(changes)
		for resp := range watchChan {
			if resp.Err() != nil {
				return
			}
			select {
			case changes <- struct{}{}:
			default:
				// A change is already pending
			}
		}
	}()

	return changes
}

func (b *etcdBackend) close() error {
	return b.client.Close()
}
