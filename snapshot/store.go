package snapshot

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists snapshots per host.
type Store interface {
	// Save stores snap as the latest snapshot of its host.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot of host, or ErrNotFound.
	Latest(ctx context.Context, host string) (*Snapshot, error)

	// History returns up to limit past snapshots of host, newest first.
	History(ctx context.Context, host string, limit int) ([]*Snapshot, error)

	// Hosts returns the hosts with stored snapshots, sorted.
	Hosts(ctx context.Context) ([]string, error)

	// Delete removes every snapshot of host.
	Delete(ctx context.Context, host string) error

	// Subscribe streams an Update for every Save until ctx is done.
	Subscribe(ctx context.Context) (<-chan Update, error)

	// Close closes the underlying connection.
	Close() error
}

// RedisOptions configures the Redis connection and key layout.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// Prefix namespaces every key. Default: "cpuinfo"
	Prefix string

	// TTL expires the latest snapshot of a host. Zero keeps it forever.
	TTL time.Duration

	// HistoryLimit is the number of past snapshots kept per host.
	// Zero disables history.
	HistoryLimit int

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisStore implements Store on Redis with the following keys:
//   - <prefix>:snapshot:<host> - String holding the latest snapshot as JSON
//   - <prefix>:history:<host> - List of past snapshots, newest first
//   - <prefix>:hosts - Set of hosts with a stored snapshot
//   - <prefix>:updates - Pub/Sub channel announcing saved snapshots
type RedisStore struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	historyLimit int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "cpuinfo"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.TTL < 0 || opts.HistoryLimit < 0 {
		return nil, errors.New("ttl and history limit must not be negative")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:       client,
		prefix:       opts.Prefix,
		ttl:          opts.TTL,
		historyLimit: opts.HistoryLimit,
	}, nil
}

func (s *RedisStore) key(parts ...string) string {
	return strings.Join(append([]string{s.prefix}, parts...), ":")
}

// Save stores snap as the latest snapshot of its host, records it in the
// host's history and announces it on the updates channel.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("snapshot", snap.Host), data, s.ttl)
		pipe.SAdd(ctx, s.key("hosts"), snap.Host)
		if s.historyLimit > 0 {
			historyKey := s.key("history", snap.Host)
			pipe.LPush(ctx, historyKey, data)
			pipe.LTrim(ctx, historyKey, 0, int64(s.historyLimit-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot for host %s: %w", snap.Host, err)
	}

	update, err := json.Marshal(Update{
		ID:          snap.ID,
		Host:        snap.Host,
		CollectedAt: snap.CollectedAt,
		Processors:  snap.CPUInfo.Len(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	if err := s.client.Publish(ctx, s.key("updates"), update).Err(); err != nil {
		return fmt.Errorf("failed to publish update for host %s: %w", snap.Host, err)
	}

	return nil
}

// Latest returns the most recent snapshot of host.
func (s *RedisStore) Latest(ctx context.Context, host string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key("snapshot", host)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("host %s: %w", host, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot for host %s: %w", host, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// History returns up to limit past snapshots of host, newest first. A limit
// of zero or less returns all kept snapshots.
func (s *RedisStore) History(ctx context.Context, host string, limit int) ([]*Snapshot, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	entries, err := s.client.LRange(ctx, s.key("history", host), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history for host %s: %w", host, err)
	}

	snaps := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		var snap Snapshot
		if err := json.Unmarshal([]byte(entry), &snap); err != nil {
			// Skip entries that no longer decode
			continue
		}
		snaps = append(snaps, &snap)
	}
	return snaps, nil
}

// Hosts returns the hosts with stored snapshots, sorted. Hosts whose latest
// snapshot expired are pruned from the set.
func (s *RedisStore) Hosts(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key("hosts")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}

	hosts := make([]string, 0, len(members))
	for _, host := range members {
		n, err := s.client.Exists(ctx, s.key("snapshot", host)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check snapshot for host %s: %w", host, err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.key("hosts"), host)
			continue
		}
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts, nil
}

// Delete removes the latest snapshot and history of host.
func (s *RedisStore) Delete(ctx context.Context, host string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key("snapshot", host), s.key("history", host))
		pipe.SRem(ctx, s.key("hosts"), host)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshots for host %s: %w", host, err)
	}
	return nil
}

// Subscribe streams an Update for every snapshot saved after the call
// returns. The channel closes when ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Update, error) {
	pubsub := s.client.Subscribe(ctx, s.key("updates"))

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to updates: %w", err)
	}

	updates := make(chan Update)

	go func() {
		defer close(updates)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var update Update
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					continue
				}

				select {
				case updates <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
