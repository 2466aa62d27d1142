// Package snapshot stores parsed cpuinfo listings per host in Redis.
//
// Each host keeps its latest snapshot, optionally with a bounded history,
// and every save is announced on a pub/sub channel so that dashboards can
// follow inventory changes.
//
// # Redis Key Schema
//
//   - <prefix>:snapshot:<host> - String with the latest snapshot (JSON, optional TTL)
//   - <prefix>:history:<host> - List of past snapshots, newest first
//   - <prefix>:hosts - Set of hosts with a stored snapshot
//   - <prefix>:updates - Pub/Sub channel of Update messages
//
// # Usage
//
//	store, err := snapshot.NewRedisStore(snapshot.RedisOptions{
//		URL:          "redis://localhost:6379",
//		TTL:          24 * time.Hour,
//		HistoryLimit: 10,
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	if err := store.Save(ctx, snapshot.New(host, res.Origin, info)); err != nil {
//		return err
//	}
//
//	latest, err := store.Latest(ctx, host)
//	if errors.Is(err, snapshot.ErrNotFound) {
//		// never collected, or expired
//	}
package snapshot
