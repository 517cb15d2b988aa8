// Package publish mirrors match snapshots into Redis so renderers running in
// other processes can follow a match.
package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/pkg/matchdto"
)

const defaultTTL = 10 * time.Minute

func EventsChannel(matchID string) string { return "match:" + strings.TrimSpace(matchID) + ":events" }
func SnapshotKey(matchID string) string   { return "match:" + strings.TrimSpace(matchID) + ":snapshot" }

// NewClient connects to REDIS_URL (redis:// or rediss://) and pings it.
func NewClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url required")
	}
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}

type Publisher struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type Option func(*Publisher)

func WithTTL(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.ttl = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(rdb *redis.Client, opts ...Option) *Publisher {
	p := &Publisher{rdb: rdb, ttl: defaultTTL, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish caches snap under its snapshot key and announces it on the events
// channel in one round trip.
func (p *Publisher) Publish(ctx context.Context, snap matchdto.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SnapshotKey(snap.ID), raw, p.ttl)
		pipe.Publish(ctx, EventsChannel(snap.ID), raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish snapshot %s v%d: %w", snap.ID, snap.Version, err)
	}
	return nil
}

// Latest returns the cached snapshot, or nil when none is cached.
func (p *Publisher) Latest(ctx context.Context, matchID string) (*matchdto.Snapshot, error) {
	raw, err := p.rdb.Get(ctx, SnapshotKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap matchdto.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *Publisher) Clear(ctx context.Context, matchID string) error {
	return p.rdb.Del(ctx, SnapshotKey(matchID)).Err()
}

// Run publishes every snapshot received on updates until the channel closes
// or ctx ends. Failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, updates <-chan matchdto.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := p.Publish(ctx, snap); err != nil {
				p.logger.Warn("snapshot publish failed", zap.String("match_id", snap.ID), zap.Error(err))
			}
		}
	}
}
