package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-console/config"
	"github.com/target/mmk-console/internal/adapters/memory"
	"github.com/target/mmk-console/internal/adapters/postgres"
	redisadapter "github.com/target/mmk-console/internal/adapters/redis"
	"github.com/target/mmk-console/internal/adapters/sqlite"
	"github.com/target/mmk-console/internal/ports"
)

// StoreConfig contains configuration for the session store.
type StoreConfig struct {
	Store  config.StoreConfig
	Logger *slog.Logger
}

// Store is an opened session store and the function that releases it.
type Store struct {
	ports.TokenStore
	Close func() error
}

func noopClose() error { return nil }

// OpenStore opens the configured session store backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store

	switch sc.Backend {
	case config.StoreBackendMemory:
		logger.Warn("memory session store selected; sessions do not survive a restart")
		return Store{TokenStore: memory.NewTokenStore(), Close: noopClose}, nil

	case config.StoreBackendRedis:
		client, err := ConnectRedis(ctx, sc.Redis, logger)
		if err != nil {
			return Store{}, err
		}
		ts := redisadapter.NewTokenStore(client, redisadapter.TokenStoreOptions{Scope: sc.Scope, TTL: sc.Redis.TTL})
		return Store{TokenStore: ts, Close: client.Close}, nil

	case config.StoreBackendSQLite, "":
		ts, err := sqlite.Open(ctx, sc.SQLitePath, sc.Scope)
		if err != nil {
			return Store{}, err
		}
		logger.Info("sqlite session store opened", "path", sc.SQLitePath)
		return Store{TokenStore: ts, Close: ts.Close}, nil

	case config.StoreBackendPostgres:
		ts, err := postgres.Open(ctx, postgres.Options{
			DSN:    sc.Postgres.ConnString(),
			Scope:  sc.Scope,
			Logger: logger,
		})
		if err != nil {
			return Store{}, err
		}
		logger.Info("postgres session store opened", "host", sc.Postgres.Host, "database", sc.Postgres.Name)
		return Store{TokenStore: ts, Close: ts.Close}, nil

	default:
		return Store{}, fmt.Errorf("unsupported store backend %q", sc.Backend)
	}
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	var (
		client   redis.UniversalClient
		addrDesc string
		err      error
	)

	switch {
	case cfg.UseCluster:
		client, addrDesc, err = newClusterClient(cfg)
	case cfg.UseSentinel:
		client, addrDesc, err = newSentinelClient(cfg)
	default:
		client, addrDesc, err = newDirectClient(cfg)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", redactAddr(addrDesc))
	}
	return client, nil
}

// redactAddr strips credentials from a Redis address before it is logged.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	addrs := normalizeAddrs(cfg.ClusterNodes)
	opts := &redis.ClusterOptions{Password: cfg.Password}

	if len(addrs) == 0 {
		fb, err := clusterFallbackFromURI(cfg.URI, cfg.Password)
		if err != nil {
			return nil, "", err
		}
		if fb.addr != "" {
			addrs = []string{fb.addr}
			opts.Username = fb.username
			opts.Password = fb.password
			opts.TLSConfig = fb.tls
		}
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}
	opts.Addrs = addrs

	return redis.NewClusterClient(opts), "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	nodes := normalizeAddrs(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    nodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), opt.Addr, nil
	}

	return redis.NewClient(&redis.Options{Addr: uri, Password: cfg.Password}), uri, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

type clusterFallback struct {
	addr     string
	username string
	password string
	tls      *tls.Config
}

func clusterFallbackFromURI(uri, defaultPassword string) (clusterFallback, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" || !isRedisURL(trimmed) {
		return clusterFallback{addr: trimmed, password: defaultPassword}, nil
	}

	opt, err := redis.ParseURL(trimmed)
	if err != nil {
		return clusterFallback{}, fmt.Errorf("parse redis cluster url: %w", err)
	}
	fb := clusterFallback{addr: opt.Addr, username: opt.Username, password: defaultPassword, tls: opt.TLSConfig}
	if opt.Password != "" {
		fb.password = opt.Password
	}
	return fb, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
