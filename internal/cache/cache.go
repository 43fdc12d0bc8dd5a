package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmledger/internal/log"
)

// Cache defines a generic cache interface. Misses and backend failures both
// report false; a cache is never the source of truth.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	Delete(ctx context.Context, key string)
}

// Config selects a cache backend.
type Config struct {
	Backend  string // "lru" or "redis"
	RedisURL string
	TTL      time.Duration
	MaxSize  int
	Prefix   string
	Logger   *log.Logger
}

// New builds the configured cache. The returned Cleaner is non-nil for
// backends that need periodic cleanup and should be registered with a
// Manager; close releases backend connections.
func New[T any](cfg Config) (Cache[T], Cleaner, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "lru":
		size := cfg.MaxSize
		if size <= 0 {
			size = 64
		}
		lru := NewLRUCache[T](size, cfg.TTL)
		return lru, lru, func() error { return nil }, nil
	case "redis":
		rc, err := NewRedisCache[T](cfg.RedisURL, cfg.Prefix, cfg.TTL, cfg.Logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return rc, nil, rc.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup. Nil cleaners are ignored.
func (m *Manager) Register(c Cleaner) {
	if c != nil {
		m.caches = append(m.caches, c)
	}
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
}
