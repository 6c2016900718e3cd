package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper 告警去重（按消息 ID）
type Deduper interface {
	// IsDuplicate key 在窗口内出现过返回 true；否则记录并返回 false
	IsDuplicate(ctx context.Context, key string) (bool, error)
}

// MemoryDedup 进程内 TTL 去重，重启后失效
type MemoryDedup struct {
	seen map[string]time.Time
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

// NewMemoryDedup 创建进程内去重
func NewMemoryDedup(ttl time.Duration) *MemoryDedup {
	return &MemoryDedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *MemoryDedup) IsDuplicate(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if lastSeen, ok := d.seen[key]; ok && now.Sub(lastSeen) < d.ttl {
		return true, nil
	}
	d.seen[key] = now
	return false, nil
}

// Cleanup 清理过期记录，每个轮询周期调用一次
func (d *MemoryDedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, key)
		}
	}
}

// Len 当前记录数
func (d *MemoryDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// RedisDedup 基于 Redis SETNX 的去重，重启后仍然有效
type RedisDedup struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisDedup 创建 Redis 去重
func NewRedisDedup(rdb redis.UniversalClient, ttl time.Duration) *RedisDedup {
	return &RedisDedup{rdb: rdb, ttl: ttl, prefix: "tvbridge:alert:"}
}

func (d *RedisDedup) IsDuplicate(ctx context.Context, key string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// ExecutionLookup 执行记录查询（config.Database 实现）
type ExecutionLookup interface {
	ExecutionExists(alertID string, since time.Time) (bool, error)
}

// LedgerDedup 以执行记录库为准的去重，重启后仍然有效
// 记录在处理完成后才写入，进程内先用 MemoryDedup 挡住同一轮里的重复
type LedgerDedup struct {
	ledger ExecutionLookup
	mem    *MemoryDedup
}

// NewLedgerDedup 创建执行记录库去重
func NewLedgerDedup(ledger ExecutionLookup, ttl time.Duration) *LedgerDedup {
	return &LedgerDedup{ledger: ledger, mem: NewMemoryDedup(ttl)}
}

func (d *LedgerDedup) IsDuplicate(ctx context.Context, key string) (bool, error) {
	if dup, _ := d.mem.IsDuplicate(ctx, key); dup {
		return true, nil
	}
	exists, err := d.ledger.ExecutionExists(key, d.mem.now().Add(-d.mem.ttl))
	if err != nil {
		return false, fmt.Errorf("查询执行记录失败: %w", err)
	}
	return exists, nil
}

// Cleanup 清理进程内缓存
func (d *LedgerDedup) Cleanup() {
	d.mem.Cleanup()
}
