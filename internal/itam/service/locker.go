package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PlanLocker 计划级互斥锁
// Execute前获取，任何退出路径都必须调用返回的release；
// 获取失败立即返回false（fail-fast），不阻塞等待
type PlanLocker interface {
	TryLock(ctx context.Context, planID string) (release func(), acquired bool, err error)
}

// =============================================================================
// RedisLocker — 基于redis SET NX的租约锁，多实例部署安全
// =============================================================================

const (
	lockKeyPrefix = "itam:decomp:exec:"
	lockTTL       = 10 * time.Minute
)

// 仅当锁仍由本次执行持有时删除，避免误释放他人续租的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker redis租约锁
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker 创建redis租约锁
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// TryLock 尝试获取计划执行锁
func (l *RedisLocker) TryLock(ctx context.Context, planID string) (func(), bool, error) {
	key := lockKeyPrefix + planID
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// 释放用独立的短超时context，执行超时不能连带泄漏锁
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		unlockScript.Run(releaseCtx, l.rdb, []string{key}, token)
	}
	return release, true, nil
}

// =============================================================================
// MemoryLocker — 进程内锁，单实例部署和测试用
// =============================================================================

// MemoryLocker 进程内计划锁
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker 创建进程内计划锁
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

// TryLock 尝试获取计划执行锁
func (l *MemoryLocker) TryLock(_ context.Context, planID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[planID] {
		return nil, false, nil
	}
	l.held[planID] = true

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, planID)
	}
	return release, true, nil
}
