// internal/services/lock_manager.go
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// LockManager 按项目ID分配读写锁
type LockManager struct {
	locks      map[string]*LockInfo
	globalLock sync.Mutex
	lockTTL    time.Duration
	maxLocks   int
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex          sync.RWMutex
	LastUsed       time.Time
	ReferenceCount int32 // 当前锁被引用的次数，用于防止在使用时被清理
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{
		locks:    make(map[string]*LockInfo),
		lockTTL:  30 * time.Minute,
		maxLocks: 200,
	}
}

// acquire 取得锁信息并增加引用计数
func (lm *LockManager) acquire(id string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.locks[id]
	if !exists {
		info = &LockInfo{}
		lm.locks[id] = info
		lm.cleanupUnusedLocks(id)
	}
	info.LastUsed = time.Now()
	atomic.AddInt32(&info.ReferenceCount, 1)
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
	atomic.AddInt32(&info.ReferenceCount, -1)
}

// ExecuteWithLock 在项目写锁保护下执行操作
func (lm *LockManager) ExecuteWithLock(id string, fn func() error) error {
	info := lm.acquire(id)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithReadLock 在项目读锁保护下执行操作
func (lm *LockManager) ExecuteWithReadLock(id string, fn func() error) error {
	info := lm.acquire(id)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// Len 当前持有的锁数量
func (lm *LockManager) Len() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.locks)
}

// cleanupUnusedLocks 锁数量过多时清理长时间未使用且无引用的锁，调用方需持有 globalLock
func (lm *LockManager) cleanupUnusedLocks(keep string) {
	if len(lm.locks) <= lm.maxLocks {
		return
	}

	now := time.Now()
	for id, info := range lm.locks {
		if id == keep || atomic.LoadInt32(&info.ReferenceCount) > 0 {
			continue
		}
		if now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.locks, id)
		}
	}
}
