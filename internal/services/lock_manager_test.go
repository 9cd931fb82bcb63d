package services

import (
	"sync"
	"testing"
	"time"
)

func TestLockManagerSerializesWriters(t *testing.T) {
	lm := NewLockManager()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.ExecuteWithLock("p1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("写锁未串行化: counter = %d", counter)
	}
}

func TestLockManagerCleanup(t *testing.T) {
	lm := NewLockManager()
	lm.maxLocks = 2
	lm.lockTTL = 0

	for _, id := range []string{"a", "b", "c"} {
		lm.ExecuteWithReadLock(id, func() error { return nil })
	}
	time.Sleep(time.Millisecond)
	lm.ExecuteWithReadLock("d", func() error { return nil })

	if lm.Len() > 2 {
		t.Errorf("空闲锁应被清理, 剩余 %d", lm.Len())
	}
}
