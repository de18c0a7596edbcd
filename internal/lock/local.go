package lock

import (
	"context"
	"sync"
)

// LocalLock is an in-process run lock for single-instance deployments.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
