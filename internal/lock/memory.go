package lock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLocker is an in-process Locker. It only coordinates goroutines of a
// single process.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

// Acquire blocks until every key is held or ctx ends. On failure no key
// remains held.
func (l *MemoryLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	normalized := normalizeKeys(keys)
	releases := make([]func(), 0, len(normalized))

	for _, key := range normalized {
		release, err := l.acquireOne(ctx, key)
		if err != nil {
			releaseAll(releases)()
			return nil, err
		}
		releases = append(releases, release)
	}

	var once sync.Once
	release := releaseAll(releases)
	return func() { once.Do(release) }, nil
}

func (l *MemoryLocker) acquireOne(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			l.unref(key, entry)
		}, nil
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}
}

func (l *MemoryLocker) unref(key string, entry *memoryEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// size reports the number of tracked keys.
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
