package filesystem

import "sync"

// nameLocks hands out one mutex per document name, dropping it once unused.
type nameLocks struct {
	mu sync.Mutex
	m  map[string]*nameLock
}

type nameLock struct {
	sync.Mutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{m: make(map[string]*nameLock)}
}

// lock blocks until name is free and returns the matching unlock.
func (l *nameLocks) lock(name string) func() {
	l.mu.Lock()
	nl, ok := l.m[name]
	if !ok {
		nl = &nameLock{}
		l.m[name] = nl
	}
	nl.refs++
	l.mu.Unlock()

	nl.Lock()

	return func() {
		nl.Unlock()

		l.mu.Lock()
		nl.refs--
		if nl.refs == 0 {
			delete(l.m, name)
		}
		l.mu.Unlock()
	}
}
