// Package lockmgr provides named, process-wide mutual exclusion.
//
// Locks are keyed by string. Two callers acquiring the same name serialize;
// different names never contend. Entries are reference counted and dropped
// once nobody holds or waits on them.
package lockmgr

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out named locks.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*entry)}
}

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// Default returns the process-wide manager.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultMgr = NewManager()
	})
	return defaultMgr
}

// Acquire blocks until the named lock is held and returns its release function.
// Calling release more than once is safe.
func (m *Manager) Acquire(name string) (release func()) {
	e := m.ref(name)
	e.mu.Lock()
	return m.releaser(name, e)
}

// TryAcquire acquires the named lock only if it is free.
func (m *Manager) TryAcquire(name string) (release func(), ok bool) {
	e := m.ref(name)
	if !e.mu.TryLock() {
		m.unref(name, e)
		return nil, false
	}
	return m.releaser(name, e), true
}

// Held reports the number of names currently held or waited on.
func (m *Manager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *Manager) ref(name string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[name]
	if !ok {
		e = &entry{}
		m.locks[name] = e
	}
	e.refs++
	return e
}

func (m *Manager) unref(name string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, name)
	}
}

func (m *Manager) releaser(name string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.unref(name, e)
		})
	}
}
