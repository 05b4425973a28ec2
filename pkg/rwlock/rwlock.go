// Package rwlock 提供带有读写交替偏好的读写锁
//
// 与 sync.RWMutex 不同，RWLock 在每次读释放后偏向等待中的写者，
// 在每次写释放后偏向读者，以此避免持续读负载下写者饿死。
// 它不保证请求级别的 FIFO 顺序。
package rwlock

import "sync"

// RWLock 共享/独占锁
type RWLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	activeReaders  int
	waitingWriters int
	activeWriters  int
	preferWriter   bool
}

// New 创建读写锁
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock 获取读锁
// 有写者持有锁，或者偏向写者且存在等待中的写者时阻塞
func (l *RWLock) RLock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.activeWriters > 0 || (l.preferWriter && l.waitingWriters > 0) {
		l.cond.Wait()
	}
	l.activeReaders++
}

// RUnlock 释放读锁，下一次竞争偏向写者
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.activeReaders == 0 {
		panic("rwlock: RUnlock of unlocked RWLock")
	}
	l.activeReaders--
	l.preferWriter = true
	l.cond.Broadcast()
}

// Lock 获取写锁，只要有读者或写者处于活动状态就阻塞
func (l *RWLock) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.waitingWriters++
	for l.activeReaders > 0 || l.activeWriters > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.activeWriters++
}

// Unlock 释放写锁，之后的竞争偏向读者
func (l *RWLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.activeWriters == 0 {
		panic("rwlock: Unlock of unlocked RWLock")
	}
	l.activeWriters--
	l.preferWriter = false
	l.cond.Broadcast()
}

// Stats 锁内部计数的快照
type Stats struct {
	ActiveReaders  int
	WaitingWriters int
	ActiveWriters  int
	PreferWriter   bool
}

// Stats 返回当前计数，主要用于测试和调试
func (l *RWLock) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		ActiveReaders:  l.activeReaders,
		WaitingWriters: l.waitingWriters,
		ActiveWriters:  l.activeWriters,
		PreferWriter:   l.preferWriter,
	}
}

// Set 按 key 共享的锁集合
//
// 同一个 key 同时只存在一把锁。锁在第一次 Lock/RLock 时创建，
// 最后一个持有者或等待者释放后移除。
type Set struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	lock *RWLock
	refs int
}

// NewSet 创建锁集合
func NewSet() *Set {
	return &Set{locks: make(map[string]*entry)}
}

// Lock 获取 key 的写锁，返回释放函数
func (s *Set) Lock(key string) (unlock func()) {
	l := s.acquire(key)
	l.Lock()
	return func() {
		l.Unlock()
		s.release(key)
	}
}

// RLock 获取 key 的读锁，返回释放函数
func (s *Set) RLock(key string) (unlock func()) {
	l := s.acquire(key)
	l.RLock()
	return func() {
		l.RUnlock()
		s.release(key)
	}
}

// Len 返回当前被持有或等待的 key 数量
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *Set) acquire(key string) *RWLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.locks[key]
	if !ok {
		e = &entry{lock: New()}
		s.locks[key] = e
	}
	e.refs++
	return e.lock
}

func (s *Set) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.locks[key]
	if !ok {
		panic("rwlock: release of unknown key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(s.locks, key)
	}
}
