package docstore

import "sync"

// Feed carries the paths of committed writes to interested listeners.
type Feed interface {
	Publish(path string)
	Listen(fn func(path string)) (cancel func())
	Close() error
}

// MemoryFeed delivers changes synchronously within one process.
type MemoryFeed struct {
	mu        sync.RWMutex
	listeners map[int]func(string)
	next      int
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{listeners: make(map[int]func(string))}
}

func (f *MemoryFeed) Publish(path string) {
	f.mu.RLock()
	fns := make([]func(string), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(path)
	}
}

func (f *MemoryFeed) Listen(fn func(path string)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	f.listeners = make(map[int]func(string))
	f.mu.Unlock()
	return nil
}
