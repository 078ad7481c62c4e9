package lock

import "sync"

// Keyed serializes critical sections per string key. The rule service locks
// per tax type so activations for GST never block PAYE; the extension
// service locks per (client, taxType, originalDeadline) composite key.
// Entries are never evicted — the key space is small and bounded (tax types,
// active obligation instances).
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for key. Panics if the key was never locked,
// matching sync.Mutex semantics.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	m.Unlock()
}
