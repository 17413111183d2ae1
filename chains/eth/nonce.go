package eth

import "sync"

// NonceTracker caches the last nonce used by the transfer account. Each call is atomic but a
// read followed by an update is not; callers that dispatch concurrently must serialize.
type NonceTracker struct {
	lock     *sync.RWMutex
	lastUsed *uint64
}

func NewNonceTracker() *NonceTracker {
	return &NonceTracker{
		lock: &sync.RWMutex{},
	}
}

// LastUsed returns the last confirmed nonce, if any.
func (t *NonceTracker) LastUsed() (uint64, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.lastUsed == nil {
		return 0, false
	}

	return *t.lastUsed, true
}

func (t *NonceTracker) Update(nonce uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.lastUsed = &nonce
}

// Reset forgets the cached nonce so that the next transfer reads it from the chain.
func (t *NonceTracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.lastUsed = nil
}
