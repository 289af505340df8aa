// Package guard serialises handler invocations per key. A trigger that
// arrives while the same key is still in flight is rejected instead of
// racing the first one for the same container or button.
package guard

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a key is already in flight
var ErrBusy = errors.New("already in progress")

// Keyed tracks in-flight keys. The zero value is ready to use.
type Keyed struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an empty guard
func New() *Keyed {
	return &Keyed{}
}

// Acquire marks key as in flight. ok is false when another holder has it;
// otherwise release must be called exactly once to free the key.
func (k *Keyed) Acquire(key string) (release func(), ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.inflight == nil {
		k.inflight = make(map[string]struct{})
	}
	if _, busy := k.inflight[key]; busy {
		return nil, false
	}
	k.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.inflight, key)
			k.mu.Unlock()
		})
	}, true
}

// Busy reports whether key is currently in flight
func (k *Keyed) Busy(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, busy := k.inflight[key]
	return busy
}
