package sim

import "sync"

// NopLocker is a sync.Locker that does nothing. Used when groups run serially.
type NopLocker struct{}

func (NopLocker) Lock()   {}
func (NopLocker) Unlock() {}

// NewLocker returns a real mutex when groups run on separate goroutines.
func NewLocker(threaded bool) sync.Locker {
	if threaded {
		return &sync.Mutex{}
	}
	return NopLocker{}
}
