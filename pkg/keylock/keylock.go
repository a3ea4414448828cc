// Package keylock serializes work per string key, such as one conversation
// or one user pair.
package keylock

import (
	"log"

	"github.com/moby/locker"
)

// KeyLock hands out one lock per key. Entries are reference counted by the
// underlying locker and dropped once nobody holds or waits on them.
type KeyLock struct {
	locker *locker.Locker
}

func New() *KeyLock {
	return &KeyLock{locker: locker.New()}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *KeyLock) Lock(key string) func() {
	k.locker.Lock(key)
	return func() {
		if err := k.locker.Unlock(key); err != nil {
			log.Printf("❌ keylock: %v", err)
		}
	}
}
