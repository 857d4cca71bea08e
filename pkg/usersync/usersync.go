// Package usersync provides per-key serialization for read-modify-write
// sequences scoped to a single user. Cross-user operations stay fully
// parallel; two concurrent updates for the same user serialize.
package usersync

import (
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex is a sharded lock keyed by user ID
type KeyedMutex struct {
	shards []sync.Mutex
}

// New creates a keyed mutex with the given shard count
func New(shards int) *KeyedMutex {
	if shards <= 0 {
		shards = 64
	}
	return &KeyedMutex{shards: make([]sync.Mutex, shards)}
}

func (k *KeyedMutex) shard(id uuid.UUID) *sync.Mutex {
	// FNV-1a over the raw UUID bytes
	var h uint64 = 14695981039346656037
	for _, b := range id {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return &k.shards[h%uint64(len(k.shards))]
}

// Lock acquires the lock for a user and returns its unlock function
func (k *KeyedMutex) Lock(id uuid.UUID) func() {
	m := k.shard(id)
	m.Lock()
	return m.Unlock
}
