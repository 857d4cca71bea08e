package usersync

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSerializesSameKey(t *testing.T) {
	km := New(8)
	userID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(userID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	km := New(64)

	a := uuid.New()

	// Find a second ID that lands on a different shard.
	b := uuid.New()
	for km.shard(a) == km.shard(b) {
		b = uuid.New()
	}

	unlockA := km.Lock(a)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock(b)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different shard blocked")
	}
}
