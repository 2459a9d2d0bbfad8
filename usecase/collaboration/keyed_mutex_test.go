package collaboration

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("collab-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
	if len(km.locks) != 0 {
		t.Errorf("lock table not cleaned up: %d entries", len(km.locks))
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.Lock("collab-1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		other := km.Lock("collab-2")
		other()
		close(done)
	}()
	<-done
}
