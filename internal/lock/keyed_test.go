package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed()

	const workers = 32
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			k.Lock("GST")
			counter++
			k.Unlock("GST")
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedIndependentKeys(t *testing.T) {
	k := NewKeyed()
	k.Lock("GST")

	done := make(chan struct{})
	go func() {
		k.Lock("PAYE")
		k.Unlock("PAYE")
		close(done)
	}()

	// Holding GST must not block PAYE
	<-done
	k.Unlock("GST")
}

func TestKeyedReuseAfterUnlock(t *testing.T) {
	k := NewKeyed()
	k.Lock("CIT")
	k.Unlock("CIT")
	k.Lock("CIT")
	k.Unlock("CIT")
}
