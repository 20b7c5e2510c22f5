package obs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequenceStartsAtOne(t *testing.T) {
	seq := NewSequence()
	assert.Equal(t, uint64(0), seq.Last())
	assert.Equal(t, uint64(1), seq.Next())
	assert.Equal(t, uint64(2), seq.Next())
	assert.Equal(t, uint64(2), seq.Last())
}

func TestSequenceConcurrentUnique(t *testing.T) {
	seq := NewSequence()
	const workers, per = 8, 100

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for range per {
				id := seq.Next()
				mu.Lock()
				assert.False(t, seen[id])
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(workers*per), seq.Last())
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.IncOrderSent()
	m.ObserveOrderSend(time.Millisecond)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestLatencyStats(t *testing.T) {
	m := NewMetrics()
	m.ObserveOrderSend(2 * time.Millisecond)
	m.ObserveOrderSend(4 * time.Millisecond)
	m.ObserveOrderSend(6 * time.Millisecond)

	lat := m.Snapshot().OrderSendLatency
	assert.Equal(t, uint64(3), lat.Count)
	assert.Equal(t, 2*time.Millisecond, lat.Min)
	assert.Equal(t, 6*time.Millisecond, lat.Max)
	assert.Equal(t, 4*time.Millisecond, lat.Avg)
}
