package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainSingleMessage(t *testing.T) {
	f := New()
	f.Add([]byte("AAPL,150.25*"))

	msgs := f.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("AAPL,150.25"), msgs[0])
	assert.Zero(t, f.Len())
}

func TestDrainRetainsPartial(t *testing.T) {
	f := New()
	f.Add([]byte("AAPL,150.25*MS"))

	msgs := f.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("AAPL,150.25"), msgs[0])
	assert.Equal(t, 2, f.Len())

	f.Add([]byte("FT,300.50*"))
	msgs = f.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("MSFT,300.50"), msgs[0])
	assert.Zero(t, f.Len())
}

func TestDrainCoalescedMessages(t *testing.T) {
	f := New()
	f.Add([]byte("a*b*c*"))

	msgs := f.Drain()
	require.Len(t, msgs, 3)
	assert.Equal(t, []byte("a"), msgs[0])
	assert.Equal(t, []byte("b"), msgs[1])
	assert.Equal(t, []byte("c"), msgs[2])
}

func TestDrainNoCompleteMessage(t *testing.T) {
	f := New()
	f.Add([]byte("partial"))
	assert.Nil(t, f.Drain())
	assert.Equal(t, 7, f.Len())
}

func TestDrainEmptyMessageBetweenDelimiters(t *testing.T) {
	f := New()
	f.Add([]byte("x**y*"))

	msgs := f.Drain()
	require.Len(t, msgs, 3)
	assert.Empty(t, msgs[1])
}

// Round trip: any chunking of the same byte stream recovers the same
// message sequence with no loss, duplication, or embedded delimiter.
func TestRoundTripArbitraryChunking(t *testing.T) {
	ref := []byte("1,BUY,10,AAPL,150.25*2,SELL,5,MSFT,300.10*75*GOOGL,2800.00*")
	want := bytes.Split(ref[:len(ref)-1], []byte{Delimiter})

	for chunk := 1; chunk <= len(ref); chunk++ {
		f := New()
		var got [][]byte
		for start := 0; start < len(ref); start += chunk {
			end := start + chunk
			if end > len(ref) {
				end = len(ref)
			}
			f.Add(ref[start:end])
			got = append(got, f.Drain()...)
		}

		require.Equalf(t, len(want), len(got), "chunk size %d", chunk)
		for i := range want {
			assert.Equalf(t, want[i], got[i], "chunk size %d message %d", chunk, i)
			assert.NotContainsf(t, string(got[i]), string(Delimiter), "chunk size %d", chunk)
		}
		assert.Zerof(t, f.Len(), "chunk size %d", chunk)
	}
}

func TestReset(t *testing.T) {
	f := New()
	f.Add([]byte("stale"))
	f.Reset()
	assert.Zero(t, f.Len())
}
