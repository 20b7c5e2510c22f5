package strategy

// History is a bounded rolling window of recent prices owned by one
// strategy instance. Appending past capacity evicts the oldest entry.
type History struct {
	prices []float64
	start  int
	count  int
}

// NewHistory allocates a window holding up to capacity observations.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{prices: make([]float64, capacity)}
}

// Add appends a price, evicting the oldest when full.
func (h *History) Add(price float64) {
	idx := (h.start + h.count) % len(h.prices)
	h.prices[idx] = price
	if h.count < len(h.prices) {
		h.count++
		return
	}
	h.start = (h.start + 1) % len(h.prices)
}

// Len reports the number of stored observations.
func (h *History) Len() int {
	return h.count
}

// MovingAverage returns the mean of the last window observations.
// The second return is false when fewer than window observations exist.
func (h *History) MovingAverage(window int) (float64, bool) {
	if window <= 0 || h.count < window {
		return 0, false
	}

	sum := 0.0
	for i := h.count - window; i < h.count; i++ {
		sum += h.prices[(h.start+i)%len(h.prices)]
	}
	return sum / float64(window), true
}
