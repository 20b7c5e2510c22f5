package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for one
// pipeline process. All methods are safe for concurrent use and safe on
// a nil receiver so components can run unmetered.
type Metrics struct {
	ticksBroadcast  uint64
	clientsAccepted uint64
	clientsPruned   uint64
	framesDecoded   uint64
	framesDropped   uint64
	storeUpdates    uint64
	ordersAdmitted  uint64
	ordersSent      uint64
	ordersRejected  uint64
	tradesLogged    uint64

	orderSendLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	TicksBroadcast  uint64
	ClientsAccepted uint64
	ClientsPruned   uint64
	FramesDecoded   uint64
	FramesDropped   uint64
	StoreUpdates    uint64
	OrdersAdmitted  uint64
	OrdersSent      uint64
	OrdersRejected  uint64
	TradesLogged    uint64

	OrderSendLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncTickBroadcast records one completed broadcast round.
func (m *Metrics) IncTickBroadcast() { m.inc(&m.ticksBroadcast) }

// IncClientAccepted records a newly connected downstream client.
func (m *Metrics) IncClientAccepted() { m.inc(&m.clientsAccepted) }

// IncClientPruned records a client dropped after a failed write.
func (m *Metrics) IncClientPruned() { m.inc(&m.clientsPruned) }

// IncFrameDecoded records a successfully decoded wire message.
func (m *Metrics) IncFrameDecoded() { m.inc(&m.framesDecoded) }

// IncFrameDropped records a malformed wire message that was discarded.
func (m *Metrics) IncFrameDropped() { m.inc(&m.framesDropped) }

// IncStoreUpdate records a price written into the shared table.
func (m *Metrics) IncStoreUpdate() { m.inc(&m.storeUpdates) }

// IncOrderAdmitted records a signal that passed admission control.
func (m *Metrics) IncOrderAdmitted() { m.inc(&m.ordersAdmitted) }

// IncOrderSent records an order transmitted to the order manager.
func (m *Metrics) IncOrderSent() { m.inc(&m.ordersSent) }

// IncOrderRejected records a signal denied by admission control.
func (m *Metrics) IncOrderRejected() { m.inc(&m.ordersRejected) }

// IncTradeLogged records an order appended to the trade log.
func (m *Metrics) IncTradeLogged() { m.inc(&m.tradesLogged) }

// ObserveOrderSend measures the duration of one order transmission.
func (m *Metrics) ObserveOrderSend(d time.Duration) {
	if m == nil {
		return
	}
	m.orderSendLatency.Observe(d)
}

func (m *Metrics) inc(counter *uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(counter, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		TicksBroadcast:   atomic.LoadUint64(&m.ticksBroadcast),
		ClientsAccepted:  atomic.LoadUint64(&m.clientsAccepted),
		ClientsPruned:    atomic.LoadUint64(&m.clientsPruned),
		FramesDecoded:    atomic.LoadUint64(&m.framesDecoded),
		FramesDropped:    atomic.LoadUint64(&m.framesDropped),
		StoreUpdates:     atomic.LoadUint64(&m.storeUpdates),
		OrdersAdmitted:   atomic.LoadUint64(&m.ordersAdmitted),
		OrdersSent:       atomic.LoadUint64(&m.ordersSent),
		OrdersRejected:   atomic.LoadUint64(&m.ordersRejected),
		TradesLogged:     atomic.LoadUint64(&m.tradesLogged),
		OrderSendLatency: m.orderSendLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
