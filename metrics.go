package urs

import (
	"sync/atomic"
	"time"

	"github.com/mterrel/utilitaryrs/internal/hub"
	"github.com/mterrel/utilitaryrs/internal/wire"
)

// LatencyBuckets defines the ack round-trip latency histogram buckets in
// nanoseconds, from 1ms to 10s.
var LatencyBuckets = []uint64{
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 5

// Metrics tracks protocol-level counters for a running hub or node:
// acknowledgements, timeouts, device lifecycle transitions, and
// file-transfer throughput. Optional — nothing in internal/wire,
// internal/node, or internal/hub requires a Metrics instance to function.
type Metrics struct {
	AcksSent     atomic.Uint64
	AcksReceived atomic.Uint64
	AcksMissed   atomic.Uint64 // OnAckNotReceivedEv fires

	CommandResultsOk    atomic.Uint64
	CommandResultsError atomic.Uint64
	BlobAnswersReceived atomic.Uint64

	DevicesRegistered atomic.Uint64
	DevicesLost       atomic.Uint64

	FileTransfersOk     atomic.Uint64
	FileTransfersFailed atomic.Uint64
	FileBytesSent       atomic.Uint64

	TotalLatencyNs atomic.Uint64
	LatencySamples atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance, anchoring StartTime to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// Stop marks the observed run as finished, fixing UptimeNs in Snapshot.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// RecordAckLatency records the round-trip time between sending a request
// and receiving its matching ack, for callers that track sentAt themselves
// (the core's millisecond Clock doesn't carry wall-clock precision fine
// enough for this histogram, so it is fed externally rather than wired
// automatically).
func (m *Metrics) RecordAckLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.LatencySamples.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read after
// Snapshot returns without further synchronization.
type MetricsSnapshot struct {
	AcksSent, AcksReceived, AcksMissed                   uint64
	CommandResultsOk, CommandResultsError                uint64
	BlobAnswersReceived                                  uint64
	DevicesRegistered, DevicesLost                       uint64
	FileTransfersOk, FileTransfersFailed, FileBytesSent  uint64
	AvgLatencyNs                                         uint64
	LatencyHistogram                                     [numLatencyBuckets]uint64
	UptimeNs                                             uint64
}

// Snapshot creates a point-in-time snapshot of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		AcksSent:            m.AcksSent.Load(),
		AcksReceived:        m.AcksReceived.Load(),
		AcksMissed:          m.AcksMissed.Load(),
		CommandResultsOk:    m.CommandResultsOk.Load(),
		CommandResultsError: m.CommandResultsError.Load(),
		BlobAnswersReceived: m.BlobAnswersReceived.Load(),
		DevicesRegistered:   m.DevicesRegistered.Load(),
		DevicesLost:         m.DevicesLost.Load(),
		FileTransfersOk:     m.FileTransfersOk.Load(),
		FileTransfersFailed: m.FileTransfersFailed.Load(),
		FileBytesSent:       m.FileBytesSent.Load(),
	}

	samples := m.LatencySamples.Load()
	if samples > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / samples
	}
	for i := range snap.LatencyHistogram {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	return snap
}

// Reset zeroes every counter and re-anchors StartTime to now. Useful
// between test cases that share one Metrics instance.
func (m *Metrics) Reset() {
	*m = Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
}

// MetricsObserver implements hub.Observer, recording every event into a
// Metrics instance. It embeds hub.NopObserver so it only needs to override
// the events it counts.
type MetricsObserver struct {
	hub.NopObserver
	m *Metrics
}

// NewMetricsObserver returns an Observer that records hub events into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (o *MetricsObserver) OnAckNotReceivedEv(name string, mt wire.MessageType) {
	o.m.AcksMissed.Add(1)
}

func (o *MetricsObserver) OnAckReceivedEv(name string, mt wire.MessageType, code wire.Result) {
	o.m.AcksReceived.Add(1)
}

func (o *MetricsObserver) OnCommandResultEv(name string, code wire.Result) {
	if code == wire.Ok {
		o.m.CommandResultsOk.Add(1)
	} else {
		o.m.CommandResultsError.Add(1)
	}
}

func (o *MetricsObserver) BlobAnswerEvReceived(name string, request uint8, data []byte) wire.Result {
	o.m.BlobAnswersReceived.Add(1)
	return wire.Ok
}

func (o *MetricsObserver) DeviceRegisteredEv(name string, version wire.DeviceVersion) {
	o.m.DevicesRegistered.Add(1)
}

func (o *MetricsObserver) DeviceLostEv(name string) {
	o.m.DevicesLost.Add(1)
}

func (o *MetricsObserver) FileWriteResultEv(name string, code wire.Result) {
	if code == wire.Ok {
		o.m.FileTransfersOk.Add(1)
	} else {
		o.m.FileTransfersFailed.Add(1)
	}
}

var _ hub.Observer = (*MetricsObserver)(nil)
