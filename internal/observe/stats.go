package observe

import (
	"math"
	"sort"
	"sync"
	"time"
)

// PipelineStats collects per-packet latency samples and counter values for
// the run summary printed at the end of a batch job. It maintains a bounded
// ring buffer of recent latency observations from which percentiles are
// computed on demand.
//
// Thread-safe for concurrent use.
type PipelineStats struct {
	mu sync.Mutex

	encode latencyBuffer
	decode latencyBuffer

	packets   int64
	concealed int64
	dropped   int64
	errors    int64
}

// NewPipelineStats creates a PipelineStats with the given window size
// (maximum number of latency samples retained per stage).
func NewPipelineStats(windowSize int) *PipelineStats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &PipelineStats{
		encode: newLatencyBuffer(windowSize),
		decode: newLatencyBuffer(windowSize),
	}
}

// RecordEncode records a per-packet feature extraction latency sample.
func (ps *PipelineStats) RecordEncode(d time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.encode.add(d)
}

// RecordDecode records a per-record waveform synthesis latency sample.
func (ps *PipelineStats) RecordDecode(d time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.decode.add(d)
}

// IncrPackets increments the processed packet counter.
func (ps *PipelineStats) IncrPackets() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packets++
}

// IncrConcealed increments the concealed record counter.
func (ps *PipelineStats) IncrConcealed() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.concealed++
}

// IncrDropped increments the simulated loss counter.
func (ps *PipelineStats) IncrDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.dropped++
}

// IncrErrors increments the error counter.
func (ps *PipelineStats) IncrErrors() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.errors++
}

// LatencyPercentiles holds p50 and p95 values for a latency stage.
type LatencyPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// Snapshot captures a point-in-time view of all pipeline statistics.
type Snapshot struct {
	Encode    LatencyPercentiles
	Decode    LatencyPercentiles
	Packets   int64
	Concealed int64
	Dropped   int64
	Errors    int64
}

// Snapshot returns a point-in-time view of all pipeline statistics.
func (ps *PipelineStats) Snapshot() Snapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return Snapshot{
		Encode:    ps.encode.percentiles(),
		Decode:    ps.decode.percentiles(),
		Packets:   ps.packets,
		Concealed: ps.concealed,
		Dropped:   ps.dropped,
		Errors:    ps.errors,
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	// Copy and sort the valid samples.
	sorted := make([]time.Duration, n)
	if lb.full {
		copy(sorted, lb.data)
	} else {
		copy(sorted, lb.data[:n])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
