package samples

// #region sample

// Sample is one scalar observation. T is seconds on an arbitrary monotonic
// origin shared by every sample in a buffer.
type Sample struct {
	Value float64 `json:"value"`
	T     float64 `json:"t"`
}

// #endregion sample

// #region buffer

// Buffer keeps the most recent samples up to a fixed capacity. Older samples
// drop silently. Timestamps are strictly increasing.
type Buffer struct {
	data  []Sample
	head  int // index of the oldest sample
	count int
}

// New creates a Buffer holding at most capacity samples. Capacity below 1 is
// raised to 1.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when full. A sample whose
// timestamp does not advance past the newest one is rejected.
func (b *Buffer) Push(s Sample) bool {
	if b.count > 0 {
		newest := b.data[(b.head+b.count-1)%len(b.data)]
		if s.T <= newest.T {
			return false
		}
	}
	if b.count < len(b.data) {
		b.data[(b.head+b.count)%len(b.data)] = s
		b.count++
		return true
	}
	b.data[b.head] = s
	b.head = (b.head + 1) % len(b.data)
	return true
}

// Len returns the number of samples held.
func (b *Buffer) Len() int { return b.count }

// Cap returns the capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Samples returns a copy of the samples, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.data[(b.head+i)%len(b.data)]
	}
	return out
}

// Reset discards all samples.
func (b *Buffer) Reset() {
	b.head = 0
	b.count = 0
}

// #endregion buffer
