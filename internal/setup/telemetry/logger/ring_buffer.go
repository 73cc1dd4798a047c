package logger

// RingBuffer keeps the most recent log lines up to a fixed capacity.
type RingBuffer struct {
	lines    []string
	capacity int
	head     int // next write position
	size     int
	seen     int // lines added since the last Reset
}

// NewRingBuffer creates a ring buffer holding at most capacity lines.
// A capacity below one is raised to one.
func NewRingBuffer(capacity int) *RingBuffer {
	capacity = max(capacity, 1)
	return &RingBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Add appends a line, overwriting the oldest one when full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
	rb.seen++
}

// Lines returns the buffered lines oldest first.
func (rb *RingBuffer) Lines() []string {
	if rb.size == 0 {
		return nil
	}

	result := make([]string, rb.size)
	start := (rb.head - rb.size + rb.capacity) % rb.capacity

	for i := range rb.size {
		result[i] = rb.lines[(start+i)%rb.capacity]
	}

	return result
}

// Len returns the number of buffered lines.
func (rb *RingBuffer) Len() int {
	return rb.size
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

// Seen returns the number of lines added since the last Reset.
func (rb *RingBuffer) Seen() int {
	return rb.seen
}

// Reset restarts the seen counter from the lines still buffered.
func (rb *RingBuffer) Reset() {
	rb.seen = rb.size
}
