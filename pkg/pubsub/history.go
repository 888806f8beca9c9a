package pubsub

import "github.com/iox2go/iox2"

// historyEntry is one replayed-on-connect sample: its offset plus the
// payload size recorded at send time.
type historyEntry struct {
	offset iox2.PointerOffset
	size   uint64
}

// history is a fixed-capacity FIFO ring; pushing past capacity drops the
// oldest entry. Publisher-private, no synchronization needed.
type history struct {
	entries []historyEntry
	cap     int
}

func newHistory(capacity int) *history {
	return &history{cap: capacity}
}

// Push records a new send, dropping the oldest entry once full.
func (h *history) Push(offset iox2.PointerOffset, size uint64) {
	if h.cap == 0 {
		return
	}
	if len(h.entries) == h.cap {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, historyEntry{offset: offset, size: size})
}

// Entries returns the recorded history oldest-first, the order a newly
// attached subscriber must replay them in.
func (h *history) Entries() []historyEntry {
	out := make([]historyEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
