package tp

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-someip/someip/internal/metrics"
	"github.com/go-someip/someip/someip"
)

// Key identifies one in-flight TP transfer: the correlation tuple from
// §3, with the TP bit already cleared from MessageType.
type Key struct {
	ServiceID        someip.ServiceID
	MethodID         someip.MethodID
	ClientID         someip.ClientID
	SessionID        someip.SessionID
	InterfaceVersion uint8
	MessageType      someip.MessageType
}

func keyOf(h someip.Header) Key {
	return Key{
		ServiceID:        h.ServiceID,
		MethodID:         h.MethodID,
		ClientID:         h.ClientID,
		SessionID:        h.SessionID,
		InterfaceVersion: h.InterfaceVersion,
		MessageType:      h.MessageType.WithoutTP(),
	}
}

// Config bounds the reassembler's memory use and patience.
type Config struct {
	// MaxReassembledPayload caps the total reassembled payload size.
	MaxReassembledPayload uint32
	// Timeout is how long an incomplete entry may sit idle before it is
	// evicted and reported on the reassembler's error channel.
	Timeout time.Duration
	// MaxConcurrent caps the number of in-flight entries; the oldest entry
	// is evicted to make room for a new one once the cap is reached.
	MaxConcurrent int
}

// DefaultConfig returns the reassembler defaults from §4.9/§6: a 64 MiB
// reassembled-payload ceiling, a 5 second idle timeout, and room for 256
// concurrent transfers.
func DefaultConfig() Config {
	return Config{
		MaxReassembledPayload: 64 * 1024 * 1024,
		Timeout:                5 * time.Second,
		MaxConcurrent:          256,
	}
}

type byteRange struct {
	start, end uint32 // [start, end)
}

type entry struct {
	header   someip.Header
	buf      []byte
	ranges   []byteRange
	total    *uint32
	deadline time.Time
}

func (e *entry) ensureCap(n int) {
	if n > len(e.buf) {
		grown := make([]byte, n)
		copy(grown, e.buf)
		e.buf = grown
	}
}

func (e *entry) merge(offset uint32, data []byte) error {
	end := offset + uint32(len(data))
	e.ensureCap(int(end))

	for _, r := range e.ranges {
		oStart, oEnd := maxU32(r.start, offset), minU32(r.end, end)
		if oStart >= oEnd {
			continue
		}
		existing := e.buf[oStart:oEnd]
		incoming := data[oStart-offset : oEnd-offset]
		if !bytes.Equal(existing, incoming) {
			return SegmentationError{Reason: "conflicting overlap"}
		}
	}

	copy(e.buf[offset:end], data)
	e.ranges = mergeRange(e.ranges, byteRange{offset, end})
	return nil
}

func (e *entry) covered(total uint32) bool {
	return len(e.ranges) == 1 && e.ranges[0].start == 0 && e.ranges[0].end == total
}

func mergeRange(ranges []byteRange, add byteRange) []byteRange {
	merged := append(ranges, add)
	sort.Slice(merged, func(i, j int) bool { return merged[i].start < merged[j].start })

	out := merged[:0]
	for _, r := range merged {
		if len(out) > 0 && r.start <= out[len(out)-1].end {
			if r.end > out[len(out)-1].end {
				out[len(out)-1].end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// Reassembler accumulates TP segments into complete messages, keyed by
// the correlation tuple in §3. It is safe for concurrent use.
type Reassembler struct {
	cfg Config

	mu      sync.Mutex
	entries map[Key]*entry
	order   []Key // insertion order, for oldest-first eviction

	errs chan SegmentationError

	stop chan struct{}
	done chan struct{}
}

// NewReassembler starts a Reassembler with the given configuration and a
// background sweep that evicts entries idle past cfg.Timeout. Eviction
// reports never block: once Errors() holds 32 undrained reports, further
// reports are dropped.
func NewReassembler(cfg Config) *Reassembler {
	r := &Reassembler{
		cfg:     cfg,
		entries: make(map[Key]*entry),
		errs:    make(chan SegmentationError, 32),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Errors returns the channel on which eviction failures are delivered:
// incomplete transfers evicted on timeout, and the oldest transfer evicted
// when MaxConcurrent is reached.
func (r *Reassembler) Errors() <-chan SegmentationError {
	return r.errs
}

// Close stops the background sweep. Entries still in flight are dropped
// without being reported.
func (r *Reassembler) Close() {
	close(r.stop)
	<-r.done
}

func (r *Reassembler) sweepLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Timeout)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

func (r *Reassembler) evictExpired(now time.Time) {
	r.mu.Lock()
	var expired []Key
	for k, e := range r.entries {
		if now.After(e.deadline) {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		delete(r.entries, k)
		r.removeOrder(k)
	}
	r.mu.Unlock()

	for range expired {
		metrics.RecordTPReassembly("evicted")
		select {
		case r.errs <- SegmentationError{Reason: "incomplete transfer"}:
		default:
		}
	}
}

func (r *Reassembler) removeOrder(k Key) {
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Add ingests one TP segment. If the segment completes its transfer, the
// reassembled message is returned with its TP bit cleared and length
// recomputed from the total payload; otherwise (nil, nil) is returned.
func (r *Reassembler) Add(segment someip.Message) (*someip.Message, error) {
	if len(segment.Payload) < HeaderSize {
		return nil, fmt.Errorf("%w: segment payload shorter than TP header", ErrSegmentation)
	}

	tpHeader, err := DecodeHeader(segment.Payload[:HeaderSize])
	if err != nil {
		return nil, err
	}
	chunk := segment.Payload[HeaderSize:]

	if tpHeader.Offset%16 != 0 {
		return nil, SegmentationError{Reason: "offset not a multiple of 16"}
	}
	end := tpHeader.Offset + uint32(len(chunk))
	if end > r.cfg.MaxReassembledPayload {
		return nil, SegmentationError{Reason: "reassembled payload exceeds maximum"}
	}

	key := keyOf(segment.Header)

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		if len(r.entries) >= r.cfg.MaxConcurrent {
			r.evictOldestLocked()
		}
		e = &entry{header: segment.Header}
		r.entries[key] = e
		r.order = append(r.order, key)
	}
	e.deadline = time.Now().Add(r.cfg.Timeout)

	if e.total != nil && end > *e.total {
		r.mu.Unlock()
		metrics.RecordTPReassembly("conflict")
		return nil, SegmentationError{Reason: "segment extends past known total length"}
	}
	if !tpHeader.MoreSegments {
		if e.total != nil && *e.total != end {
			r.mu.Unlock()
			metrics.RecordTPReassembly("conflict")
			return nil, SegmentationError{Reason: "conflicting total length"}
		}
		total := end
		e.total = &total
	}

	if err := e.merge(tpHeader.Offset, chunk); err != nil {
		r.mu.Unlock()
		metrics.RecordTPReassembly("conflict")
		return nil, err
	}

	if e.total != nil && e.covered(*e.total) {
		total := *e.total
		payload := make([]byte, total)
		copy(payload, e.buf[:total])
		h := e.header
		h.MessageType = h.MessageType.WithoutTP()
		h.Length = uint32(8 + total)

		delete(r.entries, key)
		r.removeOrder(key)
		r.mu.Unlock()

		metrics.RecordTPReassembly("completed")
		msg := someip.Message{Header: h, Payload: payload}
		return &msg, nil
	}

	r.mu.Unlock()
	return nil, nil
}

func (r *Reassembler) evictOldestLocked() {
	if len(r.order) == 0 {
		return
	}
	oldest := r.order[0]
	r.order = r.order[1:]
	delete(r.entries, oldest)
	metrics.RecordTPReassembly("evicted")
	select {
	case r.errs <- SegmentationError{Reason: "evicted to make room for a new transfer"}:
	default:
	}
}
