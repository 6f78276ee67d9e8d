// Copyright 2026 Pico-RTOS-Go contributors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rtos

// maxStreamMessage bounds a single StreamBuffer message's payload, guarding
// against a corrupted length header driving an unbounded copy.
const maxStreamMessage = 1 << 20

// StreamBuffer is a circular byte buffer carrying `[u32 length][data]`
// framed messages, per spec.md §4.11. One byte of capacity is always held
// back so a full buffer can be distinguished from an empty one without a
// separate boolean.
type StreamBuffer struct {
	k    *Kernel
	name string

	buf  []byte
	head int
	tail int

	writerWait *blockObject
	readerWait *blockObject
	deleted    bool

	overwriteOldest bool

	zeroCopyActive bool
	zcSendLen      int // reserved payload length for an in-flight send_start
	zcSendAt       int // buffer offset of the in-flight send's header

	stats StreamStats
}

// StreamStats is a point-in-time snapshot returned by [StreamBuffer.GetStats].
type StreamStats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	PeakBytesUsed    int
	CorruptionEvents uint64
	TruncatedReads   uint64
	DroppedMessages  uint64 // overwrite-oldest evictions
}

// NewStreamBuffer constructs a StreamBuffer with the given total byte
// capacity (including the one reserved disambiguation byte).
func (k *Kernel) NewStreamBuffer(name string, size int) *StreamBuffer {
	return &StreamBuffer{
		k:               k,
		name:            name,
		buf:             make([]byte, size),
		writerWait:      newBlockObject(name + ".write"),
		readerWait:      newBlockObject(name + ".read"),
		overwriteOldest: k.cfg.overwriteOldestStream,
	}
}

func (s *StreamBuffer) size() int { return len(s.buf) }

// BytesAvailable returns the number of bytes currently queued, 4-byte
// length headers included, i.e. the distance from tail to head.
func (s *StreamBuffer) BytesAvailable() int {
	return withCriticalSection(s.k.cs, s.bytesAvailableLocked)
}

func (s *StreamBuffer) bytesAvailableLocked() int {
	if s.head >= s.tail {
		return s.head - s.tail
	}
	return s.size() - s.tail + s.head
}

// FreeSpace returns the number of bytes that can still be written before
// the reserved disambiguation byte is consumed.
func (s *StreamBuffer) FreeSpace() int {
	return withCriticalSection(s.k.cs, func() int { return s.size() - s.bytesAvailableLocked() - 1 })
}

// IsEmpty reports whether there is no queued data.
func (s *StreamBuffer) IsEmpty() bool {
	return withCriticalSection(s.k.cs, func() bool { return s.bytesAvailableLocked() == 0 })
}

// IsFull reports whether there is no writable space left.
func (s *StreamBuffer) IsFull() bool {
	return withCriticalSection(s.k.cs, func() bool { return s.size()-s.bytesAvailableLocked()-1 <= 0 })
}

func (s *StreamBuffer) writeAt(off int, data []byte) int {
	n := copy(s.buf[off:], data)
	if n < len(data) {
		n += copy(s.buf, data[n:])
	}
	return (off + len(data)) % s.size()
}

func (s *StreamBuffer) readAt(off int, dst []byte) {
	n := copy(dst, s.buf[off:])
	if n < len(dst) {
		copy(dst[n:], s.buf[:len(dst)-n])
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Send enqueues data as one framed message, blocking on BlockStreamFull if
// there is not enough free space.
func (s *StreamBuffer) Send(t *Task, data []byte, timeoutMs uint32, forever bool) error {
	k := s.k
	needed := 4 + len(data)
	if needed-4 > maxStreamMessage {
		return ErrInvalidParameter
	}

	tok := k.cs.enter()

	if s.deleted {
		k.cs.exit(tok)
		return ErrDeleted
	}

	for s.size()-s.bytesAvailableLocked()-1 < needed {
		if s.overwriteOldest && s.dropOldestLocked() {
			continue
		}
		if timeoutMs == 0 && !forever {
			k.cs.exit(tok)
			return ErrBufferFull
		}
		if err := k.assertNotISR(timeoutMs, forever); err != nil {
			k.cs.exit(tok)
			return err
		}
		ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
		switch k.blockSelf(t, s.writerWait, BlockStreamFull, "stream.write."+s.name, tok, ticks, forever) {
		case wakeSatisfied:
			tok = k.cs.enter()
			continue
		case wakeTimedOut:
			return ErrTimeout
		default:
			return ErrDeleted
		}
	}

	s.commitMessageLocked(data)
	if waiter := s.readerWait.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	}
	k.cs.exit(tok)
	return nil
}

// commitMessageLocked writes the header+payload frame at head and updates
// bookkeeping. Caller holds the critical section.
func (s *StreamBuffer) commitMessageLocked(data []byte) {
	var hdr [4]byte
	putU32(hdr[:], uint32(len(data)))
	s.head = s.writeAt(s.head, hdr[:])
	s.head = s.writeAt(s.head, data)
	s.stats.MessagesSent++
	s.stats.BytesSent += uint64(len(data))
	if used := s.bytesAvailableLocked(); used > s.stats.PeakBytesUsed {
		s.stats.PeakBytesUsed = used
	}
}

// dropOldestLocked discards the oldest whole message to make room, per the
// resolved overwrite-on-full policy. Returns false if the buffer is empty.
func (s *StreamBuffer) dropOldestLocked() bool {
	if s.bytesAvailableLocked() < 4 {
		return false
	}
	var hdr [4]byte
	s.readAt(s.tail, hdr[:])
	length := getU32(hdr[:])
	if int(length) > s.bytesAvailableLocked()-4 {
		s.resetCorruptLocked()
		return false
	}
	s.tail = (s.tail + 4 + int(length)) % s.size()
	s.stats.DroppedMessages++
	return true
}

// resetCorruptLocked implements the corruption-recovery rule: a decoded
// length that cannot possibly fit resets the whole buffer.
func (s *StreamBuffer) resetCorruptLocked() {
	s.head, s.tail = 0, 0
	s.stats.CorruptionEvents++
	logf(s.k.logger, LevelError, "streambuffer", "", nil, "%s: corrupt length header, buffer reset", s.name)
}

// Receive dequeues one message into dst, blocking on BlockStreamEmpty if
// nothing is queued. If dst is smaller than the message, the message is
// truncated and the remainder discarded. Returns the number of bytes
// written into dst.
func (s *StreamBuffer) Receive(t *Task, dst []byte, timeoutMs uint32, forever bool) (int, error) {
	k := s.k
	tok := k.cs.enter()

	for s.bytesAvailableLocked() < 4 {
		if s.deleted {
			k.cs.exit(tok)
			return 0, ErrDeleted
		}
		if timeoutMs == 0 && !forever {
			k.cs.exit(tok)
			return 0, ErrBufferEmpty
		}
		if err := k.assertNotISR(timeoutMs, forever); err != nil {
			k.cs.exit(tok)
			return 0, err
		}
		ticks := msToTicks(timeoutMs, k.cfg.tickRateHz)
		switch k.blockSelf(t, s.readerWait, BlockStreamEmpty, "stream.read."+s.name, tok, ticks, forever) {
		case wakeSatisfied:
			tok = k.cs.enter()
			continue
		case wakeTimedOut:
			return 0, ErrTimeout
		default:
			return 0, ErrDeleted
		}
	}

	n, err := s.consumeMessageLocked(dst)
	if err == nil {
		if waiter := s.writerWait.unblockHighest(); waiter != nil {
			k.ready[waiter.AssignedCore()].rotate(waiter)
			k.dispatch(waiter.AssignedCore())
		}
	}
	k.cs.exit(tok)
	return n, err
}

// consumeMessageLocked decodes the frame at tail into dst, truncating if
// dst is too small, and advances tail past the whole frame either way.
// Caller holds the critical section.
func (s *StreamBuffer) consumeMessageLocked(dst []byte) (int, error) {
	var hdr [4]byte
	s.readAt(s.tail, hdr[:])
	length := getU32(hdr[:])

	if int(length) > maxStreamMessage || int(length) > s.bytesAvailableLocked()-4 {
		s.resetCorruptLocked()
		return 0, ErrCorruption
	}

	payloadAt := (s.tail + 4) % s.size()
	n := int(length)
	truncated := false
	if n > len(dst) {
		n = len(dst)
		truncated = true
	}
	if n > 0 {
		s.readAt(payloadAt, dst[:n])
	}
	s.tail = (s.tail + 4 + int(length)) % s.size()

	s.stats.MessagesReceived++
	s.stats.BytesReceived += uint64(n)
	if truncated {
		s.stats.TruncatedReads++
	}
	return n, nil
}

// PeekLength returns the length of the next queued message without
// consuming it, or -1 if the buffer is empty.
func (s *StreamBuffer) PeekLength() int {
	return withCriticalSection(s.k.cs, func() int {
		if s.bytesAvailableLocked() < 4 {
			return -1
		}
		var hdr [4]byte
		s.readAt(s.tail, hdr[:])
		return int(getU32(hdr[:]))
	})
}

// Flush discards all queued messages without waking anyone.
func (s *StreamBuffer) Flush() {
	withCriticalSectionVoid(s.k.cs, func() { s.head, s.tail = 0, 0 })
}

// GetStats returns a copy of the buffer's running statistics.
func (s *StreamBuffer) GetStats() StreamStats {
	return withCriticalSection(s.k.cs, func() StreamStats { return s.stats })
}

// ResetStats zeroes the running statistics without touching queued data.
func (s *StreamBuffer) ResetStats() {
	withCriticalSectionVoid(s.k.cs, func() { s.stats = StreamStats{} })
}

// SendStart reserves contiguous, non-wrapping space for a len-byte payload
// and returns a slice the caller writes directly into, avoiding the extra
// copy the framed Send path performs. Only one zero-copy operation (send
// or receive) may be active at a time.
func (s *StreamBuffer) SendStart(len_ int) ([]byte, error) {
	k := s.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	if s.zeroCopyActive {
		return nil, ErrZeroCopyActive
	}
	needed := 4 + len_
	if s.size()-s.bytesAvailableLocked()-1 < needed {
		return nil, ErrBufferFull
	}
	// Zero-copy requires the whole frame to fit without wrapping.
	if s.head+needed > s.size() {
		return nil, ErrBufferFull
	}

	s.zeroCopyActive = true
	s.zcSendAt = s.head
	s.zcSendLen = len_
	return s.buf[s.head+4 : s.head+4+len_ : s.head+4+len_], nil
}

// SendComplete patches in the real length header (which may be less than
// the capacity reserved by SendStart) and commits the message, waking the
// highest-priority blocked reader.
func (s *StreamBuffer) SendComplete(actualLen int) error {
	k := s.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	if !s.zeroCopyActive {
		return ErrInvalidParameter
	}
	if actualLen < 0 || actualLen > s.zcSendLen {
		return ErrInvalidParameter
	}
	var hdr [4]byte
	putU32(hdr[:], uint32(actualLen))
	copy(s.buf[s.zcSendAt:], hdr[:])
	s.head = (s.zcSendAt + 4 + actualLen) % s.size()

	s.stats.MessagesSent++
	s.stats.BytesSent += uint64(actualLen)
	if used := s.bytesAvailableLocked(); used > s.stats.PeakBytesUsed {
		s.stats.PeakBytesUsed = used
	}
	s.zeroCopyActive = false

	if waiter := s.readerWait.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	}
	return nil
}

// ReceiveStart returns a read-only view of the next queued message if it
// does not wrap the buffer's end; callers must fall back to the copying
// Receive path when it does. The returned slice is only valid until the
// next mutating call on s.
func (s *StreamBuffer) ReceiveStart() ([]byte, error) {
	k := s.k
	tok := k.cs.enter()
	defer k.cs.exit(tok)

	if s.zeroCopyActive {
		return nil, ErrZeroCopyActive
	}
	if s.bytesAvailableLocked() < 4 {
		return nil, ErrBufferEmpty
	}
	var hdr [4]byte
	s.readAt(s.tail, hdr[:])
	length := int(getU32(hdr[:]))
	if length > maxStreamMessage || length > s.bytesAvailableLocked()-4 {
		s.resetCorruptLocked()
		return nil, ErrCorruption
	}
	payloadAt := (s.tail + 4) % s.size()
	if payloadAt+length > s.size() {
		return nil, ErrZeroCopyActive // wraps; caller must use Receive
	}

	// Unlike SendStart/SendComplete there is no separate commit call: the
	// frame is already fully decoded and tail already advanced by the time
	// the pointer is returned, so there is no window to guard with the
	// active flag.
	s.tail = (s.tail + 4 + length) % s.size()
	s.stats.MessagesReceived++
	s.stats.BytesReceived += uint64(length)

	if waiter := s.writerWait.unblockHighest(); waiter != nil {
		k.ready[waiter.AssignedCore()].rotate(waiter)
		k.dispatch(waiter.AssignedCore())
	}
	return s.buf[payloadAt : payloadAt+length : payloadAt+length], nil
}

// Delete wakes every waiter with a deleted disposition.
func (s *StreamBuffer) Delete() {
	k := s.k
	tok := k.cs.enter()
	s.deleted = true
	woken := append(s.writerWait.unblockAll(wakeDeleted), s.readerWait.unblockAll(wakeDeleted)...)
	for _, w := range woken {
		k.ready[w.AssignedCore()].rotate(w)
	}
	for core := 0; core < numCores(k.cfg); core++ {
		k.dispatch(core)
	}
	k.cs.exit(tok)
}
