package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamBuffer_SendReceiveRoundTrip(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 64)
	fake := newTestTask("fake", 1)

	require.NoError(t, s.Send(fake, []byte("hello"), 0, false))
	dst := make([]byte, 16)
	n, err := s.Receive(fake, dst, 0, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(dst[:n]))

	stats := s.GetStats()
	assert.EqualValues(t, 1, stats.MessagesSent)
	assert.EqualValues(t, 1, stats.MessagesReceived)
	assert.EqualValues(t, 5, stats.BytesSent)
}

// TestStreamBuffer_ReceiveTruncatesShortDestination matches the embedded
// contract's rule that an undersized read buffer gets a truncated copy of
// the message instead of an error, with the remainder discarded.
func TestStreamBuffer_ReceiveTruncatesShortDestination(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 64)
	fake := newTestTask("fake", 1)

	require.NoError(t, s.Send(fake, []byte("0123456789"), 0, false))
	dst := make([]byte, 4)
	n, err := s.Receive(fake, dst, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "0123", string(dst))

	stats := s.GetStats()
	assert.EqualValues(t, 1, stats.TruncatedReads)
	assert.True(t, s.IsEmpty(), "the whole frame, including the discarded tail, must be consumed")
}

// TestStreamBuffer_CorruptHeaderResetsWholeBuffer simulates a torn or
// corrupted length header and confirms the buffer recovers by resetting
// rather than looping or reading out of bounds.
func TestStreamBuffer_CorruptHeaderResetsWholeBuffer(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 32)
	fake := newTestTask("fake", 1)

	putU32(s.buf[:4], 0xFFFFFFFF)
	s.head = 10
	s.tail = 0

	dst := make([]byte, 8)
	n, err := s.Receive(fake, dst, 0, false)
	assert.ErrorIs(t, err, ErrCorruption)
	assert.Equal(t, 0, n)

	assert.Equal(t, 0, s.head)
	assert.Equal(t, 0, s.tail)
	assert.EqualValues(t, 1, s.GetStats().CorruptionEvents)
}

func TestStreamBuffer_ZeroCopySendAndReceive(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 64)

	buf, err := s.SendStart(5)
	require.NoError(t, err)
	copy(buf, "howdy")
	require.NoError(t, s.SendComplete(5))

	view, err := s.ReceiveStart()
	require.NoError(t, err)
	assert.Equal(t, "howdy", string(view))
	assert.True(t, s.IsEmpty())
}

func TestStreamBuffer_SendStartRejectsConcurrentZeroCopy(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 64)

	_, err := s.SendStart(4)
	require.NoError(t, err)

	_, err = s.SendStart(4)
	assert.ErrorIs(t, err, ErrZeroCopyActive)
}

// TestStreamBuffer_OverwriteOldestDropsOldestWholeMessage exercises the
// resolved open question: a full buffer configured to overwrite rather than
// block discards the oldest complete frame, never a partial one.
func TestStreamBuffer_OverwriteOldestDropsOldestWholeMessage(t *testing.T) {
	k := NewKernel(WithStreamOverwriteOldest(true))
	s := k.NewStreamBuffer("s", 16) // 15 usable bytes after the reserved byte
	fake := newTestTask("fake", 1)

	require.NoError(t, s.Send(fake, []byte("aaaaa"), 0, false)) // 9 bytes framed
	require.NoError(t, s.Send(fake, []byte("bbbbb"), 0, false)) // forces a drop

	stats := s.GetStats()
	assert.EqualValues(t, 1, stats.DroppedMessages)

	dst := make([]byte, 8)
	n, err := s.Receive(fake, dst, 0, false)
	require.NoError(t, err)
	assert.Equal(t, "bbbbb", string(dst[:n]), "only the newer message should remain")
}

// TestStreamBuffer_SendBlocksUntilReceiverFreesRoom drives a real blocking
// handoff: a writer stalls on a full buffer until a reader drains it.
func TestStreamBuffer_SendBlocksUntilReceiverFreesRoom(t *testing.T) {
	k := NewKernel()
	s := k.NewStreamBuffer("s", 16) // 15 usable bytes
	fillErr := make(chan error, 1)
	secondErr := make(chan error, 1)
	readErr := make(chan error, 1)
	readBytes := make(chan int, 1)

	_, err := k.CreateTask("writer", func(self *Task) {
		fillErr <- s.Send(self, []byte("aaaaa"), 0, false) // 9 bytes, fits
		secondErr <- s.Send(self, []byte("bbbbb"), 0, true) // 9 more, blocks until room
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)
	require.NoError(t, <-fillErr)

	assert.Eventually(t, func() bool {
		return s.writerWait.count() == 1
	}, time.Second, time.Millisecond, "second send should block on a full buffer")

	_, err = k.CreateTask("reader", func(self *Task) {
		dst := make([]byte, 8)
		n, e := s.Receive(self, dst, 0, true)
		readBytes <- n
		readErr <- e
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	select {
	case e := <-readErr:
		require.NoError(t, e)
	case <-time.After(time.Second):
		t.Fatal("reader never completed")
	}
	assert.Equal(t, 5, <-readBytes)

	select {
	case e := <-secondErr:
		assert.NoError(t, e)
	case <-time.After(time.Second):
		t.Fatal("writer never unblocked after the reader freed room")
	}
}
