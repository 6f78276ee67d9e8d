package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueue_CapacityOnePingPong drives a request/response round trip through
// a single-slot queue pair: a producer can never get more than one message
// ahead of the consumer, and each side blocks exactly until the other side
// makes progress.
func TestQueue_CapacityOnePingPong(t *testing.T) {
	k := NewKernel()
	req := k.NewQueue("req", 1)
	resp := k.NewQueue("resp", 1)

	const rounds = 5
	serverErrs := make(chan error, rounds*2)
	clientErrs := make(chan error, rounds*2)
	received := make(chan int, rounds)

	_, err := k.CreateTask("server", func(self *Task) {
		for i := 0; i < rounds; i++ {
			v, err := req.Receive(self, 0, true)
			serverErrs <- err
			if err != nil {
				return
			}
			n := v.(int)
			serverErrs <- resp.Send(self, n*2, 0, true)
		}
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	_, err = k.CreateTask("client", func(self *Task) {
		for i := 0; i < rounds; i++ {
			clientErrs <- req.Send(self, i, 0, true)
			v, err := resp.Receive(self, 0, true)
			clientErrs <- err
			if err != nil {
				return
			}
			received <- v.(int)
		}
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	for i := 0; i < rounds; i++ {
		select {
		case got := <-received:
			assert.Equal(t, i*2, got)
		case <-time.After(time.Second):
			t.Fatalf("round %d never completed", i)
		}
	}

	close(serverErrs)
	close(clientErrs)
	for e := range serverErrs {
		assert.NoError(t, e)
	}
	for e := range clientErrs {
		assert.NoError(t, e)
	}

	assert.Equal(t, 0, req.Len())
	assert.Equal(t, 0, resp.Len())
}

func TestQueue_SendFailsImmediatelyWhenFullAndNoTimeout(t *testing.T) {
	k := NewKernel()
	q := k.NewQueue("q", 1)
	done := make(chan error, 1)

	_, err := k.CreateTask("filler", func(self *Task) {
		done <- q.Send(self, "a", 0, true)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, 1, q.Len())

	overflowDone := make(chan error, 1)
	_, err = k.CreateTask("overflow", func(self *Task) {
		overflowDone <- q.Send(self, "b", 0, false)
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	select {
	case e := <-overflowDone:
		assert.ErrorIs(t, e, ErrBufferFull)
	case <-time.After(time.Second):
		t.Fatal("overflow send never returned")
	}
}

func TestQueue_DeleteWakesBlockedReceiverWithErrDeleted(t *testing.T) {
	k := NewKernel()
	q := k.NewQueue("q", 1)
	recvErr := make(chan error, 1)

	_, err := k.CreateTask("reader", func(self *Task) {
		_, e := q.Receive(self, 0, true)
		recvErr <- e
	}, nil, 256, 5, AffinityAny)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return q.recvWait.count() == 1
	}, time.Second, time.Millisecond)

	q.Delete()

	select {
	case e := <-recvErr:
		assert.ErrorIs(t, e, ErrDeleted)
	case <-time.After(time.Second):
		t.Fatal("reader never observed the delete")
	}
}
