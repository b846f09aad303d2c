package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvWithTimeout[T any](t *testing.T, rx *Receiver[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := rx.Recv(ctx)
	require.NoError(t, err)
	return v
}

func TestRecvBlocksUntilFirstSend(t *testing.T) {
	t.Parallel()

	bc := New(0)
	rx := bc.Attach()
	defer rx.Close()

	got := make(chan int, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if v, err := rx.Recv(ctx); err == nil {
			got <- v
		}
	}()

	select {
	case v := <-got:
		t.Fatalf("Recv returned %d before any Send", v)
	case <-time.After(50 * time.Millisecond):
	}

	bc.Send(42)
	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake after Send")
	}
}

func TestSendsCoalesce(t *testing.T) {
	t.Parallel()

	bc := New(0)
	rx := bc.Attach()
	defer rx.Close()

	bc.Send(1)
	bc.Send(2)

	assert.Equal(t, 2, recvWithTimeout(t, rx), "only the latest value is observable")

	// Both sends coalesced into one pending signal, a second Recv blocks.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAfterAttachIsNotLost(t *testing.T) {
	t.Parallel()

	bc := New("")
	rx := bc.Attach()
	defer rx.Close()

	// Send before the first Recv: the signal must stay pending.
	bc.Send("hello")
	assert.Equal(t, "hello", recvWithTimeout(t, rx))
}

func TestCloseDetaches(t *testing.T) {
	t.Parallel()

	bc := New(0)
	closed := bc.Attach()
	open := bc.Attach()
	defer open.Close()

	closed.Close()
	closed.Close() // idempotent

	bc.Send(7)
	assert.Equal(t, 7, recvWithTimeout(t, open))
}

func TestRecvHonorsContextCancel(t *testing.T) {
	t.Parallel()

	bc := New(0)
	rx := bc.Attach()
	defer rx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := rx.Recv(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unwind on context cancellation")
	}
}

func TestConcurrentSendAttachClose(t *testing.T) {
	t.Parallel()

	bc := New(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bc.Send(n*100 + j)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rx := bc.Attach()
				rx.Close()
			}
		}()
	}
	wg.Wait()

	// A receiver attached after the dust settles still sees the latest value.
	rx := bc.Attach()
	defer rx.Close()
	bc.Send(-1)
	assert.Equal(t, -1, recvWithTimeout(t, rx))
}
