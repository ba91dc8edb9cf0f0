package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier_WaitsForAllTasks(t *testing.T) {
	b := NewBarrier(nil)
	release := make(chan struct{})
	var finished atomic.Int32

	const n = 5
	for range n {
		require.True(t, b.Go("task", func() {
			<-release
			finished.Add(1)
		}))
	}
	assert.Equal(t, n, b.Issued())

	done := b.Done()
	select {
	case <-done:
		t.Fatal("barrier fired before tasks completed")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	b.Wait()
	assert.Equal(t, int32(n), finished.Load())
}

func TestBarrier_EmptyCompletesImmediately(t *testing.T) {
	b := NewBarrier(nil)
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("empty barrier did not complete")
	}
	assert.Equal(t, 0, b.Issued())
}

func TestBarrier_RejectsTasksAfterWait(t *testing.T) {
	b := NewBarrier(nil)
	b.Wait()
	assert.False(t, b.Go("late", func() {}))
	assert.False(t, NewBarrier(nil).Go("nil", nil))
}

func TestBarrier_PanickingTaskStillCompletes(t *testing.T) {
	rec := newCountingRecorder()
	b := NewBarrier(NewFaultHandler(nil, rec))
	b.Go("bad", func() { panic("boom") })
	b.Go("good", func() {})
	b.Wait()
	assert.Equal(t, 1, rec.faultCount())
}

func TestFaultHandler_Guard(t *testing.T) {
	rec := newCountingRecorder()
	h := NewFaultHandler(nil, rec)

	assert.False(t, h.Guard("ok", func() {}))
	assert.True(t, h.Guard("panic", func() { panic(assert.AnError) }))
	assert.Equal(t, 1, rec.faults["panic"])
}
