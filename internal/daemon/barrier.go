package daemon

import (
	"sync"
)

// Barrier joins a set of concurrently issued tasks. All tasks are issued with
// Go before Wait is called; Wait returns once every issued task finished, and
// immediately when none were issued.
type Barrier struct {
	faults *FaultHandler

	mu      sync.Mutex
	wg      sync.WaitGroup
	issued  int
	waiting bool
	once    sync.Once
	done    chan struct{}
}

// NewBarrier creates a barrier. Tasks run under faults when it is non-nil.
func NewBarrier(faults *FaultHandler) *Barrier {
	return &Barrier{faults: faults, done: make(chan struct{})}
}

// Go issues fn as a task. It returns false once Wait has been called.
func (b *Barrier) Go(origin string, fn func()) bool {
	if fn == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiting {
		return false
	}

	b.issued++
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if b.faults != nil {
			b.faults.Guard(origin, fn)
			return
		}
		fn()
	}()
	return true
}

// Issued returns the number of tasks issued so far.
func (b *Barrier) Issued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issued
}

// Wait closes the barrier to new tasks and blocks until all issued tasks finished.
func (b *Barrier) Wait() {
	b.seal()
	<-b.done
}

// Done returns a channel closed once the barrier is sealed and all tasks finished.
func (b *Barrier) Done() <-chan struct{} {
	b.seal()
	return b.done
}

func (b *Barrier) seal() {
	b.once.Do(func() {
		b.mu.Lock()
		b.waiting = true
		b.mu.Unlock()

		go func() {
			b.wg.Wait()
			close(b.done)
		}()
	})
}
