// Package drivertest provides controllable driver implementations for tests.
package drivertest

import (
	"context"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/driverd/internal/driver"
)

// Fake is an in-memory driver. Start can be held open to simulate a slow
// driver and both lifecycle calls can be made to fail.
type Fake struct {
	Descriptor driver.Descriptor

	mu       sync.Mutex
	running  bool
	startErr error
	stopErr  error
	hold     chan struct{}
	entered  chan struct{}
	panicMsg any

	starts atomic.Int32
	stops  atomic.Int32
}

// NewFake creates an idle fake for desc.
func NewFake(desc driver.Descriptor) *Fake {
	return &Fake{Descriptor: desc, entered: make(chan struct{})}
}

// FailStart makes Start return err without entering the running state.
func (f *Fake) FailStart(err error) *Fake {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
	return f
}

// FailStop makes Stop return err. The driver still leaves the running state.
func (f *Fake) FailStop(err error) *Fake {
	f.mu.Lock()
	f.stopErr = err
	f.mu.Unlock()
	return f
}

// PanicOnStart makes Start panic with v.
func (f *Fake) PanicOnStart(v any) *Fake {
	f.mu.Lock()
	f.panicMsg = v
	f.mu.Unlock()
	return f
}

// Hold makes the next Start block until Release is called.
func (f *Fake) Hold() *Fake {
	f.mu.Lock()
	f.hold = make(chan struct{})
	f.mu.Unlock()
	return f
}

// Release unblocks a held Start.
func (f *Fake) Release() {
	f.mu.Lock()
	hold := f.hold
	f.hold = nil
	f.mu.Unlock()
	if hold != nil {
		close(hold)
	}
}

// Entered is closed once Start has been called.
func (f *Fake) Entered() <-chan struct{} { return f.entered }

func (f *Fake) Start(context.Context) error {
	f.mu.Lock()
	hold, startErr, panicMsg := f.hold, f.startErr, f.panicMsg
	first := f.starts.Add(1) == 1
	f.mu.Unlock()

	if first {
		close(f.entered)
	}
	if panicMsg != nil {
		panic(panicMsg)
	}
	if hold != nil {
		<-hold
	}
	if startErr != nil {
		return startErr
	}

	f.mu.Lock()
	f.running = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) Stop(context.Context) error {
	f.stops.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return f.stopErr
}

func (f *Fake) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Starts returns how many times Start was called.
func (f *Fake) Starts() int { return int(f.starts.Load()) }

// Stops returns how many times Stop was called.
func (f *Fake) Stops() int { return int(f.stops.Load()) }

// Pool records every fake a catalog builds, keyed by descriptor name.
type Pool struct {
	mu      sync.Mutex
	built   map[string][]*Fake
	prepare func(*Fake)
}

// NewPool creates a pool. prepare, when non-nil, configures each fake as it is built.
func NewPool(prepare func(*Fake)) *Pool {
	return &Pool{built: make(map[string][]*Fake), prepare: prepare}
}

// Factory returns a driver.Factory producing fakes.
func (p *Pool) Factory() driver.Factory {
	return func(desc driver.Descriptor) (driver.Driver, error) {
		f := NewFake(desc)
		if p.prepare != nil {
			p.prepare(f)
		}
		p.mu.Lock()
		p.built[desc.Name] = append(p.built[desc.Name], f)
		p.mu.Unlock()
		return f, nil
	}
}

// Built returns the fakes created for name, in build order.
func (p *Pool) Built(name string) []*Fake {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Fake(nil), p.built[name]...)
}

// Catalog returns a catalog whose factory key "fake" builds into the pool.
func (p *Pool) Catalog() *driver.Catalog {
	c := driver.NewCatalog()
	c.MustRegister(Type, p.Factory())
	return c
}

// Type is the factory key served by Pool.Catalog.
const Type = "fake"
