package kernel

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Cpu is a simulated CPU: one scheduler loop, its own rotating SML/DML
// cursors (spec.md §4.5 — "a per-priority rotating cursor"), and the
// recursive interrupt-disable depth used by Spinlock (spec.md §4.1).
//
// Every real scheduler Cpu is driven by exactly one goroutine (its own
// schedulerLoop), so ncli/intena are never actually contended there. The
// kernel's sysCpu is the exception: it stands in for "no dedicated CPU
// goroutine" and is shared across whatever unrelated goroutine happens to
// call allocProc/Fork/Kill/SysHistory/StartTickTimer/Procdump at the
// time, so its ncli/intena bookkeeping genuinely can race. mu guards
// both cases uniformly rather than special-casing sysCpu.
type Cpu struct {
	id int

	mu     sync.Mutex
	ncli   int  // depth of nested Spinlock holds
	intena bool // interrupt-enable state saved across the outermost acquire

	// SML/DML rotating cursors, one per priority class (spec.md §4.5).
	i1, i2, i3 int
}

func newCpu(id int) *Cpu {
	return &Cpu{id: id}
}

func (c *Cpu) cursor(priority int) *int {
	switch priority {
	case 1:
		return &c.i1
	case 2:
		return &c.i2
	default:
		return &c.i3
	}
}

func (c *Cpu) pushcli() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ncli == 0 {
		c.intena = false
	}
	c.ncli++
}

func (c *Cpu) popcli() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ncli < 1 {
		panic("popcli: not holding")
	}
	c.ncli--
}

// Spinlock is a non-sleeping mutual-exclusion lock: test-and-set with
// recursive interrupt-disable counting on the acquiring Cpu (spec.md §4.1).
// It is not reentrant: a Cpu that already holds a Spinlock must not
// acquire it again.
type Spinlock struct {
	locked int32
	name   string
}

func newSpinlock(name string) *Spinlock {
	return &Spinlock{name: name}
}

// Lock acquires the lock, spinning until it is free. Every acquisition
// bumps the calling Cpu's interrupt-disable depth, matching the teaching
// kernel's pushcli/popcli discipline.
func (l *Spinlock) Lock(c *Cpu) {
	c.pushcli()
	for !atomic.CompareAndSwapInt32(&l.locked, 0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases the lock and pops the calling Cpu's interrupt-disable
// depth back down.
func (l *Spinlock) Unlock(c *Cpu) {
	if !atomic.CompareAndSwapInt32(&l.locked, 1, 0) {
		panic(fmt.Sprintf("spinlock %s: release of unlocked lock", l.name))
	}
	c.popcli()
}

// Holding reports whether the lock is currently held by anyone. It is a
// debug assertion only (spec.md §4.1's `holding(lock)`), not a substitute
// for proper synchronization.
func (l *Spinlock) Holding() bool {
	return atomic.LoadInt32(&l.locked) == 1
}
