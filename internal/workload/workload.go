// Package workload provides reusable process bodies that exercise the
// kernel's syscall surface from plain goroutine code, standing in for the
// user-space test programs spec.md §8 names (Wait2Test, Drawtest) and for
// scripted FCFS/DML scenarios, since there is no real user-space binary
// loader in this repository (exec/ABI binding is an external
// collaborator per spec.md's non-goals).
package workload

import (
	"time"

	"github.com/PradKalkar/xv6-go/internal/kernel"
)

// CPUBound runs for the given number of simulated ticks, calling
// k.Tick(p) once per unit of work so the active scheduling policy can
// preempt it on schedule.
func CPUBound(ticks int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		for i := 0; i < ticks; i++ {
			k.Tick(p)
		}
	}
}

// SleepThenExit blocks for n ticks via the sleep syscall, then returns
// (which, via the kernel's runProc trampoline, exits cleanly).
func SleepThenExit(n int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		k.SysSleep(p, n)
	}
}

// MemoryPressure grows the process's address space by one page at a time
// until it holds pageCount pages, submitting an explicit swap-out request
// every few pages to simulate the page-fault-driven eviction a real page
// allocator would trigger under pressure (spec.md externalizes the fault
// path itself; this is the seam a workload drives it through instead).
func MemoryPressure(pageCount, pageSize int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		for i := 0; i < pageCount; i++ {
			if k.SysSbrk(p, pageSize) == -1 {
				return
			}
			k.Tick(p)
			if i%3 == 2 {
				k.SubmitReqToSwapOut(p)
			}
		}
	}
}

// FaultIn submits a swap-in request for the page containing va and waits
// for it to complete, simulating a page fault on an evicted page.
func FaultIn(va uintptr) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		k.SubmitReqToSwapIn(p, va)
	}
}

// ForkChild forks a single child running childBody and then waits for a
// child of the calling process to exit; the reaped pid is discarded and
// no accounting is collected.
func ForkChild(childName string, childBody kernel.Body) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		k.SysFork(p, childName, childBody)
		k.SysWait(p)
	}
}

// Wait2Workload forks a child that busy-works for workTicks then sleeps
// for sleepTicks before exiting, and stores the reaped child's WaitStats
// in out so the caller can check that rutime tracks real CPU use and
// stime tracks real sleep time — the Go equivalent of spec.md §8's S1
// Wait2Test scenario. The caller inspects
// the returned WaitStats after the body runs; workloads have no return
// value of their own; so this variant stores the result via out.
func Wait2Workload(workTicks, sleepTicks int, out *kernel.WaitStats) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		childBody := func(ck *kernel.Kernel, c *kernel.Proc) {
			for i := 0; i < workTicks; i++ {
				ck.Tick(c)
			}
			ck.SysSleep(c, sleepTicks)
		}
		k.SysFork(p, "wait2test-child", childBody)
		_, stats := k.SysWait2(p)
		*out = stats
	}
}

// DrawWorkload calls the draw syscall with a buffer of the given size and
// records the result, modeling spec.md §8's S2 (sufficient buffer) and S3
// (too-small buffer) scenarios.
func DrawWorkload(bufSize int, out *int) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		buf := make([]byte, bufSize)
		*out = k.SysDraw(buf)
	}
}

// Idle just burns wall-clock time without touching the scheduler, useful
// for tests that need a goroutine occupying a slot without contributing
// load.
func Idle(d time.Duration) kernel.Body {
	return func(k *kernel.Kernel, p *kernel.Proc) {
		time.Sleep(d)
	}
}
