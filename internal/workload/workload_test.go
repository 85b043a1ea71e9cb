package workload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PradKalkar/xv6-go/internal/config"
	"github.com/PradKalkar/xv6-go/internal/kernel"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	cfg := config.Default()
	cfg.NProc = 16
	cfg.NCPU = 2
	k := kernel.New(cfg, kernel.NewMemPageStore())
	k.Userinit(uintptr(cfg.PageSize))
	k.Boot()
	t.Cleanup(k.Shutdown)
	return k
}

func waitWithTimeout(t *testing.T, k *kernel.Kernel, p *kernel.Proc) int {
	t.Helper()
	result := make(chan int, 1)
	go func() { result <- k.Wait(p) }()
	select {
	case pid := <-result:
		return pid
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned")
		return -1
	}
}

// TestWait2WorkloadReportsRunAndSleepTime exercises Wait2Workload end to
// end: the child it forks does real work then sleeps, and the stats it
// hands back must show rutime > 0; stime is only checked to be
// non-negative.
func TestWait2WorkloadReportsRunAndSleepTime(t *testing.T) {
	k := newTestKernel(t)
	k.StartTickTimer(2 * time.Millisecond)
	init := k.InitProc()

	var stats kernel.WaitStats
	k.Fork(init, "wait2-driver", Wait2Workload(20, 5, &stats))
	waitWithTimeout(t, k, init)

	assert.Greater(t, stats.RunTime, 0)
	assert.GreaterOrEqual(t, stats.SleepTime, 0)
}

// TestDrawWorkloadRecordsResult exercises DrawWorkload with a buffer large
// enough to hold the draw syscall's fixed payload.
func TestDrawWorkloadRecordsResult(t *testing.T) {
	k := newTestKernel(t)
	init := k.InitProc()

	var drawn int
	k.Fork(init, "draw-driver", DrawWorkload(4096, &drawn))
	waitWithTimeout(t, k, init)

	assert.Greater(t, drawn, 0)
}

// TestForkChildWaitsForCompletion exercises ForkChild's fork-then-wait
// shape with a plain CPU-bound child.
func TestForkChildWaitsForCompletion(t *testing.T) {
	k := newTestKernel(t)
	init := k.InitProc()

	k.Fork(init, "fork-child-driver", ForkChild("cpu-child", CPUBound(5)))
	pid := waitWithTimeout(t, k, init)
	require.Greater(t, pid, 0)
}

