// Package kernel implements the process table, multi-policy CPU scheduler
// and demand-paging swap subsystem described in SPEC_FULL.md. Every other
// kernel concern (VM primitives beyond AddrSpace, filesystem, trap/
// interrupt delivery, the user-facing syscall ABI, hardware bring-up) is an
// external collaborator and is modeled, at most, as a small interface.
package kernel

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/PradKalkar/xv6-go/internal/config"
	"github.com/PradKalkar/xv6-go/internal/klog"
)

// Kernel owns the process table, the two swap queues and every global
// counter spec.md §3 names at file scope in the C original.
type Kernel struct {
	cfg config.Config
	log zerolog.Logger

	lock     Spinlock // table.lock
	tickLock Spinlock // tickslock
	procs    []*Proc
	byPid    map[int]*Proc
	nextPid  int
	ticks    int

	initProc  *Proc
	shellProc *Proc
	cpus      []*Cpu
	sysCpu    *Cpu // lock context for calls not made from a process's own goroutine

	swapOut *SwapQueue
	swapIn  *SwapQueue
	pages   PageStore
	flimit  int

	history []string // every process name ever created, in creation order

	stop chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex // guards started/stopped below, not process state
	started bool
}

// New allocates a Kernel with an empty, Unused process table. Call
// Userinit then Boot to bring it up.
func New(cfg config.Config, pages PageStore) *Kernel {
	k := &Kernel{
		cfg:    cfg,
		log:    klog.For("kernel"),
		procs:  make([]*Proc, cfg.NProc),
		byPid:  make(map[int]*Proc, cfg.NProc),
		sysCpu: newCpu(-1),
		pages:  pages,
		stop:   make(chan struct{}),
	}
	for i := range k.procs {
		k.procs[i] = newProc()
	}
	k.cpus = make([]*Cpu, cfg.NCPU)
	for i := range k.cpus {
		k.cpus[i] = newCpu(i)
	}
	k.swapOut = newSwapQueue(cfg.NProc, chanOf(chanKindSwapOutQ, 0), chanOf(chanKindSwapOutReq, 0))
	k.swapIn = newSwapQueue(cfg.NProc, chanOf(chanKindSwapInQ, 0), 0)
	return k
}

// allocProc scans for an Unused slot and returns it in Embryo state with a
// fresh pid assigned (spec.md §4.2's allocproc). The caller is responsible
// for filling in pgdir/body/parent before making it Runnable.
func (k *Kernel) allocProc(name string) (*Proc, bool) {
	k.lock.Lock(k.sysCpu)
	defer k.lock.Unlock(k.sysCpu)

	var slot *Proc
	for _, p := range k.procs {
		if p.state == Unused {
			slot = p
			break
		}
	}
	if slot == nil {
		return nil, false
	}

	slot.state = Embryo
	k.nextPid++
	slot.pid = k.nextPid
	slot.priority = 2 // spec.md §3 default priority
	slot.ctime = k.ticks
	slot.name = name
	k.byPid[slot.pid] = slot
	k.history = append(k.history, name)
	return slot, true
}

// Userinit creates process slot 1, the ancestor of every other process and
// the parent-of-last-resort every orphan is reparented to (spec.md
// §4.2/§4.4). Real xv6 init is a user-space program loaded by exec(); since
// exec/ABI loading is out of scope here (non-goal), init is never actually
// dispatched onto a CPU — it stays a structural bookkeeping anchor, with
// p.cpu pinned to the kernel's internal sysCpu so that top-level callers
// (tests, the CLI) can pass it to Fork/Wait/etc. as "the current process"
// without a scheduler ever needing to run it.
func (k *Kernel) Userinit(pageSize uintptr) *Proc {
	p, ok := k.allocProc("init")
	if !ok {
		panic("userinit: process table exhausted before boot")
	}
	p.pgdir = newUserAddrSpace(pageSize)
	p.sz = pageSize
	p.pgdir.Grow(int(pageSize))
	p.cwd = "/"
	p.parentPid = 0
	p.cpu = k.sysCpu
	k.initProc = p
	return p
}

// CreateKernelProcess allocates a slot whose body is a long-lived kernel
// worker (spec.md §4.6's swap-out/swap-in processes), parented to init.
func (k *Kernel) CreateKernelProcess(name string, entry Body) (*Proc, bool) {
	if k.initProc == nil {
		panic("CreateKernelProcess: userinit not called")
	}
	p, ok := k.allocProc(name)
	if !ok {
		return nil, false
	}
	p.pgdir = newKernelAddrSpace(uintptr(k.cfg.PageSize))
	p.parentPid = k.initProc.pid
	p.body = entry

	go k.runProc(p)
	k.lock.Lock(k.sysCpu)
	p.state = Runnable
	k.lock.Unlock(k.sysCpu)
	return p, true
}

// runProc is the trampoline every process goroutine starts in: wait for
// the first dispatch, run the body, then exit cleanly — the Go analogue of
// forkret() planting Exit as the return address for a kernel worker.
func (k *Kernel) runProc(p *Proc) {
	<-p.toProc
	if p.body != nil {
		p.body(k, p)
	}
	k.Exit(p)
}

// Boot creates process slot 1 if Userinit has not been called yet, then
// the two swap-queue worker processes and the shell-analogue process, and
// finally starts one scheduler loop per simulated CPU. It mirrors
// biscuit's `func main()` boot sequence (phys_init, cpus_start, exec init)
// scaled down to this subsystem's scope.
func (k *Kernel) Boot() {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.started = true
	k.mu.Unlock()

	if k.initProc == nil {
		k.Userinit(uintptr(k.cfg.PageSize))
	}

	k.flimit = 0
	k.CreateKernelProcess("swapoutd", k.swapOutWorker)
	k.CreateKernelProcess("swapind", k.swapInWorker)
	k.shellProc, _ = k.CreateKernelProcess("sh", k.shellIdle)

	for _, cpu := range k.cpus {
		cpu := cpu
		k.wg.Add(1)
		go func() {
			defer k.wg.Done()
			k.schedulerLoop(cpu)
		}()
	}
	k.log.Info().Str("policy", string(k.cfg.Policy)).Int("ncpu", len(k.cpus)).Msg("boot complete")
}

// Shutdown stops every scheduler loop. It is a test/CLI convenience, not a
// spec.md operation — there is no orderly kernel shutdown in the teaching
// kernel this subsystem descends from.
func (k *Kernel) Shutdown() {
	close(k.stop)
	k.wg.Wait()
}

func (k *Kernel) closeFile(p *Proc, fd int) {
	f := p.ofile[fd]
	if f == nil {
		return
	}
	f.refcount--
	if f.refcount <= 0 {
		if f.isPageFile {
			_ = k.pages.Delete(f.name)
			k.flimit--
		}
	}
	p.ofile[fd] = nil
}

func (k *Kernel) procByPid(pid int) (*Proc, bool) {
	p, ok := k.byPid[pid]
	return p, ok
}

// InitProc returns process slot 1, the ancestor every orphan is
// reparented to. Callers use it as the "current process" for spawning
// top-level workloads from outside any process's own goroutine (e.g. a
// CLI driver).
func (k *Kernel) InitProc() *Proc {
	return k.initProc
}

// ShellProc returns the shell-analogue process created in Boot, standing
// in for pid 4 in original_source/proc.c's single-user-space image: a
// child forked from it is flagged isShellChild, so its eventual Exit
// triggers deleteSwapoutPageFiles the same way a real shell exiting would.
// Real xv6 sh is an interactive user-space loop; since exec/ABI loading is
// out of scope here, this process never does anything but rest on its own
// channel — it exists purely as the named parent workloads fork under.
func (k *Kernel) ShellProc() *Proc {
	return k.shellProc
}

// shellIdle is the shell-analogue process's body: it parks forever on a
// channel nothing ever wakes, so it never competes for a CPU slot.
func (k *Kernel) shellIdle(kk *Kernel, p *Proc) {
	k.lock.Lock(p.cpu)
	k.Sleep(p, shellIdleChan(), &k.lock)
	k.lock.Unlock(p.cpu)
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel{policy=%s nproc=%d}", k.cfg.Policy, len(k.procs))
}
