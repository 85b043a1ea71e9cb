package kernel

// ProcState is a slot's lifecycle stage (spec.md §3).
type ProcState int

const (
	Unused ProcState = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

func (s ProcState) String() string {
	switch s {
	case Unused:
		return "unused"
	case Embryo:
		return "embryo"
	case Sleeping:
		return "sleeping"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	default:
		return "invalid"
	}
}

// openFile is a slot in a process's file table. It exists only to give the
// swap subsystem's flimit accounting and page-file fds something real to
// count (spec.md §4.9/§4.10); it does not model a filesystem (non-goal).
type openFile struct {
	name     string
	refcount int
	isPageFile bool
}

// Body is the work a process performs once scheduled, standing in for the
// trap-frame-driven user/kernel entry point spec.md externalizes (§6).
type Body func(k *Kernel, p *Proc)

// Proc is one process-table slot. Every field here corresponds to
// spec.md §3's data model; kstack/trapframe are modeled as opaque (the
// goroutine stack underneath `toProc`/`toSched` plays their role).
type Proc struct {
	state ProcState
	pid   int

	parentPid int // 0 means "no parent" (init only)

	pgdir AddrSpace
	sz    uintptr

	killed bool
	ofile  [maxOpenFiles]*openFile
	cwd    string
	name   string

	// Accounting (spec.md §4.10).
	ctime  int
	retime int
	rutime int
	stime  int

	// Scheduling.
	priority     int
	ticksElapsed int // ticks run since last dispatch, for DEFAULT/DML preemption
	satisfied    bool // swap-request completion flag (spec.md §4.7)
	isShellChild bool // exiting triggers deleteSwapoutPageFiles (spec.md §4.4)

	chanOn Chan // channel this slot is sleeping on, valid only while Sleeping
	trapva uintptr // faulting virtual address recorded for a pending swap-in

	cpu  *Cpu // the simulated CPU currently running/dispatching this slot
	body Body

	toProc  chan struct{} // scheduler -> process: "you're running"
	toSched chan struct{} // process -> scheduler: "I yielded the CPU"
}

// maxOpenFiles sizes the fixed ofile array; config.Config.NOFile must not
// exceed it (config.Load enforces this) since it's the real per-process fd
// budget writePage claims a slot against.
const maxOpenFiles = 16

func newProc() *Proc {
	return &Proc{
		toProc:  make(chan struct{}),
		toSched: make(chan struct{}),
	}
}

func (p *Proc) reset() {
	p.state = Unused
	p.pid = 0
	p.parentPid = 0
	p.pgdir = nil
	p.sz = 0
	p.killed = false
	for i := range p.ofile {
		p.ofile[i] = nil
	}
	p.cwd = ""
	p.name = ""
	p.ctime, p.retime, p.rutime, p.stime = 0, 0, 0, 0
	p.priority = 0
	p.ticksElapsed = 0
	p.satisfied = false
	p.isShellChild = false
	p.chanOn = 0
	p.trapva = 0
	p.cpu = nil
	p.body = nil
}
