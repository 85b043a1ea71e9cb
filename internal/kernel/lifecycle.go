package kernel

// WaitStats is the four timing fields sys_wait2 hands back to the caller
// (original_source/sysproc.c's retime/rutime/stime/ctime out-params).
type WaitStats struct {
	ReadyTime  int // ticks spent Runnable, waiting for a CPU
	RunTime    int // ticks spent actually running
	SleepTime  int // ticks spent Sleeping
	CreateTime int // ticks value at creation
}

// Fork creates a child of parent running childBody, duplicating address
// space, open files, cwd and priority (spec.md §4.3). Since trap frames
// and register-level continuation are externalized (non-goal), the
// Go-native equivalent of "child resumes exactly where fork() returned 0"
// is an explicit child body supplied by the caller — the same shape a
// workload already uses to decide "if this is the child, do X".
func (k *Kernel) Fork(parent *Proc, childName string, childBody Body) int {
	child, ok := k.allocProc(childName)
	if !ok {
		return -1
	}

	child.pgdir = parent.pgdir.Clone()
	child.sz = parent.sz
	child.parentPid = parent.pid
	child.priority = parent.priority
	child.cwd = parent.cwd
	child.isShellChild = parent.name == "sh"
	for i, f := range parent.ofile {
		if f != nil {
			f.refcount++
			child.ofile[i] = f
		}
	}
	pid := child.pid

	go k.runProc(child)
	k.lock.Lock(k.sysCpu)
	child.state = Runnable
	k.lock.Unlock(k.sysCpu)
	return pid
}

// GrowProc adjusts the calling process's address space size by n bytes
// (spec.md §4.3's growproc()), returning false if the AddrSpace refuses.
func (k *Kernel) GrowProc(p *Proc, n int) bool {
	sz, ok := p.pgdir.Grow(n)
	if !ok {
		return false
	}
	p.sz = sz
	return true
}

// Exit tears down p: closes its files, reparents its children to init,
// wakes its parent, and becomes a Zombie for the parent to reap (spec.md
// §4.4). deleteSwapoutPageFiles runs first when the exiting process is a
// shell child (original_source/proc.c's `curproc->parent->pid == 4`
// special case, generalized per SUPPLEMENTED FEATURES).
func (k *Kernel) Exit(p *Proc) {
	if p == k.initProc {
		panic("init exiting")
	}

	for i := range p.ofile {
		k.closeFile(p, i)
	}
	p.cwd = ""

	if p.isShellChild {
		k.deleteSwapoutPageFiles(p.cpu)
	}

	k.lock.Lock(p.cpu)
	if parent, ok := k.byPid[p.parentPid]; ok {
		k.wakeup1(waitChan(parent.pid))
	}
	for _, c := range k.procs {
		if c.state != Unused && c.parentPid == p.pid {
			c.parentPid = k.initProc.pid
			if c.state == Zombie {
				k.wakeup1(waitChan(k.initProc.pid))
			}
		}
	}
	p.state = Zombie
	k.sched(p)
	panic("exited process rescheduled")
}

// Wait blocks the caller until a child exits, reaps the first zombie
// child found and returns its pid, or -1 if the caller has no children or
// is killed while waiting (spec.md §4.4's wait()).
func (k *Kernel) Wait(p *Proc) int {
	pid, _ := k.waitImpl(p, false)
	return pid
}

// Wait2 is like Wait but also returns the reaped child's accounting
// fields (spec.md §4.4/§4.10's wait2()).
func (k *Kernel) Wait2(p *Proc) (int, WaitStats) {
	return k.waitImpl(p, true)
}

func (k *Kernel) waitImpl(p *Proc, withStats bool) (int, WaitStats) {
	k.lock.Lock(p.cpu)
	defer k.lock.Unlock(p.cpu)

	for {
		haveKids := false
		for _, c := range k.procs {
			if c.state == Unused || c.parentPid != p.pid {
				continue
			}
			haveKids = true
			if c.state == Zombie {
				pid := c.pid
				var stats WaitStats
				if withStats {
					stats = WaitStats{
						ReadyTime:  c.retime,
						RunTime:    c.rutime,
						SleepTime:  c.stime,
						CreateTime: c.ctime,
					}
				}
				delete(k.byPid, pid)
				c.reset()
				return pid, stats
			}
		}
		if !haveKids || p.killed {
			return -1, WaitStats{}
		}
		k.Sleep(p, waitChan(p.pid), &k.lock)
	}
}
