package kernel

import (
	"runtime"

	"github.com/PradKalkar/xv6-go/internal/config"
)

// schedulerLoop is the per-CPU dispatch loop (spec.md §4.5). It holds
// table.lock only transiently: pick a Runnable slot, mark it Running,
// release the lock, then hand control to that slot's goroutine over
// toProc and block on toSched until it yields the CPU back.
func (k *Kernel) schedulerLoop(cpu *Cpu) {
	for {
		select {
		case <-k.stop:
			return
		default:
		}

		k.lock.Lock(cpu)
		p := k.pick(cpu)
		if p == nil {
			k.lock.Unlock(cpu)
			runtime.Gosched()
			continue
		}
		p.state = Running
		p.cpu = cpu
		p.ticksElapsed = 0
		k.lock.Unlock(cpu)

		p.toProc <- struct{}{}
		<-p.toSched
	}
}

// pick selects the next Runnable slot under the active policy (spec.md
// §4.5). Callers must hold table.lock.
func (k *Kernel) pick(cpu *Cpu) *Proc {
	switch k.cfg.Policy {
	case config.PolicyFCFS:
		return k.pickFCFS()
	case config.PolicySML:
		return k.findMaxPrioSML(cpu)
	case config.PolicyDML:
		return k.findMaxPrioDML(cpu)
	default:
		return k.pickDefault()
	}
}

// pickDefault serves the DEFAULT policy: a fresh linear scan from slot 0
// on every call, returning the lowest-indexed Runnable slot. No cursor is
// kept between calls, so a slot that yields while still Runnable is picked
// again ahead of every higher-indexed Runnable slot; those run only once
// each lower-indexed slot is sleeping, exited or running on another CPU.
func (k *Kernel) pickDefault() *Proc {
	for _, p := range k.procs {
		if p.state == Runnable {
			return p
		}
	}
	return nil
}

// pickFCFS dispatches the Runnable slot with the smallest ctime, ties
// broken by table order (the first Runnable slot scanned becomes the
// initial minimum, same as the original's `<` comparison).
func (k *Kernel) pickFCFS() *Proc {
	var best *Proc
	for _, p := range k.procs {
		if p.state != Runnable {
			continue
		}
		if best == nil || p.ctime < best.ctime {
			best = p
		}
	}
	return best
}

// findMaxPrioSML and findMaxPrioDML are intentionally identical
// (spec.md §9 design note: the original C keeps these as two separate
// functions selected by build mode even though their bodies never
// diverged). This repository keeps the two separate entry points, chosen
// by policy in pick, and both delegate to the shared findMaxPrio scan.
func (k *Kernel) findMaxPrioSML(cpu *Cpu) *Proc { return k.findMaxPrio(cpu) }
func (k *Kernel) findMaxPrioDML(cpu *Cpu) *Proc { return k.findMaxPrio(cpu) }

// findMaxPrio scans priority classes 3, 2, 1 in that order, within each
// class scanning the table starting from that class's rotating cursor so
// repeated calls don't starve later slots at the same priority. On a hit
// the cursor advances past the hit by 1+i slots (i being the scan offset
// at which the hit was found) — the exact tie-break arithmetic from
// original_source/proc.c's find_max_prio, reproduced here because spec.md
// only describes the rotation in prose.
func (k *Kernel) findMaxPrio(cpu *Cpu) *Proc {
	n := len(k.procs)
	for _, priority := range [...]int{3, 2, 1} {
		cursor := cpu.cursor(priority)
		for i := 0; i < n; i++ {
			idx := (*cursor + i) % n
			cand := k.procs[idx]
			if cand.state == Runnable && cand.priority == priority {
				*cursor = (*cursor + 1 + i) % n
				return cand
			}
		}
	}
	return nil
}

// sched transfers control from a process back to the scheduler that
// dispatched it. Callers must already hold table.lock with nothing else
// held (cpu.ncli == 1) and must have already set a non-Running state.
func (k *Kernel) sched(p *Proc) {
	cpu := p.cpu
	if !k.lock.Holding() {
		panic("sched: table.lock not held")
	}
	if cpu.ncli != 1 {
		panic("sched: locks held besides table.lock")
	}
	if p.state == Running {
		panic("sched: still Running")
	}

	k.lock.Unlock(cpu)
	p.toSched <- struct{}{}
	<-p.toProc
	// The scheduler that redispatched us may be a different simulated
	// CPU; reload p.cpu before touching cli bookkeeping.
	k.lock.Lock(p.cpu)
}

// Yield voluntarily gives up the CPU, staying Runnable (spec.md §4.5's
// yield()). Workload bodies call this at the end of a time slice; Tick
// calls it automatically once a policy's quantum is exhausted.
func (k *Kernel) Yield(p *Proc) {
	k.lock.Lock(p.cpu)
	p.state = Runnable
	k.sched(p)
	k.lock.Unlock(p.cpu)
}

// Tick accounts one unit of CPU time against p and, under DEFAULT/DML,
// preempts once the active policy's quantum is exhausted. Workload bodies
// call this from their simulated instruction loop in place of a hardware
// timer interrupt driving yield() (spec.md's trap/interrupt delivery is an
// external collaborator; this is the seam workloads drive instead).
func (k *Kernel) Tick(p *Proc) {
	k.lock.Lock(p.cpu)
	p.rutime++
	p.ticksElapsed++
	preempt := false
	switch k.cfg.Policy {
	case config.PolicyDefault:
		preempt = p.ticksElapsed >= k.cfg.Quantum
	case config.PolicyDML:
		if p.ticksElapsed >= k.cfg.DecPrioAt && p.priority > 1 {
			p.priority--
			p.ticksElapsed = 0
		}
		preempt = p.ticksElapsed >= k.cfg.Quantum
	}
	k.lock.Unlock(p.cpu)
	if preempt {
		k.Yield(p)
	}
}
