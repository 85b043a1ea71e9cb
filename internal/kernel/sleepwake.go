package kernel

import "github.com/PradKalkar/xv6-go/internal/config"

// Sleep puts p to sleep on ch, atomically releasing lk (any lock other
// than table.lock) and reacquiring it on wake (spec.md §4.6's sleep(chan,
// lk)). The caller must already hold lk. If lk is table.lock itself, no
// extra acquire/release dance is needed since sched() already drops and
// retakes it around the handoff.
func (k *Kernel) Sleep(p *Proc, ch Chan, lk *Spinlock) {
	cpu := p.cpu
	if lk != &k.lock {
		k.lock.Lock(cpu)
		lk.Unlock(cpu)
	}

	p.chanOn = ch
	p.state = Sleeping
	k.sched(p)
	p.chanOn = 0

	if lk != &k.lock {
		k.lock.Unlock(p.cpu)
		lk.Lock(p.cpu)
	}
}

// wakeup1 wakes every Sleeping slot on ch. Callers must already hold
// table.lock. Under the DML policy, waking a slot restores its priority
// to the top class (spec.md §4.5 — "a process that slept voluntarily is
// not penalized for the time it spent blocked").
func (k *Kernel) wakeup1(ch Chan) {
	if ch == 0 {
		return
	}
	for _, p := range k.procs {
		if p.state == Sleeping && p.chanOn == ch {
			p.state = Runnable
			if k.cfg.Policy == config.PolicyDML {
				p.priority = 3
			}
		}
	}
}

// Wakeup acquires table.lock on behalf of cpu and wakes every slot
// sleeping on ch. Use this from contexts that are not themselves a
// dispatched process (e.g. the tick timer, Kill called from outside any
// process).
func (k *Kernel) Wakeup(cpu *Cpu, ch Chan) {
	k.lock.Lock(cpu)
	k.wakeup1(ch)
	k.lock.Unlock(cpu)
}

// Kill marks pid for death and wakes it if it's merely Sleeping, matching
// spec.md §4.2's kill(): a Sleeping process becomes Runnable so it can
// observe p.killed and unwind; a Running one only notices at its next
// voluntary checkpoint.
func (k *Kernel) Kill(pid int) int {
	k.lock.Lock(k.sysCpu)
	defer k.lock.Unlock(k.sysCpu)

	p, ok := k.byPid[pid]
	if !ok {
		return -1
	}
	p.killed = true
	if p.state == Sleeping {
		p.state = Runnable
	}
	return 0
}
