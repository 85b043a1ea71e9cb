package kernel

// accrueTick charges one tick of wall-clock time to every live process
// according to its current state (spec.md §4.10's retime/rutime/stime).
// Running accounting (rutime) is charged per-slice by Tick, driven by
// workload bodies; this sweep charges the other two states, driven by
// the tick timer, standing in for the timer-interrupt handler's
// bookkeeping pass in the original kernel.
func (k *Kernel) accrueTick(cpu *Cpu) {
	k.lock.Lock(cpu)
	defer k.lock.Unlock(cpu)
	for _, p := range k.procs {
		switch p.state {
		case Runnable:
			p.retime++
		case Sleeping:
			p.stime++
		}
	}
}
