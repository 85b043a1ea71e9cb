package kernel

import (
	"fmt"
	"strings"
)

// ProcSnapshot is a read-only view of one slot, returned by Procdump for
// debugging/testing without exposing the live *Proc.
type ProcSnapshot struct {
	Pid      int
	Name     string
	State    ProcState
	Priority int
	ParentPid int
}

// Procdump lists every non-Unused slot, the Go analogue of the original
// kernel's procdump() debug command (bound to a keypress on real
// hardware; here just a plain method).
func (k *Kernel) Procdump() []ProcSnapshot {
	k.lock.Lock(k.sysCpu)
	defer k.lock.Unlock(k.sysCpu)

	out := make([]ProcSnapshot, 0, len(k.procs))
	for _, p := range k.procs {
		if p.state == Unused {
			continue
		}
		out = append(out, ProcSnapshot{
			Pid:       p.pid,
			Name:      p.name,
			State:     p.state,
			Priority:  p.priority,
			ParentPid: p.parentPid,
		})
	}
	return out
}

func (s ProcSnapshot) String() string {
	return fmt.Sprintf("%d %s %s prio=%d parent=%d", s.Pid, s.State, s.Name, s.Priority, s.ParentPid)
}

// DumpString renders Procdump's output as original procdump()'s printed
// table, one line per process.
func (k *Kernel) DumpString() string {
	var b strings.Builder
	for _, s := range k.Procdump() {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}
