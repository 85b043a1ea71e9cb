package kernel

// chooseVictimAndEvict picks a page belonging to some process other than
// excludePid, writes it out, and frees its frame (spec.md §4.8). Callers
// must hold both table.lock and swapOut.lock on self.cpu; both are
// released for the page-file write and reacquired before returning,
// matching original_source/proc.c's chooseVictimAndEvict.
//
// Victim selection buckets candidate pages by a 2-bit aging class derived
// from the accessed/dirty PTE bits, remapping the middle two buckets
// (idx>0 && idx<3 => idx=3-idx) so "dirty but not recently accessed"
// pages are preferred over "accessed but not dirty" ones — reproduced
// exactly per spec.md §9, not re-derived from first principles.
func (k *Kernel) chooseVictimAndEvict(self *Proc, excludePid int) bool {
	victimProc, victimVA, found := k.findVictim(excludePid)
	if !found {
		return false
	}

	prevState := victimProc.state
	prevChan := victimProc.chanOn
	// Temporarily mark the victim's owner Sleeping so nothing else
	// dispatches or reaps it while its page table is mid-update; restored
	// exactly once the write completes either way.
	victimProc.state = Sleeping
	victimProc.chanOn = 0

	entry := victimProc.pgdir.PTEFor(victimVA)
	entry.flags &^= ptePresent

	k.swapOut.lock.Unlock(self.cpu)
	k.lock.Unlock(self.cpu)

	vpage := victimVA / uintptr(k.cfg.PageSize)
	err := k.writePage(self, victimProc.pid, vpage, make([]byte, k.cfg.PageSize))

	k.lock.Lock(self.cpu)
	k.swapOut.lock.Lock(self.cpu)

	if err != nil {
		entry.flags |= ptePresent
		victimProc.state = prevState
		victimProc.chanOn = prevChan
		return false
	}

	victimProc.pgdir.FreeFrame(victimVA)
	victimProc.state = prevState
	victimProc.chanOn = prevChan
	return true
}

func (k *Kernel) findVictim(excludePid int) (*Proc, uintptr, bool) {
	for bucket := 0; bucket < 4; bucket++ {
		for _, p := range k.procs {
			if !k.evictionEligible(p, excludePid) {
				continue
			}
			for _, va := range p.pgdir.EvictablePages() {
				if agingBucket(p.pgdir.PTEFor(va)) == bucket {
					return p, va, true
				}
			}
		}
	}
	return nil, 0, false
}

func (k *Kernel) evictionEligible(p *Proc, excludePid int) bool {
	if p.state == Unused || p.state == Embryo || p.state == Running {
		return false
	}
	if p.pid == excludePid || p == k.initProc {
		return false
	}
	if p.name == "swapoutd" || p.name == "swapind" {
		return false
	}
	return true
}

func agingBucket(entry *pte) int {
	idx := (entry.flags & (pteAccessed | pteDirty)) >> 5
	if idx > 0 && idx < 3 {
		idx = 3 - idx
	}
	return idx
}
