package kernel

import "github.com/PradKalkar/xv6-go/internal/klog"

// SwapQueue is a bounded FIFO of process references, the queuing
// mechanism behind both swap-out and swap-in requests (spec.md §4.6). It
// is guarded by its own Spinlock, always acquired after table.lock (the
// fixed lock order spec.md §5 names).
type SwapQueue struct {
	lock    Spinlock
	items   []*Proc
	front   int
	rear    int
	size    int
	qchan   Chan // workers sleep here waiting for work
	reqchan Chan // requesters sleep here waiting for their turn (swap-out only)
}

func newSwapQueue(capacity int, qchan, reqchan Chan) *SwapQueue {
	return &SwapQueue{
		items:   make([]*Proc, capacity+1),
		rear:    capacity,
		qchan:   qchan,
		reqchan: reqchan,
	}
}

func (q *SwapQueue) enqueue(p *Proc) {
	q.rear = (q.rear + 1) % len(q.items)
	q.items[q.rear] = p
	q.size++
}

func (q *SwapQueue) dequeue() *Proc {
	p := q.items[q.front]
	q.items[q.front] = nil
	q.front = (q.front + 1) % len(q.items)
	q.size--
	return p
}

// SubmitReqToSwapOut enqueues p as a swap-out candidate and blocks until
// the swap-out worker has evicted some victim page on p's behalf (spec.md
// §4.7's submitReqToSwapOut). p itself need not be the page owner; it is
// only the requester whose memory pressure triggered the request.
func (k *Kernel) SubmitReqToSwapOut(p *Proc) {
	k.lock.Lock(p.cpu)
	k.swapOut.lock.Lock(p.cpu)
	p.satisfied = false
	k.swapOut.enqueue(p)
	k.wakeup1(k.swapOut.qchan)
	k.swapOut.lock.Unlock(p.cpu)

	for !p.satisfied {
		k.Sleep(p, k.swapOut.reqchan, &k.lock)
	}
	k.lock.Unlock(p.cpu)
}

// SubmitReqToSwapIn enqueues p, whose own faulting address is p.trapva,
// and blocks until the swap-in worker has paged it back in. The requester
// sleeps on a channel derived from its own pid rather than the shared
// reqchan (original_source/proc.c casts the requester's pid directly to
// a channel for this call; modeled here as a distinct Chan so it cannot
// collide with any wait-channel also keyed by that pid — spec.md §9).
func (k *Kernel) SubmitReqToSwapIn(p *Proc, faultVA uintptr) {
	k.lock.Lock(p.cpu)
	k.swapIn.lock.Lock(p.cpu)
	p.satisfied = false
	p.trapva = faultVA
	k.swapIn.enqueue(p)
	k.wakeup1(k.swapIn.qchan)
	k.swapIn.lock.Unlock(p.cpu)

	ch := swapInChan(p.pid)
	for !p.satisfied {
		k.Sleep(p, ch, &k.lock)
	}
	k.lock.Unlock(p.cpu)
}

// swapOutWorker is the body of the swap-out kernel process: sleep until a
// request arrives, then drain the queue one victim at a time, retrying
// indefinitely (yield-and-retry, never failing the requester — spec.md
// §7) whenever no eligible victim exists or the fd budget is exhausted.
func (k *Kernel) swapOutWorker(kk *Kernel, self *Proc) {
	log := klog.For("swap")

	k.lock.Lock(self.cpu)
	k.Sleep(self, k.swapOut.qchan, &k.lock)
	k.lock.Unlock(self.cpu)

	for {
		k.lock.Lock(self.cpu)
		k.swapOut.lock.Lock(self.cpu)

		for k.swapOut.size > 0 {
			for k.flimit >= k.cfg.NOFile {
				k.wakeup1(k.swapOut.reqchan)
				k.swapOut.lock.Unlock(self.cpu)
				k.lock.Unlock(self.cpu)
				k.Yield(self)
				k.lock.Lock(self.cpu)
				k.swapOut.lock.Lock(self.cpu)
			}

			victim := k.swapOut.dequeue()
			for !k.chooseVictimAndEvict(self, victim.pid) {
				k.swapOut.lock.Unlock(self.cpu)
				k.lock.Unlock(self.cpu)
				k.Yield(self)
				k.lock.Lock(self.cpu)
				k.swapOut.lock.Lock(self.cpu)
			}
			victim.satisfied = true
			log.Debug().Int("requester", victim.pid).Msg("swap-out satisfied")
		}

		k.wakeup1(k.swapOut.reqchan)
		k.swapOut.lock.Unlock(self.cpu)
		k.Sleep(self, k.swapOut.qchan, &k.lock)
		k.lock.Unlock(self.cpu)
	}
}

// swapInWorker is the body of the swap-in kernel process: for each
// requester, read its faulting page back from its page file, mark the
// frame present, and wake the requester on its pid-derived channel.
func (k *Kernel) swapInWorker(kk *Kernel, self *Proc) {
	log := klog.For("swap")

	k.lock.Lock(self.cpu)
	k.Sleep(self, k.swapIn.qchan, &k.lock)
	k.lock.Unlock(self.cpu)

	for {
		k.lock.Lock(self.cpu)
		k.swapIn.lock.Lock(self.cpu)

		for k.swapIn.size > 0 {
			requester := k.swapIn.dequeue()
			vpage := requester.trapva / uintptr(k.cfg.PageSize)

			k.swapIn.lock.Unlock(self.cpu)
			k.lock.Unlock(self.cpu)

			_, err := k.readPage(self, requester.pid, vpage)

			k.lock.Lock(self.cpu)
			k.swapIn.lock.Lock(self.cpu)

			if err != nil {
				log.Warn().Int("requester", requester.pid).Err(err).Msg("swap-in read failed, retrying")
				k.swapIn.enqueue(requester)
				k.swapIn.lock.Unlock(self.cpu)
				k.lock.Unlock(self.cpu)
				k.Yield(self)
				k.lock.Lock(self.cpu)
				k.swapIn.lock.Lock(self.cpu)
				continue
			}

			entry := requester.pgdir.PTEFor(requester.trapva)
			entry.flags |= ptePresent
			entry.flags &^= pteSwapped
			_ = k.deletePage(self, requester.pid, vpage)

			requester.satisfied = true
			k.wakeup1(swapInChan(requester.pid))
			log.Debug().Int("requester", requester.pid).Msg("swap-in satisfied")
		}

		k.swapIn.lock.Unlock(self.cpu)
		k.Sleep(self, k.swapIn.qchan, &k.lock)
		k.lock.Unlock(self.cpu)
	}
}
