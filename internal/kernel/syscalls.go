package kernel

import "time"

// googleLogo is the embedded ASCII-art payload for the draw syscall
// (original_source/sysproc.c's sys_draw embeds it as a C string literal;
// the content and length check are part of spec.md §6's external
// interface, not the VM copy-to-userspace mechanics it builds on).
const googleLogo = `  ____                   _
 / ___| ___   ___   __ _| | ___
| |  _ / _ \ / _ \ / _` + "`" + ` | |/ _ \
| |_| | (_) | (_) | (_| | |  __/
 \____|\___/ \___/ \__, |_|\___|
                    |___/
`

// The kernel-level syscall surface (spec.md §6). Each method takes the
// calling process explicitly since the trap frame that would otherwise
// carry "curproc" is an external collaborator (non-goal).

func (k *Kernel) SysFork(p *Proc, childName string, childBody Body) int {
	return k.Fork(p, childName, childBody)
}

func (k *Kernel) SysExit(p *Proc) {
	k.Exit(p)
}

func (k *Kernel) SysWait(p *Proc) int {
	return k.Wait(p)
}

func (k *Kernel) SysWait2(p *Proc) (int, WaitStats) {
	return k.Wait2(p)
}

func (k *Kernel) SysKill(pid int) int {
	return k.Kill(pid)
}

func (k *Kernel) SysGetPid(p *Proc) int {
	return p.pid
}

// SysSbrk adjusts p's address space by n bytes, returning the size prior
// to growth on success or -1 on failure (original_source/sysproc.c notes
// the growproc() call itself is commented out there, i.e. lazily
// allocated on first fault; this repository's AddrSpace has no lazy
// fault path to externalize to, so SysSbrk grows eagerly instead).
func (k *Kernel) SysSbrk(p *Proc, n int) int {
	before := int(p.sz)
	if !k.GrowProc(p, n) {
		return -1
	}
	return before
}

// SysSleep blocks the caller for n ticks of the kernel's wall clock,
// waking early only if killed (original_source/sysproc.c's sys_sleep).
func (k *Kernel) SysSleep(p *Proc, n int) int {
	k.tickLock.Lock(p.cpu)
	start := k.ticks
	for k.ticks-start < n {
		if p.killed {
			k.tickLock.Unlock(p.cpu)
			return -1
		}
		k.Sleep(p, ticksChan(), &k.tickLock)
	}
	k.tickLock.Unlock(p.cpu)
	return 0
}

func (k *Kernel) SysUptime(p *Proc) int {
	k.tickLock.Lock(p.cpu)
	defer k.tickLock.Unlock(p.cpu)
	return k.ticks
}

// SysSetPrio overrides p's scheduling priority directly — a debug/test
// knob present in the original teaching kernel alongside the normal
// DML decay/restore machinery.
func (k *Kernel) SysSetPrio(p *Proc, priority int) int {
	if priority < 1 || priority > 3 {
		return 1
	}
	k.lock.Lock(p.cpu)
	p.priority = priority
	k.lock.Unlock(p.cpu)
	return 0
}

func (k *Kernel) SysYield(p *Proc) {
	k.Yield(p)
}

// SysDraw copies the embedded logo into buf, returning the number of
// bytes written or -1 if buf is too small (original_source/sysproc.c's
// sys_draw, used by spec.md §8's S2/S3 buffer-sizing scenarios).
func (k *Kernel) SysDraw(buf []byte) int {
	if len(buf) < len(googleLogo) {
		return -1
	}
	return copy(buf, googleLogo)
}

// SysHistory returns the name of every process ever created, in creation
// order — a coarse "ps history" debug surface, standing in for the
// original's sys_history.
func (k *Kernel) SysHistory() []string {
	k.lock.Lock(k.sysCpu)
	defer k.lock.Unlock(k.sysCpu)
	names := make([]string, len(k.history))
	copy(names, k.history)
	return names
}

// StartTickTimer advances the kernel's wall clock every interval and
// wakes anyone sleeping on it (the sys_sleep channel), standing in for
// the periodic timer interrupt spec.md externalizes as trap/interrupt
// delivery (non-goal).
func (k *Kernel) StartTickTimer(interval time.Duration) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-k.stop:
				return
			case <-t.C:
				k.tickLock.Lock(k.sysCpu)
				k.ticks++
				k.tickLock.Unlock(k.sysCpu)
				k.accrueTick(k.sysCpu)
				k.Wakeup(k.sysCpu, ticksChan())
			}
		}
	}()
}
