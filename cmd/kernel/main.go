// Command kernel boots the process table, scheduler and swap subsystem
// and runs a small demo workload under it, replacing biscuit's bare
// `func main()` + hardcoded `exec("bin/init", nil)` boot sequence with a
// cobra CLI so the policy and swap backend are selectable at run time.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PradKalkar/xv6-go/internal/config"
	"github.com/PradKalkar/xv6-go/internal/kernel"
	"github.com/PradKalkar/xv6-go/internal/klog"
	"github.com/PradKalkar/xv6-go/internal/workload"
)

var (
	configPath string
	policyFlag string
	swapDir    string
	runFor     time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "xv6-go",
		Short: "process table, scheduler and swap subsystem demo kernel",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a TOML tunables file")
	root.Flags().StringVar(&policyFlag, "policy", "", "override the configured scheduling policy (default|fcfs|sml|dml)")
	root.Flags().StringVar(&swapDir, "swap-dir", "", "directory for swap page files (defaults to an in-memory store)")
	root.Flags().DurationVar(&runFor, "run-for", 2*time.Second, "how long to run the demo workload before shutting down")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if policyFlag != "" {
		cfg.Policy = config.Policy(policyFlag)
		if !cfg.Policy.Valid() {
			return fmt.Errorf("invalid --policy %q", policyFlag)
		}
	}

	var pages kernel.PageStore
	if swapDir != "" {
		pages, err = kernel.NewDirPageStore(swapDir)
		if err != nil {
			return err
		}
	} else {
		pages = kernel.NewMemPageStore()
	}

	log := klog.For("cmd")

	k := kernel.New(cfg, pages)
	k.Userinit(uintptr(cfg.PageSize))
	k.Boot()
	k.StartTickTimer(10 * time.Millisecond)
	log.Info().Str("policy", string(cfg.Policy)).Msg("kernel booted")

	// Every demo workload forks as a child of the shell-analogue process
	// rather than init, so its exit is treated as a shell child's exit
	// (deleteSwapoutPageFiles runs, clearing out any page files the swap
	// workers opened on its behalf) just as a real shell's children would.
	sh := k.ShellProc()
	k.Fork(sh, "cpu-hog", workload.CPUBound(200))
	k.Fork(sh, "napper", workload.SleepThenExit(20))
	k.Fork(sh, "allocator", workload.MemoryPressure(32, cfg.PageSize))

	var stats kernel.WaitStats
	k.Fork(sh, "accountant", workload.Wait2Workload(30, 10, &stats))

	var drawn int
	k.Fork(sh, "artist", workload.DrawWorkload(64, &drawn))

	time.Sleep(runFor)

	fmt.Print(k.DumpString())
	log.Info().Int("rutime", stats.RunTime).Int("stime", stats.SleepTime).Msg("accountant stats")
	log.Info().Int("drawn", drawn).Msg("artist draw result")
	k.Shutdown()
	return nil
}
