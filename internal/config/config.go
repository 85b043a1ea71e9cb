// Package config loads the kernel's runtime tunables. spec.md's NPROC,
// NOFILE, and timer-quantum constants are compile-time in the teaching
// kernel this repo descends from; here they're defaults that a TOML file
// can override. The scheduling policy is one of these tunables too: it is
// read from the file (or overridden by the CLI) when the Kernel is
// created, not compiled in.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Policy is the scheduling policy (spec.md §4.5). Exactly one is active
// per Kernel instance; it is taken from Config when the Kernel is created
// and is not changed afterwards.
type Policy string

const (
	PolicyDefault Policy = "default" // linear scan from slot 0 on every pick
	PolicyFCFS    Policy = "fcfs"
	PolicySML     Policy = "sml" // static multi-level
	PolicyDML     Policy = "dml" // dynamic multi-level
)

func (p Policy) Valid() bool {
	switch p {
	case PolicyDefault, PolicyFCFS, PolicySML, PolicyDML:
		return true
	default:
		return false
	}
}

// Config holds every tunable of the process/swap subsystem.
type Config struct {
	NProc     int    `toml:"nproc"`      // process table capacity
	NOFile    int    `toml:"nofile"`     // per-process open-file cap (<= maxOpenFilesLimit)
	NCPU      int    `toml:"ncpu"`       // simulated CPU count
	Policy    Policy `toml:"policy"`     // scheduling policy
	Quantum   int    `toml:"quantum"`    // ticks before DEFAULT/DML preempt
	DecPrioAt int    `toml:"dec_prio_at"` // ticks_elapsed threshold for DML dec_prio
	PageSize  int    `toml:"page_size"`  // bytes per swapped page
	FlimitMax int    `toml:"flimit_max"` // not read by the kernel; the swap-out worker's fd budget is NOFile
}

// maxOpenFilesLimit mirrors the kernel package's fixed-size per-process
// open-file table (internal/kernel.maxOpenFiles); it's duplicated here
// rather than imported to avoid a config<->kernel import cycle, since
// kernel already depends on config.
const maxOpenFilesLimit = 16

// Default mirrors spec.md's stated defaults (NPROC=64, priority default 2,
// PGSIZE=4096) plus reasonable values for the tunables spec.md leaves open.
func Default() Config {
	return Config{
		NProc:     64,
		NOFile:    16,
		NCPU:      2,
		Policy:    PolicyDefault,
		Quantum:   5,
		DecPrioAt: 10,
		PageSize:  4096,
		FlimitMax: 14,
	}
}

// Load reads a TOML file and overlays it onto Default(). A missing path is
// not an error: callers pass "" to just get the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if !cfg.Policy.Valid() {
		return Config{}, fmt.Errorf("config: invalid policy %q", cfg.Policy)
	}
	if cfg.NProc <= 0 || cfg.NOFile <= 0 || cfg.NCPU <= 0 {
		return Config{}, fmt.Errorf("config: nproc, nofile and ncpu must be positive")
	}
	if cfg.NOFile > maxOpenFilesLimit {
		return Config{}, fmt.Errorf("config: nofile %d exceeds the fixed per-process open-file table size %d", cfg.NOFile, maxOpenFilesLimit)
	}
	return cfg, nil
}
