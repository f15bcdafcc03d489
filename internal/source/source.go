// Package source reads the kernel counters coremon samples: memory totals,
// per-core time accounting and the CPU identity.
//
// Reads never fail loudly. An unreadable source is logged and yields a zero
// value so the dashboard degrades for one cycle instead of stopping.
package source

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/coremon/internal/model"
)

// Source provides point-in-time snapshots of cumulative kernel counters.
type Source interface {
	ReadMemory() model.Memory
	ReadIdentity(capacity int) model.Identity
	ReadCoreCounters(maxCores int) (model.CoreSample, int)
}

// Names of the available implementations.
const (
	NameProcfs   = "procfs"
	NameGopsutil = "gopsutil"
)

// Names lists the valid values for New.
var Names = []string{NameProcfs, NameGopsutil}

// New returns the named Source. procRoot only applies to procfs.
func New(name, procRoot string, log zerolog.Logger) (Source, error) {
	switch name {
	case NameProcfs, "":
		p := NewProcfs(procRoot)
		p.SetLogger(log)
		return p, nil
	case NameGopsutil:
		g := NewGopsutil()
		g.SetLogger(log)
		return g, nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}
