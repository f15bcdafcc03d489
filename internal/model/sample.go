package model

import "time"

// Memory mirrors the four /proc/meminfo totals the dashboard needs, in kB.
// AvailableKB <= TotalKB is expected but not enforced.
type Memory struct {
	TotalKB     uint64
	AvailableKB uint64
	SwapTotalKB uint64
	SwapFreeKB  uint64
}

// UsedKB is TotalKB-AvailableKB, floored at zero.
func (m Memory) UsedKB() uint64 { return subFloor(m.TotalKB, m.AvailableKB) }

// SwapUsedKB is SwapTotalKB-SwapFreeKB, floored at zero.
func (m Memory) SwapUsedKB() uint64 { return subFloor(m.SwapTotalKB, m.SwapFreeKB) }

// CoreCounters are the cumulative tick totals of one logical core.
type CoreCounters struct {
	Total uint64 // sum of every accounting slot
	Idle  uint64 // idle + iowait
}

// CoreSample is one reading of every core, indexed by core number.
type CoreSample []CoreCounters

// Identity is read once at startup.
type Identity struct {
	ModelName string
	CoreCount int
}

// Sample is one dashboard frame exchanged between sampler, renderers and exporter.
type Sample struct {
	Timestamp time.Time
	Interval  time.Duration
	Identity  Identity
	Memory    Memory
	Cores     int       // rows read this cycle
	PerCore   []float64 // percent 0-100, len == Cores
}

// Zero returns an empty sample for initialization.
func Zero() Sample { return Sample{Timestamp: time.Now()} }

func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
