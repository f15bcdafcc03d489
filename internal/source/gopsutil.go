package source

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/coremon/internal/model"
)

// userHZ converts gopsutil's float seconds back to kernel ticks.
const userHZ = 100

// Indirections so tests can stub the host.
var (
	virtualMemory = mem.VirtualMemory
	swapMemory    = mem.SwapMemory
	cpuInfo       = cpu.Info
	cpuTimes      = cpu.Times
)

// Gopsutil reads the same counters through gopsutil, for hosts where procfs
// is not mounted at the usual place.
type Gopsutil struct {
	log zerolog.Logger
}

func NewGopsutil() *Gopsutil { return &Gopsutil{log: zerolog.Nop()} }

// SetLogger configures where read failures are reported.
func (g *Gopsutil) SetLogger(l zerolog.Logger) { g.log = l }

func (g *Gopsutil) ReadMemory() model.Memory {
	var m model.Memory
	if vm, err := virtualMemory(); err != nil {
		g.log.Warn().Err(err).Msg("virtual memory unavailable")
	} else {
		m.TotalKB = vm.Total / 1024
		m.AvailableKB = vm.Available / 1024
	}
	if sw, err := swapMemory(); err != nil {
		g.log.Warn().Err(err).Msg("swap memory unavailable")
	} else {
		m.SwapTotalKB = sw.Total / 1024
		m.SwapFreeKB = sw.Free / 1024
	}
	return m
}

func (g *Gopsutil) ReadIdentity(capacity int) model.Identity {
	id := model.Identity{CoreCount: 1}
	infos, err := cpuInfo()
	if err != nil {
		g.log.Warn().Err(err).Msg("cpu info unavailable")
		return id
	}
	for _, in := range infos {
		if in.ModelName != "" {
			id.ModelName = truncate(in.ModelName, capacity-1)
			break
		}
	}
	if len(infos) > 0 {
		id.CoreCount = len(infos)
	}
	return id
}

func (g *Gopsutil) ReadCoreCounters(maxCores int) (model.CoreSample, int) {
	times, err := cpuTimes(true)
	if err != nil {
		g.log.Warn().Err(err).Msg("cpu times unavailable")
		return nil, 0
	}
	if len(times) > maxCores {
		times = times[:maxCores]
	}
	cores := make(model.CoreSample, len(times))
	for i, t := range times {
		idle := ticks(t.Idle) + ticks(t.Iowait)
		cores[i] = model.CoreCounters{
			Total: idle + ticks(t.User) + ticks(t.Nice) + ticks(t.System) +
				ticks(t.Irq) + ticks(t.Softirq) + ticks(t.Steal) +
				ticks(t.Guest) + ticks(t.GuestNice),
			Idle: idle,
		}
	}
	return cores, len(cores)
}

func ticks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Round(seconds * userHZ))
}
