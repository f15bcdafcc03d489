package source

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func stubHost(t *testing.T) {
	t.Helper()

	oldVM, oldSwap, oldInfo, oldTimes := virtualMemory, swapMemory, cpuInfo, cpuTimes
	t.Cleanup(func() {
		virtualMemory, swapMemory, cpuInfo, cpuTimes = oldVM, oldSwap, oldInfo, oldTimes
	})

	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16 << 30, Available: 8 << 30}, nil
	}
	swapMemory = func() (*mem.SwapMemoryStat, error) {
		return &mem.SwapMemoryStat{Total: 2 << 30, Free: 1 << 30}, nil
	}
	cpuInfo = func() ([]cpu.InfoStat, error) {
		return []cpu.InfoStat{{ModelName: "Stub CPU"}, {ModelName: "Stub CPU"}}, nil
	}
	cpuTimes = func(perCPU bool) ([]cpu.TimesStat, error) {
		if !perCPU {
			t.Fatal("cpu.Times called without per-cpu rows")
		}
		return []cpu.TimesStat{
			{CPU: "cpu0", User: 0.10, System: 0.05, Idle: 0.80},
			{CPU: "cpu1", User: 0.12, System: 0.06, Idle: 0.70, Iowait: 0.08},
			{CPU: "cpu2", User: 1},
		}, nil
	}
}

func TestGopsutil_ReadMemory(t *testing.T) {
	stubHost(t)

	m := NewGopsutil().ReadMemory()
	if m.TotalKB != 16<<20 || m.AvailableKB != 8<<20 {
		t.Errorf("memory = %+v, want 16GiB total and 8GiB available in kB", m)
	}
	if m.SwapTotalKB != 2<<20 || m.SwapFreeKB != 1<<20 {
		t.Errorf("swap = %+v, want 2GiB total and 1GiB free in kB", m)
	}
}

func TestGopsutil_ReadIdentity(t *testing.T) {
	stubHost(t)

	id := NewGopsutil().ReadIdentity(5)
	if id.ModelName != "Stub" {
		t.Errorf("ModelName = %q, want %q", id.ModelName, "Stub")
	}
	if id.CoreCount != 2 {
		t.Errorf("CoreCount = %d, want 2", id.CoreCount)
	}
}

func TestGopsutil_ReadCoreCounters(t *testing.T) {
	stubHost(t)

	cores, n := NewGopsutil().ReadCoreCounters(2)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if cores[0].Total != 95 || cores[0].Idle != 80 {
		t.Errorf("core0 = %+v, want {95 80}", cores[0])
	}
	if cores[1].Total != 96 || cores[1].Idle != 78 {
		t.Errorf("core1 = %+v, want {96 78}", cores[1])
	}
}

func TestGopsutil_FailuresDegrade(t *testing.T) {
	stubHost(t)
	boom := errors.New("boom")
	virtualMemory = func() (*mem.VirtualMemoryStat, error) { return nil, boom }
	swapMemory = func() (*mem.SwapMemoryStat, error) { return nil, boom }
	cpuInfo = func() ([]cpu.InfoStat, error) { return nil, boom }
	cpuTimes = func(bool) ([]cpu.TimesStat, error) { return nil, boom }

	g := NewGopsutil()
	if m := g.ReadMemory(); m.TotalKB != 0 || m.SwapTotalKB != 0 {
		t.Errorf("ReadMemory() = %+v, want zero", m)
	}
	if id := g.ReadIdentity(256); id.CoreCount != 1 {
		t.Errorf("ReadIdentity().CoreCount = %d, want 1", id.CoreCount)
	}
	if _, n := g.ReadCoreCounters(256); n != 0 {
		t.Errorf("ReadCoreCounters() n = %d, want 0", n)
	}
}
