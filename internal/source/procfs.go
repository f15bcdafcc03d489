package source

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/coremon/internal/model"
)

// DefaultProcRoot is where procfs is normally mounted.
const DefaultProcRoot = "/proc"

// maxStatFields bounds the accounting slots read per core line.
const maxStatFields = 16

// Procfs reads meminfo, cpuinfo and stat below Root.
type Procfs struct {
	Root string
	log  zerolog.Logger
}

func NewProcfs(root string) *Procfs {
	if root == "" {
		root = DefaultProcRoot
	}
	return &Procfs{Root: root, log: zerolog.Nop()}
}

// SetLogger configures where read failures are reported.
func (p *Procfs) SetLogger(l zerolog.Logger) { p.log = l }

// ReadMemory parses <Root>/meminfo. Returns a zero snapshot if unreadable.
func (p *Procfs) ReadMemory() model.Memory {
	var m model.Memory
	p.withFile("meminfo", func(r io.Reader) error {
		var err error
		m, err = ParseMemInfo(r)
		return err
	})
	return m
}

// ReadIdentity parses <Root>/cpuinfo, truncating the model name to capacity-1
// characters. CoreCount is at least 1.
func (p *Procfs) ReadIdentity(capacity int) model.Identity {
	id := model.Identity{CoreCount: 1}
	p.withFile("cpuinfo", func(r io.Reader) error {
		var err error
		id, err = ParseCPUInfo(r, capacity)
		return err
	})
	return id
}

// ReadCoreCounters parses the per-core rows of <Root>/stat, at most maxCores.
func (p *Procfs) ReadCoreCounters(maxCores int) (model.CoreSample, int) {
	var cores model.CoreSample
	p.withFile("stat", func(r io.Reader) error {
		var err error
		cores, err = ParseStat(r, maxCores)
		return err
	})
	return cores, len(cores)
}

// withFile opens name below Root, hands it to parse and closes it on every path.
func (p *Procfs) withFile(name string, parse func(io.Reader) error) {
	path := filepath.Join(p.Root, name)
	f, err := os.Open(path)
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("counter source unavailable")
		return
	}
	defer f.Close()

	if err := parse(f); err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("counter source read incomplete")
	}
}

// ParseMemInfo extracts MemTotal, MemAvailable, SwapTotal and SwapFree.
// Unknown lines are skipped and a repeated key keeps its last value. The
// returned error only reports a failed read; the snapshot holds whatever was
// parsed before it.
func ParseMemInfo(r io.Reader) (model.Memory, error) {
	var m model.Memory
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		val, ok := parseUint(fields[1])
		if !ok {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			m.TotalKB = val
		case "MemAvailable:":
			m.AvailableKB = val
		case "SwapTotal:":
			m.SwapTotalKB = val
		case "SwapFree:":
			m.SwapFreeKB = val
		}
	}
	return m, sc.Err()
}

// ParseCPUInfo returns the first "model name" value and the number of
// "processor" entries. No processor entries means CoreCount 1.
func ParseCPUInfo(r io.Reader, capacity int) (model.Identity, error) {
	var (
		id       model.Identity
		haveName bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		key, value, hasColon := strings.Cut(line, ":")

		if !haveName && strings.HasPrefix(line, "model name") && hasColon {
			id.ModelName = truncate(strings.TrimLeft(value, " \t"), capacity-1)
			haveName = true
		}
		if strings.TrimSpace(key) == "processor" {
			id.CoreCount++
		}
	}
	if id.CoreCount == 0 {
		id.CoreCount = 1
	}
	return id, sc.Err()
}

// ParseStat reads the contiguous cpuN rows at the top of /proc/stat. The
// aggregate "cpu" row is skipped and scanning stops at the first line that
// is not a cpu row or once maxCores rows were read.
//
// Total is the sum of up to 16 slots; Idle is slot 3 plus slot 4 (iowait)
// when present.
func ParseStat(r io.Reader, maxCores int) (model.CoreSample, error) {
	var cores model.CoreSample
	sc := bufio.NewScanner(r)
	for len(cores) < maxCores && sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "cpu") {
			break
		}
		fields := strings.Fields(line)
		if fields[0] == "cpu" {
			continue
		}

		slots := fields[1:]
		if len(slots) > maxStatFields {
			slots = slots[:maxStatFields]
		}
		var c model.CoreCounters
		for i, s := range slots {
			v := leadingUint(s)
			c.Total = addSat(c.Total, v)
			if i == 3 || i == 4 {
				c.Idle = addSat(c.Idle, v)
			}
		}
		cores = append(cores, c)
	}
	return cores, sc.Err()
}

func parseUint(s string) (uint64, bool) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	return leadingUint(s), true
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// leadingUint parses the leading decimal digits of s; no digits yields 0
// and values past the uint64 range saturate at math.MaxUint64.
func leadingUint(s string) uint64 {
	var v uint64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := uint64(s[i] - '0')
		if v > (math.MaxUint64-d)/10 {
			return math.MaxUint64
		}
		v = v*10 + d
	}
	return v
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
