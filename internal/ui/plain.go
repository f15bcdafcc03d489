package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dicklesworthstone/coremon/internal/model"
	"github.com/Dicklesworthstone/coremon/internal/sampler"
)

// clearScreen homes the cursor and erases the display.
const clearScreen = "\033[H\033[J"

// Plain writes one full-screen refresh of s to w.
func Plain(w io.Writer, s model.Sample) error {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString("=== coremon ===\n")
	fmt.Fprintf(&b, "Processor: %s\n", s.Identity.ModelName)
	fmt.Fprintf(&b, "Cores detected: %d\n\n", s.Cores)

	m := s.Memory
	fmt.Fprintf(&b, "Memory total: %d MB\n", kbToMB(m.TotalKB))
	fmt.Fprintf(&b, "Memory available: %d MB\n", kbToMB(m.AvailableKB))
	fmt.Fprintf(&b, "Memory used: %d MB\n", kbToMB(m.UsedKB()))
	fmt.Fprintf(&b, "Swap total: %d MB, Swap used: %d MB\n\n", kbToMB(m.SwapTotalKB), kbToMB(m.SwapUsedKB()))

	for i, pct := range s.PerCore {
		fmt.Fprintf(&b, "CPU%02d: %6.2f %%\n", i, pct)
	}

	fmt.Fprintf(&b, "\n(refresh every %s)  Press Ctrl+C to quit.\n", s.Interval)
	_, err := io.WriteString(w, b.String())
	return err
}

// RunPlain waits one interval, samples, renders and repeats until ctx is done.
// Each frame is handed to observers after it is written.
func RunPlain(ctx context.Context, s *sampler.Sampler, w io.Writer, observers ...func(model.Sample)) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			frame := s.Sample(t)
			if err := Plain(w, frame); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			for _, observe := range observers {
				observe(frame)
			}
		}
	}
}

func kbToMB(kb uint64) uint64 { return kb / 1024 }
