package sampler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/coremon/internal/model"
	"github.com/Dicklesworthstone/coremon/internal/source"
)

const (
	// MaxCores bounds the per-core rows read each cycle.
	MaxCores = 256
	// ModelNameCapacity bounds the stored model name (capacity-1 characters).
	ModelNameCapacity = 256
)

// Sampler builds dashboard frames from a Source, differencing core counters
// against the previous cycle.
type Sampler struct {
	Interval time.Duration

	src      source.Source
	engine   *Engine
	identity model.Identity
	log      zerolog.Logger
}

func New(src source.Source, interval time.Duration) *Sampler {
	return &Sampler{
		Interval: interval,
		src:      src,
		engine:   NewEngine(),
		log:      zerolog.Nop(),
	}
}

// SetLogger configures the logger for sampling events.
func (s *Sampler) SetLogger(l zerolog.Logger) { s.log = l }

// Bootstrap reads the CPU identity and seeds the engine with a first core
// sample. A bootstrap sample with more rows than cpuinfo listed wins the
// core count.
func (s *Sampler) Bootstrap() model.Identity {
	s.identity = s.src.ReadIdentity(ModelNameCapacity)

	cores, n := s.src.ReadCoreCounters(MaxCores)
	s.engine.Update(cores)
	if n > s.identity.CoreCount {
		s.log.Debug().
			Int("cpuinfo", s.identity.CoreCount).
			Int("stat", n).
			Msg("core count taken from stat")
		s.identity.CoreCount = n
	}

	s.log.Info().
		Str("model", s.identity.ModelName).
		Int("cores", s.identity.CoreCount).
		Msg("sampler ready")
	return s.identity
}

// Identity returns what Bootstrap detected.
func (s *Sampler) Identity() model.Identity { return s.identity }

// Sample reads memory and core counters once and computes utilization.
func (s *Sampler) Sample(now time.Time) model.Sample {
	memory := s.src.ReadMemory()
	cores, n := s.src.ReadCoreCounters(MaxCores)
	perCore := s.engine.Update(cores)

	s.log.Debug().Int("cores", n).Msg("sampled")
	return model.Sample{
		Timestamp: now,
		Interval:  s.Interval,
		Identity:  s.identity,
		Memory:    memory,
		Cores:     n,
		PerCore:   perCore,
	}
}

// Stream returns a channel that will receive samples until ctx is done.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Sample {
	ch := make(chan model.Sample)
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case t := <-ticker.C:
				select {
				case ch <- s.Sample(t):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
