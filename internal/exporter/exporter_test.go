package exporter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/coremon/internal/model"
)

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestExporter_Observe(t *testing.T) {
	e := New()
	e.Observe(model.Sample{
		Timestamp: time.Unix(1700000000, 0),
		Memory:    model.Memory{TotalKB: 16384000, AvailableKB: 8192000, SwapTotalKB: 2048000, SwapFreeKB: 1024000},
		Cores:     2,
		PerCore:   []float64{60, 12.5},
	})

	body := scrape(t, e)
	for _, want := range []string{
		`coremon_cpu_core_usage_percent{core="0"} 60`,
		`coremon_cpu_core_usage_percent{core="1"} 12.5`,
		`coremon_cpu_cores 2`,
		`coremon_memory_total_kb 1.6384e+07`,
		`coremon_memory_available_kb 8.192e+06`,
		`coremon_swap_free_kb 1.024e+06`,
		`coremon_last_sample_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestExporter_ObserveDropsVanishedCores(t *testing.T) {
	e := New()
	e.Observe(model.Sample{Cores: 2, PerCore: []float64{10, 20}})
	e.Observe(model.Sample{Cores: 1, PerCore: []float64{30}})

	body := scrape(t, e)
	if strings.Contains(body, `core="1"`) {
		t.Error("core 1 still exported after it disappeared")
	}
	if !strings.Contains(body, `coremon_cpu_core_usage_percent{core="0"} 30`) {
		t.Error("core 0 not updated")
	}
}

func TestExporter_Serve(t *testing.T) {
	e := New()
	e.Observe(model.Sample{Cores: 1, PerCore: []float64{42}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- e.Serve(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestExporter_ServeBadAddr(t *testing.T) {
	err := New().Serve(context.Background(), "256.0.0.1:bad")
	if err == nil {
		t.Fatal("Serve() error = nil, want listen error")
	}
	if !strings.Contains(err.Error(), "listen") {
		t.Errorf("error %q does not mention listen", err)
	}
}

func TestExporter_ScrapeDuringObserveKeepsCores(t *testing.T) {
	e := New()
	sample := model.Sample{Cores: 2, PerCore: []float64{10, 20}}
	e.Observe(sample)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sample.PerCore = []float64{float64(i % 100), 20}
			e.Observe(sample)
		}
	}()

	for i := 0; i < 50; i++ {
		body := scrape(t, e)
		if !strings.Contains(body, `core="0"`) || !strings.Contains(body, `core="1"`) {
			t.Fatalf("scrape %d missing a per-core series:\n%s", i, body)
		}
	}
	<-done
}
