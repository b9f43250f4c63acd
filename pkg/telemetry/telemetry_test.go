package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestConfigValidation covers the accepted and rejected configurations.
func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	bad := DefaultConfig()
	bad.Logging.Level = "loud"
	if err := bad.Validate(); err == nil {
		t.Error("expected invalid log level to be rejected")
	}

	bad = DefaultConfig()
	bad.Tracing.Enabled = true
	bad.Tracing.Exporter = "jaeger"
	if err := bad.Validate(); err == nil {
		t.Error("expected unsupported exporter to be rejected")
	}

	bad = DefaultConfig()
	bad.Metrics.ListenAddress = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected empty metrics address to be rejected")
	}
}

// TestMetricsDisabledIsNoop verifies the no-op instance never panics.
func TestMetricsDisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.PassStarted()
	m.PassCompleted("ok", time.Second)
	m.EntityProcessed("domain", "error")
	m.EntityDuration("domain", "add", time.Millisecond)
	m.SetQueueDepth("mail", 3)
	m.LockContention()
}

// TestMetricsExposition verifies registered metrics appear on the endpoint.
func TestMetricsExposition(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:       true,
		ListenAddress: ":0",
		Namespace:     "hostforge",
	})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.PassStarted()
	m.EntityProcessed("domain", "ok")
	m.EntityProcessed("mail", "error")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 64*1024)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])

	for _, want := range []string{
		"hostforge_passes_started_total",
		"hostforge_entities_processed_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

// TestLoggerConstruction verifies logger creation for both formats.
func TestLoggerConstruction(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		l, err := NewLogger(LoggingConfig{Level: "debug", Format: format, Output: "stderr"})
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		l.NewComponentLogger("processor").WithEntity("domain", 42).Debug("ready")
	}
}
