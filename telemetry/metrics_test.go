package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveGeneration(GenerationStats{FitnessMean: 4.5, FitnessMax: 20})
	m.ObserveGeneration(GenerationStats{FitnessMean: 6, FitnessMax: 30})
	m.ObserveDeath("giant_frog")
	m.ObserveDeath("giant_frog")
	m.ObserveRespawn()
	m.ObservePlayerDeath()
	m.ObserveTurn(42, time.Millisecond)
	m.SetActive("giant_frog", 29)

	if v := testutil.ToFloat64(m.Generations); v != 2 {
		t.Errorf("generations_total = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.FitnessBest); v != 30 {
		t.Errorf("fitness_best = %v, want 30", v)
	}
	if v := testutil.ToFloat64(m.Deaths.WithLabelValues("giant_frog")); v != 2 {
		t.Errorf("agent_deaths_total[giant_frog] = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.Respawns); v != 1 {
		t.Errorf("respawns_total = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.PlayerDeaths); v != 1 {
		t.Errorf("player_deaths_total = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.Turn); v != 42 {
		t.Errorf("turn = %v, want 42", v)
	}
	if v := testutil.ToFloat64(m.ActiveAgents.WithLabelValues("giant_frog")); v != 29 {
		t.Errorf("active_agents[giant_frog] = %v, want 29", v)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ObserveRespawn()

	if v := testutil.ToFloat64(b.Respawns); v != 0 {
		t.Errorf("second registry saw %v respawns, want 0", v)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTurn(3, time.Microsecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "frogpond_turn 3") {
		t.Errorf("metrics output missing turn gauge:\n%s", body)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration(GenerationStats{})
	m.ObserveDeath("giant_frog")
	m.ObserveRespawn()
	m.ObservePlayerDeath()
	m.ObserveTurn(1, time.Second)
	m.SetActive("giant_frog", 1)
	if m.Registry() != nil {
		t.Error("expected nil registry")
	}
}
