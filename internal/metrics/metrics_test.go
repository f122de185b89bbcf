package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MyStarInYourSky/zthost/models"
)

func TestInit(t *testing.T) {
	// Reset initialized flag for testing
	initialized = false
	Registry = prometheus.NewRegistry()

	err := Init()
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	if !initialized {
		t.Error("Expected initialized to be true after Init()")
	}
}

func TestInit_MultipleCallsAreIdempotent(t *testing.T) {
	initialized = false
	Registry = prometheus.NewRegistry()

	if err := Init(); err != nil {
		t.Fatalf("First Init() failed: %v", err)
	}

	if err := Init(); err != nil {
		t.Errorf("Second Init() returned error: %v", err)
	}
}

func TestObserveRun(t *testing.T) {
	started := time.Now().Add(-2 * time.Second)
	summary := &models.RunSummary{
		RunID:      "test-run",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Networks: []models.NetworkResult{
			{
				NetworkID: "8056c2e21c000001",
				Actions:   []models.ActionKind{models.ActionJoin, models.ActionUpdate},
				Changed:   true,
			},
			{
				NetworkID: "9999999999999999",
				Actions:   []models.ActionKind{models.ActionLeave},
				Error:     "leave failed",
			},
		},
		LocalConfigChanged: true,
	}

	before := testutil.ToFloat64(RunsTotal.WithLabelValues(ResultPartial))
	rewritesBefore := testutil.ToFloat64(LocalConfigRewrites)

	ObserveRun(summary)

	if got := testutil.ToFloat64(RunsTotal.WithLabelValues(ResultPartial)); got != before+1 {
		t.Errorf("partial runs = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(NetworkActions.WithLabelValues("join", "success")); got < 1 {
		t.Errorf("join/success actions = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(NetworkActions.WithLabelValues("leave", "error")); got < 1 {
		t.Errorf("leave/error actions = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(LocalConfigRewrites); got != rewritesBefore+1 {
		t.Errorf("local config rewrites = %v, want %v", got, rewritesBefore+1)
	}
}

func TestObserveRun_AllNetworksFailed(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues(ResultError))

	ObserveRun(&models.RunSummary{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Networks: []models.NetworkResult{
			{NetworkID: "8056c2e21c000001", Error: "boom"},
		},
	})

	if got := testutil.ToFloat64(RunsTotal.WithLabelValues(ResultError)); got != before+1 {
		t.Errorf("error runs = %v, want %v", got, before+1)
	}
}
