package simd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/simulator"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

var referenceWinner = models.DeviceConfig{Material: "WS2", Layers: 5, WavelengthNm: 1300, Q: 391.7, Gamma: 0.50}

func sampleCandidates() []models.DeviceConfig {
	return []models.DeviceConfig{
		{Material: "MOS2", Layers: 5, WavelengthNm: 1300, Q: 512.4, Gamma: 0.31},
		{Material: "WS2", Layers: 3, WavelengthNm: 1400, Q: 120.0, Gamma: 0.22},
		{Material: "MOS2", Layers: 4, WavelengthNm: 1350, Q: 845.3, Gamma: 0.47},
		referenceWinner,
		{Material: "WS2", Layers: 2, WavelengthNm: 1550, Q: 57.9, Gamma: 0.12},
		{Material: "MOS2", Layers: 1, WavelengthNm: 1600, Q: 10.0, Gamma: 0.05},
		{Material: "WS2", Layers: 4, WavelengthNm: 1450, Q: 233.1, Gamma: 0.41},
		{Material: "MOS2", Layers: 3, WavelengthNm: 1500, Q: 671.8, Gamma: 0.18},
	}
}

func newTestExecutor(notifier *Notifier) *SearchExecutor {
	sim := simulator.New(material.DefaultCatalog())
	return NewSearchExecutor(NewRunStore(), sim, config.Scorer{Objective: config.ObjectiveContrastPerEnergy}, notifier)
}

func waitFor(t *testing.T, exec *SearchExecutor, runID string) *RunRecord {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rec, err := exec.Wait(ctx, runID)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	return rec
}

func TestSearchExecutorSubmitCompletes(t *testing.T) {
	for _, workers := range []int{0, 4} {
		exec := newTestExecutor(nil)
		rec, err := exec.Submit(&SearchRequest{
			Search: config.Search{Candidates: sampleCandidates(), Workers: workers},
		})
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if rec.Run.Strategy != "list" || rec.Run.Total != 8 {
			t.Fatalf("unexpected run: %+v", rec.Run)
		}

		done := waitFor(t, exec, rec.Run.ID)
		if done.Run.Status != RunStatusCompleted {
			t.Fatalf("workers=%d: expected completed, got %v (%s)", workers, done.Run.Status, done.Run.Error)
		}
		if done.Run.StartedAtUnixMs == 0 || done.Run.EndedAtUnixMs == 0 {
			t.Fatalf("expected timestamps to be set")
		}
		if done.Result == nil || done.Result.Best == nil {
			t.Fatalf("expected a best record")
		}
		if done.Result.Best.Config != referenceWinner {
			t.Fatalf("workers=%d: expected %v, got %v", workers, referenceWinner, done.Result.Best.Config)
		}
		if math.Abs(done.Result.Best.Score-1.0050e-2)/1.0050e-2 > 0.01 {
			t.Fatalf("unexpected best score %v", done.Result.Best.Score)
		}
		if done.Run.Done != 8 {
			t.Fatalf("expected done 8, got %d", done.Run.Done)
		}
	}
}

func TestSearchExecutorScorerOverride(t *testing.T) {
	exec := newTestExecutor(nil)
	rec, err := exec.Submit(&SearchRequest{
		Search: config.Search{Candidates: sampleCandidates()},
		Scorer: &config.Scorer{Objective: config.ObjectiveFigureOfMerit},
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if rec.Run.Objective != "figure_of_merit" {
		t.Fatalf("expected figure_of_merit, got %s", rec.Run.Objective)
	}
	done := waitFor(t, exec, rec.Run.ID)
	if done.Result.Best.Config != referenceWinner {
		t.Fatalf("expected %v, got %v", referenceWinner, done.Result.Best.Config)
	}
}

func TestSearchExecutorRejectsMalformedRequests(t *testing.T) {
	tests := []struct {
		name string
		req  *SearchRequest
	}{
		{"nil request", nil},
		{"unknown strategy", &SearchRequest{Search: config.Search{Strategy: "annealing"}}},
		{"bad gamma", &SearchRequest{Search: config.Search{Gamma: []float64{1.5}}}},
		{"empty list", &SearchRequest{Search: config.Search{Strategy: "list"}}},
		{"no matching materials", &SearchRequest{Search: config.Search{Sourcing: []models.Sourcing{models.SourcingExperimental}}}},
		{"unknown objective", &SearchRequest{
			Search: config.Search{Candidates: sampleCandidates()},
			Scorer: &config.Scorer{Objective: "speed"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(nil)
			if _, err := exec.Submit(tt.req); err == nil {
				t.Fatalf("expected error")
			}
			if runs := exec.Store().List(0, 0, ""); len(runs) != 0 {
				t.Fatalf("rejected request must not create a run, got %d", len(runs))
			}
		})
	}
}

func TestSearchExecutorAllFailedRun(t *testing.T) {
	exec := newTestExecutor(nil)
	rec, err := exec.Submit(&SearchRequest{Search: config.Search{Candidates: []models.DeviceConfig{
		{Material: "UNOBTAINIUM", Layers: 1, WavelengthNm: 1300, Q: 10, Gamma: 0.1},
		{Material: "WS2", Layers: 0, WavelengthNm: 1300, Q: 10, Gamma: 0.1},
	}}})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	done := waitFor(t, exec, rec.Run.ID)
	if done.Run.Status != RunStatusFailed {
		t.Fatalf("expected failed, got %v", done.Run.Status)
	}
	if done.Result == nil || done.Result.Failed != 2 {
		t.Fatalf("expected both records to be kept as failures")
	}
}

func TestSearchExecutorStartErrors(t *testing.T) {
	exec := newTestExecutor(nil)
	if _, err := exec.Start(""); !errors.Is(err, ErrRunIDMissing) {
		t.Fatalf("expected ErrRunIDMissing, got %v", err)
	}
	if _, err := exec.Start("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := exec.Stop(""); !errors.Is(err, ErrRunIDMissing) {
		t.Fatalf("expected ErrRunIDMissing, got %v", err)
	}
	if _, err := exec.Stop("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSearchExecutorStopPendingRun(t *testing.T) {
	exec := newTestExecutor(nil)
	if _, err := exec.Store().Create("run-1", &SearchRequest{}, "list", "contrast_per_energy", 1); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	rec, err := exec.Stop("run-1")
	if err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if rec.Run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %v", rec.Run.Status)
	}
	if _, err := exec.Start("run-1"); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
}

func TestSearchExecutorStopRunningSearch(t *testing.T) {
	exec := newTestExecutor(nil)
	rec, err := exec.Submit(&SearchRequest{Search: config.Search{
		Strategy: config.StrategyRandom,
		Samples:  20000,
		Seed:     7,
	}})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := exec.Stop(rec.Run.ID); err != nil && !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("Stop error: %v", err)
	}
	done := waitFor(t, exec, rec.Run.ID)
	if !done.Run.Status.Terminal() {
		t.Fatalf("expected terminal status, got %v", done.Run.Status)
	}
	if done.Run.Status == RunStatusCancelled && done.Result != nil && len(done.Result.Records) >= 20000 {
		t.Fatalf("cancelled run should not evaluate every sample")
	}
}

func TestSearchExecutorSimulate(t *testing.T) {
	exec := newTestExecutor(nil)
	kpis, score, err := exec.Simulate(referenceWinner)
	if err != nil {
		t.Fatalf("Simulate error: %v", err)
	}
	if math.Abs(kpis.T0-0.996864) > 1e-4 {
		t.Fatalf("unexpected T0 %v", kpis.T0)
	}
	if math.Abs(score-1.0050e-2)/1.0050e-2 > 0.01 {
		t.Fatalf("unexpected score %v", score)
	}

	_, _, err = exec.Simulate(models.DeviceConfig{Material: "WS2", Layers: 0, WavelengthNm: 1300, Q: 10, Gamma: 0.5})
	if !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	_, _, err = exec.Simulate(models.DeviceConfig{Material: "UNOBTAINIUM", Layers: 1, WavelengthNm: 1300, Q: 10, Gamma: 0.5})
	if !errors.Is(err, models.ErrMaterialNotFound) {
		t.Fatalf("expected ErrMaterialNotFound, got %v", err)
	}
}

func TestSearchExecutorStopRacingStart(t *testing.T) {
	const samples = 20000
	exec := newTestExecutor(nil)
	for i := 0; i < 50; i++ {
		runID := fmt.Sprintf("race-%d", i)
		plan, err := exec.plan(&SearchRequest{Search: config.Search{
			Strategy: config.StrategyRandom,
			Samples:  samples,
			Seed:     int64(i),
		}})
		if err != nil {
			t.Fatalf("plan error: %v", err)
		}
		if _, err := exec.Store().Create(runID, &SearchRequest{}, plan.strategy.Name(), "contrast_per_energy", samples); err != nil {
			t.Fatalf("Create error: %v", err)
		}
		exec.mu.Lock()
		exec.plans[runID] = plan
		exec.mu.Unlock()

		var wg sync.WaitGroup
		ready := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-ready
			exec.Start(runID)
		}()
		go func() {
			defer wg.Done()
			<-ready
			exec.Stop(runID)
		}()
		close(ready)
		wg.Wait()

		done := waitFor(t, exec, runID)
		if done.Run.Status != RunStatusCancelled {
			t.Fatalf("%s: expected cancelled, got %v", runID, done.Run.Status)
		}
		if done.Result != nil && len(done.Result.Records) >= samples {
			t.Fatalf("%s: stopped run evaluated every sample", runID)
		}
		exec.mu.Lock()
		_, leaked := exec.cancels[runID]
		exec.mu.Unlock()
		if leaked {
			t.Fatalf("%s: run still registered after it finished", runID)
		}
	}
}
