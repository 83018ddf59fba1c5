package phases

import (
	"math"
	"testing"
	"time"

	"github.com/arqops/studio-tracker/internal/db"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestHourlyRateDerivation(t *testing.T) {
	calc := NewCalculator(150)

	if got := calc.HourlyRate(12000, 100); !almostEqual(got, 120) {
		t.Errorf("HourlyRate(12000, 100) = %v, want 120", got)
	}
	if got := calc.HourlyRate(12000, 0); !almostEqual(got, 150) {
		t.Errorf("zero contracted hours should fall back to the default, got %v", got)
	}
}

func TestHourlyRateFallbackIsConfigurable(t *testing.T) {
	calc := NewCalculator(95.5)
	if got := calc.HourlyRate(5000, 0); !almostEqual(got, 95.5) {
		t.Errorf("configured fallback not honored, got %v", got)
	}
}

func TestVarianceOverrunIsALossEvenInProgress(t *testing.T) {
	calc := NewCalculator(150)

	v := calc.Variance(db.PhaseStatusInProgress, 5, 6, 50)
	if v.Loss == nil {
		t.Fatal("overrun on an in_progress phase must report a loss")
	}
	if v.Savings != nil {
		t.Fatal("a phase must never report loss and savings together")
	}
	if !almostEqual(v.Loss.ExcessHours, 1) {
		t.Errorf("excess hours = %v, want 1", v.Loss.ExcessHours)
	}
	if !almostEqual(v.Loss.TotalLoss, 50) {
		t.Errorf("total loss = %v, want 50", v.Loss.TotalLoss)
	}
	if !almostEqual(v.Loss.LossPercentage, 20) {
		t.Errorf("loss percentage = %v, want 20", v.Loss.LossPercentage)
	}
}

func TestVarianceUnderrunOnlyCountsWhenCompleted(t *testing.T) {
	calc := NewCalculator(150)

	// In-progress under-allocation is not a savings event.
	if v := calc.Variance(db.PhaseStatusInProgress, 10, 4, 80); !v.OnSchedule() {
		t.Errorf("in_progress underrun should report nothing, got %+v", v)
	}

	v := calc.Variance(db.PhaseStatusCompleted, 10, 4, 80)
	if v.Savings == nil {
		t.Fatal("completed underrun must report savings")
	}
	if v.Loss != nil {
		t.Fatal("a phase must never report loss and savings together")
	}
	if !almostEqual(v.Savings.SavedHours, 6) {
		t.Errorf("saved hours = %v, want 6", v.Savings.SavedHours)
	}
	if !almostEqual(v.Savings.TotalSavings, 480) {
		t.Errorf("total savings = %v, want 480", v.Savings.TotalSavings)
	}
	if !almostEqual(v.Savings.SavingsPercentage, 60) {
		t.Errorf("savings percentage = %v, want 60", v.Savings.SavingsPercentage)
	}
}

func TestVarianceExactAllocationIsOnSchedule(t *testing.T) {
	calc := NewCalculator(150)
	if v := calc.Variance(db.PhaseStatusCompleted, 10, 10, 120); !v.OnSchedule() {
		t.Errorf("completed on-allocation phase should be on schedule, got %+v", v)
	}
}

func TestVarianceExcludesCancelledPhases(t *testing.T) {
	calc := NewCalculator(150)
	if v := calc.Variance(db.PhaseStatusCancelled, 5, 9, 50); !v.OnSchedule() {
		t.Errorf("cancelled phase must be excluded from variance, got %+v", v)
	}
}

func TestExecutedHoursSumsOnlyClosedSessions(t *testing.T) {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	sessions := []db.TimeSession{
		{DurationMinutes: 180, EndTime: &end},
		{DurationMinutes: 180, EndTime: &end},
		{DurationMinutes: 45}, // still open, must not count
	}

	if got := executedHours(sessions); !almostEqual(got, 6) {
		t.Errorf("executedHours = %v, want 6", got)
	}
}

func TestNextOrderIndexAppends(t *testing.T) {
	siblings := []db.Phase{{OrderIndex: 1}, {OrderIndex: 3}, {OrderIndex: 2}}
	if got := nextOrderIndex(siblings); got != 4 {
		t.Errorf("nextOrderIndex = %d, want 4", got)
	}
	if got := nextOrderIndex(nil); got != 1 {
		t.Errorf("first phase should get index 1, got %d", got)
	}
}

func TestCheckContractBudget(t *testing.T) {
	project := db.Project{ContractedHours: 100}
	siblings := []db.Phase{
		{ID: 1, AllocatedHours: 40},
		{ID: 2, AllocatedHours: 30},
	}

	if err := checkContractBudget(project, siblings, 0, 30); err != nil {
		t.Errorf("allocation filling the contract exactly should pass: %v", err)
	}
	if err := checkContractBudget(project, siblings, 0, 31); err == nil {
		t.Error("allocation over the contract should fail")
	}
	// Editing phase 2 excludes its previous allocation from the sum.
	if err := checkContractBudget(project, siblings, 2, 60); err != nil {
		t.Errorf("edit within budget should pass: %v", err)
	}
	if err := checkContractBudget(project, siblings, 2, 61); err == nil {
		t.Error("edit exceeding budget should fail")
	}
}
