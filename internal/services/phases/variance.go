package phases

import (
	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  Rate & variance calculator                                        */
/* ------------------------------------------------------------------ */

// Calculator prices hour overruns and underruns against a contract's hourly
// rate. DefaultHourlyRate is used when a project has no contracted hours to
// derive a rate from.
type Calculator struct {
	DefaultHourlyRate float64
}

func NewCalculator(defaultHourlyRate float64) Calculator {
	return Calculator{DefaultHourlyRate: defaultHourlyRate}
}

// HourlyRate derives the contract's hourly rate, falling back to the
// configured default when no hours were contracted.
func (c Calculator) HourlyRate(contractedValue, contractedHours float64) float64 {
	if contractedHours > 0 {
		return contractedValue / contractedHours
	}
	return c.DefaultHourlyRate
}

// Loss is the monetary cost of executing more hours than a phase allocates.
type Loss struct {
	ExcessHours    float64 `json:"excessHours"`
	HourlyRate     float64 `json:"hourlyRate"`
	TotalLoss      float64 `json:"totalLoss"`
	LossPercentage float64 `json:"lossPercentage"`
}

// Savings is the value of the hours left unspent by a completed phase.
type Savings struct {
	SavedHours        float64 `json:"savedHours"`
	HourlyRate        float64 `json:"hourlyRate"`
	TotalSavings      float64 `json:"totalSavings"`
	SavingsPercentage float64 `json:"savingsPercentage"`
}

// Variance holds at most one of Loss or Savings; both nil means the phase is
// on schedule (or excluded from the calculation entirely).
type Variance struct {
	Loss    *Loss    `json:"loss,omitempty"`
	Savings *Savings `json:"savings,omitempty"`
}

// OnSchedule reports whether neither a loss nor a savings applies.
func (v Variance) OnSchedule() bool {
	return v.Loss == nil && v.Savings == nil
}

// Variance applies the asymmetric business rule: an overrun is a loss as soon
// as it happens, even mid-phase, but an underrun only becomes a savings once
// the phase is completed. Cancelled phases are excluded entirely.
func (c Calculator) Variance(status string, allocatedHours, executedHours, hourlyRate float64) Variance {
	if status == db.PhaseStatusCancelled {
		return Variance{}
	}

	if executedHours > allocatedHours {
		excess := executedHours - allocatedHours
		loss := &Loss{
			ExcessHours: excess,
			HourlyRate:  hourlyRate,
			TotalLoss:   excess * hourlyRate,
		}
		if allocatedHours > 0 {
			loss.LossPercentage = excess / allocatedHours * 100
		}
		return Variance{Loss: loss}
	}

	if status == db.PhaseStatusCompleted && executedHours < allocatedHours {
		saved := allocatedHours - executedHours
		savings := &Savings{
			SavedHours:   saved,
			HourlyRate:   hourlyRate,
			TotalSavings: saved * hourlyRate,
		}
		if allocatedHours > 0 {
			savings.SavingsPercentage = saved / allocatedHours * 100
		}
		return Variance{Savings: savings}
	}

	return Variance{}
}
