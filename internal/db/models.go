package db

import (
	"time"
)

// Project is the owning entity for phases and the source of the contract
// figures (value + hours) that price phase variances.
type Project struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"not null"`
	ClientName      *string   `json:"clientName"`                       // Optional client display name
	ContractedValue float64   `json:"contractedValue" gorm:"default:0"` // Total contract value
	ContractedHours float64   `json:"contractedHours" gorm:"default:0"` // Hour budget shared by all phases
	IsActive        bool      `json:"isActive" gorm:"default:true"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Relations
	Phases       []Phase       `json:"phases" gorm:"foreignKey:ProjectID"`
	TimeSessions []TimeSession `json:"timeSessions" gorm:"foreignKey:ProjectID"`
}

// Phase is a contracted unit of work inside a project with an hour budget.
// Executed hours are never stored: they are recomputed as the sum of closed
// session durations, so concurrent timers cannot drift the aggregate.
type Phase struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	ProjectID        uint       `json:"projectId" gorm:"not null;index"`
	Name             string     `json:"name" gorm:"not null"`
	AllocatedHours   float64    `json:"allocatedHours" gorm:"not null"`
	Status           string     `json:"status" gorm:"default:'pending'"` // pending, in_progress, completed, cancelled
	AssignedWorkerID *string    `json:"assignedWorkerId"`
	SupervisorID     *string    `json:"supervisorId"`
	StartDate        *time.Time `json:"startDate"`
	DueDate          *time.Time `json:"dueDate"`
	OrderIndex       int        `json:"orderIndex" gorm:"default:0"` // position within the project, assigned at create
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// Relations
	Project      Project       `json:"project" gorm:"foreignKey:ProjectID"`
	TimeSessions []TimeSession `json:"timeSessions" gorm:"foreignKey:PhaseID"`
}

// TimeSession is one contiguous work interval. Exactly one of PhaseID or
// ProjectID is set; that choice is the tracking scope. EndTime is nil while
// the session is open and DurationMinutes is written once on stop (floor of
// whole minutes), never recalculated afterwards.
type TimeSession struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	WorkerID        string     `json:"workerId" gorm:"not null;index"`
	PhaseID         *uint      `json:"phaseId" gorm:"index"`
	ProjectID       *uint      `json:"projectId" gorm:"index"`
	StartTime       time.Time  `json:"startTime" gorm:"not null"`
	EndTime         *time.Time `json:"endTime"` // nil for open sessions
	DurationMinutes int        `json:"durationMinutes" gorm:"default:0"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ActiveTimer is the uniqueness claim behind "one open session per worker per
// tracking scope". The composite primary key makes two concurrent starts race
// on the insert so exactly one wins; the row is removed on stop. The open
// TimeSession row (end_time IS NULL) stays the authoritative record; this
// table is only the lock plus display metadata.
type ActiveTimer struct {
	WorkerID  string    `json:"workerId" gorm:"primaryKey"`
	Scope     string    `json:"scope" gorm:"primaryKey"` // phase or project
	TargetID  uint      `json:"targetId" gorm:"not null"`
	StartedAt time.Time `json:"startedAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IncomeObligation is one payable/receivable entry. Rows generated together
// as an installment series share a SeriesID and carry their k-of-n position;
// Description stays undecorated so display layers can append the counter.
// Amounts are integer cents, never floating point money at rest.
type IncomeObligation struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Description    string    `json:"description" gorm:"not null"`
	AmountCents    int64     `json:"amountCents" gorm:"not null"`
	DueDate        time.Time `json:"dueDate" gorm:"not null"`
	Status         string    `json:"status" gorm:"default:'pending'"`      // pending, paid, overdue, cancelled
	RecurrenceType string    `json:"recurrenceType" gorm:"default:'none'"` // none, monthly
	SeriesID       *string   `json:"seriesId" gorm:"index"`                // shared uuid for a generated batch
	SeriesSeq      int       `json:"seriesSeq" gorm:"default:0"`           // 1-based position within the series
	SeriesTotal    int       `json:"seriesTotal" gorm:"default:0"`         // fixed installment count of the series
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Phase status constants
const (
	PhaseStatusPending    = "pending"
	PhaseStatusInProgress = "in_progress"
	PhaseStatusCompleted  = "completed"
	PhaseStatusCancelled  = "cancelled"
)

// Timer tracking scopes
const (
	ScopePhase   = "phase"
	ScopeProject = "project"
)

// Obligation status constants
const (
	ObligationStatusPending   = "pending"
	ObligationStatusPaid      = "paid"
	ObligationStatusOverdue   = "overdue"
	ObligationStatusCancelled = "cancelled"
)

// Recurrence constants
const (
	RecurrenceNone    = "none"
	RecurrenceMonthly = "monthly"
)
