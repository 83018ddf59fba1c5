package finance

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/JorgeSaicoski/pgconnect"
	"github.com/arqops/studio-tracker/internal/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

/* ------------------------------------------------------------------ */
/*  Logger                                                            */
/* ------------------------------------------------------------------ */

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "FinanceService"),
)

/* ------------------------------------------------------------------ */
/*  Errors                                                            */
/* ------------------------------------------------------------------ */

var (
	ErrInvalidCount     = errors.New("installment count must be at least 1")
	ErrInvalidPrincipal = errors.New("principal amount must be greater than zero")
	ErrInvalidStatus    = errors.New("invalid obligation status transition")
)

/* ------------------------------------------------------------------ */
/*  Service definition & constructor                                  */
/* ------------------------------------------------------------------ */

type FinanceService struct {
	obligationRepo *pgconnect.Repository[db.IncomeObligation]
}

func NewFinanceService(database *pgconnect.DB) *FinanceService {
	return &FinanceService{
		obligationRepo: pgconnect.NewRepository[db.IncomeObligation](database),
	}
}

/* ------------------------------------------------------------------ */
/*  Installment arithmetic (pure)                                     */
/* ------------------------------------------------------------------ */

// SplitCents divides a cent total into count parts that sum back exactly:
// every part gets the floored share and the first (total mod count) parts
// absorb one extra cent each.
func SplitCents(totalCents int64, count int) []int64 {
	base := totalCents / int64(count)
	remainder := totalCents % int64(count)

	amounts := make([]int64, count)
	for i := range amounts {
		amounts[i] = base
		if int64(i) < remainder {
			amounts[i]++
		}
	}
	return amounts
}

// AddMonths advances a date by whole calendar months, preserving the
// day-of-month where the target month supports it and clamping to the last
// day otherwise (Jan 31 becomes Feb 29 on leap years, then Mar 31 from the
// original day). Go's AddDate would normalize Jan 31 + 1 month into March,
// which is not what a payment schedule wants.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// buildInstallments materializes the rows for one generation call without
// touching storage. All validation happens here, before any write.
func buildInstallments(
	principal decimal.Decimal,
	count int,
	startDate time.Time,
	description string,
	now time.Time,
) ([]db.IncomeObligation, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	if !principal.IsPositive() {
		return nil, ErrInvalidPrincipal
	}

	totalCents := principal.Shift(2).Round(0).IntPart()
	amounts := SplitCents(totalCents, count)

	// A single obligation is not a series: no recurrence, no series fields.
	if count == 1 {
		return []db.IncomeObligation{{
			Description:    description,
			AmountCents:    totalCents,
			DueDate:        startDate,
			Status:         db.ObligationStatusPending,
			RecurrenceType: db.RecurrenceNone,
			CreatedAt:      now,
			UpdatedAt:      now,
		}}, nil
	}

	seriesID := uuid.NewString()
	rows := make([]db.IncomeObligation, count)
	for i := range rows {
		rows[i] = db.IncomeObligation{
			Description:    description,
			AmountCents:    amounts[i],
			DueDate:        AddMonths(startDate, i),
			Status:         db.ObligationStatusPending,
			RecurrenceType: db.RecurrenceMonthly,
			SeriesID:       &seriesID,
			SeriesSeq:      i + 1,
			SeriesTotal:    count,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	return rows, nil
}

/* ------------------------------------------------------------------ */
/*  Generation & registry                                             */
/* ------------------------------------------------------------------ */

// GenerateInstallments splits the principal into count monthly obligations
// and persists them as one batch. A partially written series is a consistency
// violation, so any insert failure deletes the rows already written before
// the error is surfaced.
func (s *FinanceService) GenerateInstallments(
	principal decimal.Decimal,
	count int,
	startDate time.Time,
	description string,
) ([]db.IncomeObligation, error) {
	log.Info("generate-installments:start",
		"principal", principal.String(), "count", count, "description", description)

	rows, err := buildInstallments(principal, count, startDate, description, time.Now())
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if err := s.obligationRepo.Create(&rows[i]); err != nil {
			log.Error("generate-installments:insert-failed", "index", i, "err", err)
			// Roll the partial batch back before reporting the failure.
			for j := i - 1; j >= 0; j-- {
				if delErr := s.obligationRepo.Delete(&rows[j]); delErr != nil {
					log.Error("generate-installments:rollback-failed",
						"obligationID", rows[j].ID, "err", delErr)
				}
			}
			return nil, fmt.Errorf("failed to persist installment %d of %d: %w", i+1, count, err)
		}
	}

	log.Info("generate-installments:success", "count", len(rows))
	return rows, nil
}

// CreateObligation stores a single non-recurring obligation.
func (s *FinanceService) CreateObligation(
	description string,
	amount decimal.Decimal,
	dueDate time.Time,
) (*db.IncomeObligation, error) {
	log.Info("create-obligation:start", "description", description)

	if !amount.IsPositive() {
		return nil, ErrInvalidPrincipal
	}

	now := time.Now()
	obligation := &db.IncomeObligation{
		Description:    description,
		AmountCents:    amount.Shift(2).Round(0).IntPart(),
		DueDate:        dueDate,
		Status:         db.ObligationStatusPending,
		RecurrenceType: db.RecurrenceNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.obligationRepo.Create(obligation); err != nil {
		log.Error("create-obligation:db-insert-failed", "err", err)
		return nil, fmt.Errorf("failed to create obligation: %w", err)
	}

	log.Info("create-obligation:success", "obligationID", obligation.ID)
	return obligation, nil
}

// UpdateObligationStatus moves one obligation to paid or cancelled. Members
// of a series are settled independently; terminal rows stay terminal.
func (s *FinanceService) UpdateObligationStatus(id uint, status string) (*db.IncomeObligation, error) {
	log.Info("update-obligation-status:start", "obligationID", id, "status", status)

	if status != db.ObligationStatusPaid && status != db.ObligationStatusCancelled {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var obligation db.IncomeObligation
	if err := s.obligationRepo.FindByID(id, &obligation); err != nil {
		return nil, fmt.Errorf("obligation not found: %w", err)
	}

	if obligation.Status == db.ObligationStatusPaid || obligation.Status == db.ObligationStatusCancelled {
		return nil, fmt.Errorf("%w: obligation is already %s", ErrInvalidStatus, obligation.Status)
	}

	obligation.Status = status
	obligation.UpdatedAt = time.Now()
	if err := s.obligationRepo.Update(&obligation); err != nil {
		log.Error("update-obligation-status:db-update-failed", "err", err)
		return nil, fmt.Errorf("failed to update obligation: %w", err)
	}

	log.Info("update-obligation-status:success", "obligationID", id)
	return &obligation, nil
}

// MarkOverdue flips pending obligations whose due date has passed to overdue
// and reports how many rows changed.
func (s *FinanceService) MarkOverdue(now time.Time) (int, error) {
	log.Info("mark-overdue:start")

	var pending []db.IncomeObligation
	if err := s.obligationRepo.FindWhere(&pending,
		"status = ? AND due_date < ?", db.ObligationStatusPending, now); err != nil {
		return 0, fmt.Errorf("failed to query pending obligations: %w", err)
	}

	updated := 0
	for i := range pending {
		pending[i].Status = db.ObligationStatusOverdue
		pending[i].UpdatedAt = now
		if err := s.obligationRepo.Update(&pending[i]); err != nil {
			log.Error("mark-overdue:db-update-failed", "obligationID", pending[i].ID, "err", err)
			return updated, fmt.Errorf("failed to mark obligation %d overdue: %w", pending[i].ID, err)
		}
		updated++
	}

	log.Info("mark-overdue:success", "updated", updated)
	return updated, nil
}

// Overview loads every obligation and regroups installment series for
// display.
func (s *FinanceService) Overview() ([]DisplayItem, error) {
	log.Debug("finance-overview")

	var rows []db.IncomeObligation
	if err := s.obligationRepo.FindAll(&rows); err != nil {
		return nil, fmt.Errorf("failed to load obligations: %w", err)
	}
	return GroupObligations(rows), nil
}
