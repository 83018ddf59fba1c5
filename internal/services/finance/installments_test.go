package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/arqops/studio-tracker/internal/db"
	"github.com/shopspring/decimal"
)

func TestSplitCentsDistributesRemainderToFirstInstallments(t *testing.T) {
	amounts := SplitCents(10000, 3)

	want := []int64{3334, 3333, 3333}
	if len(amounts) != len(want) {
		t.Fatalf("got %d amounts, want %d", len(amounts), len(want))
	}
	for i := range want {
		if amounts[i] != want[i] {
			t.Errorf("amounts[%d] = %d, want %d", i, amounts[i], want[i])
		}
	}
}

func TestSplitCentsConservesTheTotal(t *testing.T) {
	totals := []int64{1, 99, 100, 10000, 99999, 123457, 1000003}
	counts := []int{1, 2, 3, 7, 12, 31}

	for _, total := range totals {
		for _, count := range counts {
			amounts := SplitCents(total, count)
			var sum int64
			for _, amount := range amounts {
				sum += amount
			}
			if sum != total {
				t.Errorf("SplitCents(%d, %d) leaks cents: sum = %d", total, count, sum)
			}
		}
	}
}

func TestAddMonthsPreservesDayOfMonth(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got := AddMonths(start, 2)
	want := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddMonths = %v, want %v", got, want)
	}
}

func TestAddMonthsClampsToLastDayOfShorterMonths(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		months int
		want   time.Time
	}{
		{1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)}, // leap February
		{2, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}, // original day restored
		{3, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		{13, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)}, // non-leap February
	}

	for _, tc := range cases {
		if got := AddMonths(start, tc.months); !got.Equal(tc.want) {
			t.Errorf("AddMonths(+%d) = %v, want %v", tc.months, got, tc.want)
		}
	}
}

func TestBuildInstallmentsRejectsInvalidInput(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	if _, err := buildInstallments(decimal.NewFromInt(100), 0, start, "Design fee", now); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("count 0 should fail with ErrInvalidCount, got %v", err)
	}
	if _, err := buildInstallments(decimal.Zero, 3, start, "Design fee", now); !errors.Is(err, ErrInvalidPrincipal) {
		t.Errorf("zero principal should fail with ErrInvalidPrincipal, got %v", err)
	}
	if _, err := buildInstallments(decimal.NewFromInt(-10), 3, start, "Design fee", now); !errors.Is(err, ErrInvalidPrincipal) {
		t.Errorf("negative principal should fail with ErrInvalidPrincipal, got %v", err)
	}
}

func TestBuildInstallmentsSeriesShape(t *testing.T) {
	principal := decimal.RequireFromString("100.00")
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC)

	rows, err := buildInstallments(principal, 3, start, "Residential project fee", now)
	if err != nil {
		t.Fatalf("buildInstallments: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	wantCents := []int64{3334, 3333, 3333}
	wantDue := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	var sum int64
	for i, row := range rows {
		sum += row.AmountCents
		if row.AmountCents != wantCents[i] {
			t.Errorf("row %d cents = %d, want %d", i, row.AmountCents, wantCents[i])
		}
		if !row.DueDate.Equal(wantDue[i]) {
			t.Errorf("row %d due = %v, want %v", i, row.DueDate, wantDue[i])
		}
		if row.RecurrenceType != db.RecurrenceMonthly {
			t.Errorf("row %d recurrence = %q, want monthly", i, row.RecurrenceType)
		}
		if row.Description != "Residential project fee" {
			t.Errorf("row %d description decorated: %q", i, row.Description)
		}
		if row.SeriesID == nil || *row.SeriesID == "" {
			t.Fatalf("row %d missing series id", i)
		}
		if *row.SeriesID != *rows[0].SeriesID {
			t.Errorf("row %d has a different series id", i)
		}
		if row.SeriesSeq != i+1 || row.SeriesTotal != 3 {
			t.Errorf("row %d series position = %d/%d, want %d/3", i, row.SeriesSeq, row.SeriesTotal, i+1)
		}
		if !row.CreatedAt.Equal(now) {
			t.Errorf("row %d creation timestamp differs within the batch", i)
		}
		if row.Status != db.ObligationStatusPending {
			t.Errorf("row %d status = %q, want pending", i, row.Status)
		}
	}
	if sum != 10000 {
		t.Errorf("series leaks cents: sum = %d, want 10000", sum)
	}
}

func TestBuildInstallmentsSingleIsNotASeries(t *testing.T) {
	principal := decimal.RequireFromString("499.90")
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	rows, err := buildInstallments(principal, 1, start, "Site survey", time.Now())
	if err != nil {
		t.Fatalf("buildInstallments: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.AmountCents != 49990 {
		t.Errorf("cents = %d, want 49990", row.AmountCents)
	}
	if row.RecurrenceType != db.RecurrenceNone {
		t.Errorf("single obligation recurrence = %q, want none", row.RecurrenceType)
	}
	if row.SeriesID != nil {
		t.Error("single obligation must not carry a series id")
	}
	if !row.DueDate.Equal(start) {
		t.Errorf("due date = %v, want %v", row.DueDate, start)
	}
}
