package finance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  Series reconciler                                                 */
/* ------------------------------------------------------------------ */

// Group status labels, evaluated top-down in GroupStatus.
const (
	GroupStatusPending    = "Pending"
	GroupStatusPaid       = "Paid"
	GroupStatusCancelled  = "Cancelled"
	GroupStatusInProgress = "In progress"
	GroupStatusOverdue    = "Overdue"
	GroupStatusFallback   = "Installment plan"
)

// ObligationGroup is a reconstructed installment series.
type ObligationGroup struct {
	Key          string                `json:"key"`
	Description  string                `json:"description"`
	Members      []db.IncomeObligation `json:"members"` // sorted by due date ascending
	TotalCents   int64                 `json:"totalCents"`
	FirstDueDate time.Time             `json:"firstDueDate"`
	LastDueDate  time.Time             `json:"lastDueDate"`
	Status       string                `json:"status"`
}

// DisplayItem is either a standalone obligation or a reconstructed series.
type DisplayItem struct {
	Single *db.IncomeObligation `json:"single,omitempty"`
	Group  *ObligationGroup     `json:"group,omitempty"`
}

// Legacy rows created before explicit series ids decorated the description
// with a trailing installment counter; stripping it recovers the shared base
// description the series was generated with.
var installmentSuffix = regexp.MustCompile(`(?i)\s*[-–—(\[]?\s*installment\s*(\d+)\s*(?:/|of)\s*(\d+)[)\]\s]*$`)

// NormalizeDescription strips a trailing "- Installment k/n" marker.
func NormalizeDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	base := installmentSuffix.ReplaceAllString(trimmed, "")
	base = strings.TrimSpace(base)
	if base == "" {
		return trimmed
	}
	return base
}

// seriesKey identifies which series a monthly row belongs to: the explicit
// SeriesID when the row carries one, otherwise the legacy heuristic of
// normalized description plus creation timestamp.
func seriesKey(row db.IncomeObligation) string {
	if row.SeriesID != nil && *row.SeriesID != "" {
		return "series:" + *row.SeriesID
	}
	return fmt.Sprintf("legacy:%s|%s",
		strings.ToLower(NormalizeDescription(row.Description)),
		row.CreatedAt.UTC().Format(time.RFC3339Nano))
}

// GroupObligations partitions a flat obligation listing into display items:
// monthly rows collapse into series groups, everything else passes through as
// singles in its original position. Pure and idempotent: the same input
// always produces the same partitions and labels.
func GroupObligations(rows []db.IncomeObligation) []DisplayItem {
	items := make([]DisplayItem, 0, len(rows))
	groups := make(map[string]*ObligationGroup)

	for i := range rows {
		row := rows[i]
		if row.RecurrenceType != db.RecurrenceMonthly {
			items = append(items, DisplayItem{Single: &rows[i]})
			continue
		}

		key := seriesKey(row)
		group, seen := groups[key]
		if !seen {
			group = &ObligationGroup{
				Key:         key,
				Description: NormalizeDescription(row.Description),
			}
			groups[key] = group
			// The group occupies the position of its first member.
			items = append(items, DisplayItem{Group: group})
		}
		group.Members = append(group.Members, row)
	}

	for _, item := range items {
		if item.Group == nil {
			continue
		}
		finalizeGroup(item.Group)
	}
	return items
}

func finalizeGroup(group *ObligationGroup) {
	sort.SliceStable(group.Members, func(i, j int) bool {
		return group.Members[i].DueDate.Before(group.Members[j].DueDate)
	})

	group.TotalCents = 0
	for _, member := range group.Members {
		group.TotalCents += member.AmountCents
	}
	group.FirstDueDate = group.Members[0].DueDate
	group.LastDueDate = group.Members[len(group.Members)-1].DueDate
	group.Status = GroupStatus(group.Members)
}

// GroupStatus rolls member statuses up to one label. The order is a
// tie-break: evaluate top-down, first match wins.
func GroupStatus(members []db.IncomeObligation) string {
	var pending, paid, overdue, cancelled int
	for _, member := range members {
		switch member.Status {
		case db.ObligationStatusPending:
			pending++
		case db.ObligationStatusPaid:
			paid++
		case db.ObligationStatusOverdue:
			overdue++
		case db.ObligationStatusCancelled:
			cancelled++
		}
	}

	switch {
	case pending > 0 && paid == 0 && overdue == 0 && cancelled == 0:
		return GroupStatusPending
	case paid > 0 && pending == 0 && overdue == 0 && cancelled == 0:
		return GroupStatusPaid
	case pending == 0 && paid == 0 && cancelled > 0:
		return GroupStatusCancelled
	case pending > 0 && paid > 0:
		return GroupStatusInProgress
	case overdue > 0:
		return GroupStatusOverdue
	default:
		return GroupStatusFallback
	}
}
