package finance

import (
	"time"

	"github.com/arqops/studio-tracker/internal/db"
	"github.com/arqops/studio-tracker/internal/services/finance"
	"github.com/shopspring/decimal"
)

// Request DTOs

// Amounts travel as decimal strings ("1250.40"); they are converted to
// integer cents exactly once, at the service boundary.
type CreateObligationRequest struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	DueDate     string `json:"dueDate" binding:"required"` // YYYY-MM-DD
}

type GenerateInstallmentsRequest struct {
	Description string `json:"description" binding:"required"`
	Principal   string `json:"principal" binding:"required"`
	Count       int    `json:"count" binding:"required"`
	StartDate   string `json:"startDate" binding:"required"` // YYYY-MM-DD
}

type UpdateObligationStatusRequest struct {
	Status string `json:"status" binding:"required"` // paid or cancelled
}

// Response DTOs

type ObligationResponse struct {
	ID             uint      `json:"id"`
	Description    string    `json:"description"`
	Amount         string    `json:"amount"` // decimal string derived from cents
	AmountCents    int64     `json:"amountCents"`
	DueDate        time.Time `json:"dueDate"`
	Status         string    `json:"status"`
	RecurrenceType string    `json:"recurrenceType"`
	SeriesID       *string   `json:"seriesId"`
	SeriesSeq      int       `json:"seriesSeq"`
	SeriesTotal    int       `json:"seriesTotal"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ObligationGroupResponse struct {
	Key          string               `json:"key"`
	Description  string               `json:"description"`
	Total        string               `json:"total"`
	TotalCents   int64                `json:"totalCents"`
	FirstDueDate time.Time            `json:"firstDueDate"`
	LastDueDate  time.Time            `json:"lastDueDate"`
	Status       string               `json:"status"`
	Members      []ObligationResponse `json:"members"`
}

// DisplayItemResponse mirrors the reconciler's single-or-group shape.
type DisplayItemResponse struct {
	Kind   string                   `json:"kind"` // single or group
	Single *ObligationResponse      `json:"single,omitempty"`
	Group  *ObligationGroupResponse `json:"group,omitempty"`
}

// Conversion methods

func ObligationToResponse(obligation *db.IncomeObligation) ObligationResponse {
	return ObligationResponse{
		ID:             obligation.ID,
		Description:    obligation.Description,
		Amount:         decimal.New(obligation.AmountCents, -2).StringFixed(2),
		AmountCents:    obligation.AmountCents,
		DueDate:        obligation.DueDate,
		Status:         obligation.Status,
		RecurrenceType: obligation.RecurrenceType,
		SeriesID:       obligation.SeriesID,
		SeriesSeq:      obligation.SeriesSeq,
		SeriesTotal:    obligation.SeriesTotal,
		CreatedAt:      obligation.CreatedAt,
	}
}

func ObligationsToResponse(obligations []db.IncomeObligation) []ObligationResponse {
	responses := make([]ObligationResponse, len(obligations))
	for i, obligation := range obligations {
		responses[i] = ObligationToResponse(&obligation)
	}
	return responses
}

func DisplayItemsToResponse(items []finance.DisplayItem) []DisplayItemResponse {
	responses := make([]DisplayItemResponse, len(items))
	for i, item := range items {
		if item.Single != nil {
			single := ObligationToResponse(item.Single)
			responses[i] = DisplayItemResponse{Kind: "single", Single: &single}
			continue
		}
		group := &ObligationGroupResponse{
			Key:          item.Group.Key,
			Description:  item.Group.Description,
			Total:        decimal.New(item.Group.TotalCents, -2).StringFixed(2),
			TotalCents:   item.Group.TotalCents,
			FirstDueDate: item.Group.FirstDueDate,
			LastDueDate:  item.Group.LastDueDate,
			Status:       item.Group.Status,
			Members:      ObligationsToResponse(item.Group.Members),
		}
		responses[i] = DisplayItemResponse{Kind: "group", Group: group}
	}
	return responses
}
