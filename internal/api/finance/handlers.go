package finance

import (
	"errors"
	"strconv"
	"time"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/arqops/studio-tracker/internal/services/finance"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FinanceHandler struct {
	financeService *finance.FinanceService
}

func NewFinanceHandler(financeService *finance.FinanceService) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
	}
}

func (h *FinanceHandler) CreateObligation(c *gin.Context) {
	var req CreateObligationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		responses.BadRequest(c, "Invalid amount. Use a decimal string like 1250.40")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		responses.BadRequest(c, "Invalid due date format. Use YYYY-MM-DD")
		return
	}

	obligation, err := h.financeService.CreateObligation(req.Description, amount, dueDate)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidPrincipal) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	response := ObligationToResponse(obligation)
	responses.Created(c, "Obligation created successfully", response)
}

func (h *FinanceHandler) GenerateInstallments(c *gin.Context) {
	var req GenerateInstallmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		responses.BadRequest(c, "Invalid principal. Use a decimal string like 1250.40")
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		responses.BadRequest(c, "Invalid start date format. Use YYYY-MM-DD")
		return
	}

	installments, err := h.financeService.GenerateInstallments(principal, req.Count, startDate, req.Description)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidCount) || errors.Is(err, finance.ErrInvalidPrincipal) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	installmentResponses := ObligationsToResponse(installments)
	responses.Created(c, "Installments generated successfully", gin.H{
		"installments": installmentResponses,
		"total":        len(installmentResponses),
	})
}

func (h *FinanceHandler) UpdateObligationStatus(c *gin.Context) {
	idParam := c.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid obligation ID")
		return
	}

	var req UpdateObligationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	obligation, err := h.financeService.UpdateObligationStatus(uint(id), req.Status)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidStatus) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	response := ObligationToResponse(obligation)
	responses.Success(c, "Obligation status updated successfully", response)
}

func (h *FinanceHandler) SweepOverdue(c *gin.Context) {
	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	updated, err := h.financeService.MarkOverdue(time.Now())
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Overdue sweep completed successfully", gin.H{
		"updated": updated,
	})
}

func (h *FinanceHandler) GetOverview(c *gin.Context) {
	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	items, err := h.financeService.Overview()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	itemResponses := DisplayItemsToResponse(items)
	responses.Success(c, "Financial overview retrieved successfully", gin.H{
		"items": itemResponses,
		"total": len(itemResponses),
	})
}
