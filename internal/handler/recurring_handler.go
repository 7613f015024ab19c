package handler

import (
	"net/http"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/money"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const dateOnlyFormat = "2006-01-02"

// RecurringHandler handles recurring-rule HTTP requests.
type RecurringHandler struct {
	recurringService  *service.RecurringService
	membershipService *service.MembershipService
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService *service.RecurringService, membershipService *service.MembershipService) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, membershipService: membershipService}
}

// RecurringRuleRequest is the shared POST/PUT recurring rule request body.
type RecurringRuleRequest struct {
	Name        string                `json:"name"`
	Category    *string               `json:"category,omitempty"`
	Currency    string                `json:"currency"`
	Amount      string                `json:"amount"`
	Frequency   string                `json:"frequency"`
	DayOfWeek   *int                  `json:"dayOfWeek,omitempty"`
	DayOfMonth  *int                  `json:"dayOfMonth,omitempty"`
	MonthOfYear *int                  `json:"monthOfYear,omitempty"`
	StartDate   string                `json:"startDate"`
	EndDate     *string               `json:"endDate,omitempty"`
	Payers      []ExpensePayerRequest `json:"payers"`
	Splits      []ExpenseSplitRequest `json:"splits"`
}

func (req *RecurringRuleRequest) toPayerInputs(currency string) ([]service.ExpensePayerInput, error) {
	inputs := make([]service.ExpensePayerInput, len(req.Payers))
	for i, p := range req.Payers {
		memberID, err := uuid.Parse(p.MemberID)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		amount, err := money.FromDecimal(p.Amount, currency)
		if err != nil {
			return nil, domain.ErrInvalidAmount
		}
		inputs[i] = service.ExpensePayerInput{MemberID: memberID, AmountCents: amount}
	}
	return inputs, nil
}

func (req *RecurringRuleRequest) toSplitInputs(currency string) ([]service.ExpenseSplitInput, error) {
	inputs := make([]service.ExpenseSplitInput, len(req.Splits))
	for i, sp := range req.Splits {
		memberID, err := uuid.Parse(sp.MemberID)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		var exactCents *int64
		if sp.Exact != nil {
			v, err := money.FromDecimal(*sp.Exact, currency)
			if err != nil {
				return nil, domain.ErrInvalidAmount
			}
			exactCents = &v
		}
		inputs[i] = service.ExpenseSplitInput{
			MemberID:   memberID,
			ShareMode:  domain.ShareMode(sp.ShareMode),
			Weight:     sp.Weight,
			ExactCents: exactCents,
		}
	}
	return inputs, nil
}

// RecurringRuleResponse is a recurring rule as returned to API callers.
type RecurringRuleResponse struct {
	ID              string  `json:"id"`
	GroupID         string  `json:"groupId"`
	CreatorID       string  `json:"creatorMemberId"`
	Name            string  `json:"name"`
	Category        *string `json:"category,omitempty"`
	Currency        string  `json:"currency"`
	Amount          string  `json:"amount"`
	Frequency       string  `json:"frequency"`
	DayOfWeek       *int    `json:"dayOfWeek,omitempty"`
	DayOfMonth      *int    `json:"dayOfMonth,omitempty"`
	MonthOfYear     *int    `json:"monthOfYear,omitempty"`
	StartDate       string  `json:"startDate"`
	EndDate         *string `json:"endDate,omitempty"`
	NextOccurrence  string  `json:"nextOccurrence"`
	LastGeneratedAt *string `json:"lastGeneratedAt,omitempty"`
	IsActive        bool    `json:"isActive"`
}

func toRecurringRuleResponse(r *domain.RecurringRule) (RecurringRuleResponse, error) {
	amount, err := money.ToDecimal(r.AmountCents, r.Currency)
	if err != nil {
		return RecurringRuleResponse{}, err
	}

	var endDate *string
	if r.EndDate != nil {
		s := r.EndDate.Format(dateOnlyFormat)
		endDate = &s
	}
	var lastGenerated *string
	if r.LastGeneratedAt != nil {
		s := r.LastGeneratedAt.Format(timeFormat)
		lastGenerated = &s
	}

	return RecurringRuleResponse{
		ID:              r.ID.String(),
		GroupID:         r.GroupID.String(),
		CreatorID:       r.CreatorID.String(),
		Name:            r.Name,
		Category:        r.Category,
		Currency:        r.Currency,
		Amount:          amount,
		Frequency:       string(r.Frequency),
		DayOfWeek:       r.DayOfWeek,
		DayOfMonth:      r.DayOfMonth,
		MonthOfYear:     r.MonthOfYear,
		StartDate:       r.StartDate.Format(dateOnlyFormat),
		EndDate:         endDate,
		NextOccurrence:  r.NextOccurrence.Format(dateOnlyFormat),
		LastGeneratedAt: lastGenerated,
		IsActive:        r.IsActive,
	}, nil
}

// CreateRule handles POST /groups/:groupId/recurring.
func (h *RecurringHandler) CreateRule(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	var req RecurringRuleRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	startDate, err := time.Parse(dateOnlyFormat, req.StartDate)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid start date")
	}
	var endDate *time.Time
	if req.EndDate != nil {
		t, err := time.Parse(dateOnlyFormat, *req.EndDate)
		if err != nil {
			return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid end date")
		}
		endDate = &t
	}

	amountCents, err := money.FromDecimal(req.Amount, req.Currency)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid amount")
	}
	payers, err := req.toPayerInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	splits, err := req.toSplitInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}

	rule, err := h.recurringService.CreateRule(
		actor.GroupID, actor.ID, req.Name, req.Category, req.Currency, amountCents,
		domain.Frequency(req.Frequency), req.DayOfWeek, req.DayOfMonth, req.MonthOfYear,
		startDate, endDate, payers, splits,
	)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toRecurringRuleResponse(rule)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return Created(c, resp)
}

// ListRules handles GET /groups/:groupId/recurring.
func (h *RecurringHandler) ListRules(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	rules, err := h.recurringService.ListRules(groupID)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]RecurringRuleResponse, len(rules))
	for i, r := range rules {
		rr, err := toRecurringRuleResponse(r)
		if err != nil {
			return Fail(c, domain.ErrInternal)
		}
		resp[i] = rr
	}
	return OK(c, resp)
}

// GetRule handles GET /groups/:groupId/recurring/:ruleId.
func (h *RecurringHandler) GetRule(c echo.Context) error {
	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid rule id")
	}

	rule, err := h.recurringService.GetRule(ruleID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toRecurringRuleResponse(rule)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// UpdateRule handles PUT /groups/:groupId/recurring/:ruleId.
func (h *RecurringHandler) UpdateRule(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid rule id")
	}

	var req RecurringRuleRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	var endDate *time.Time
	if req.EndDate != nil {
		t, err := time.Parse(dateOnlyFormat, *req.EndDate)
		if err != nil {
			return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid end date")
		}
		endDate = &t
	}

	amountCents, err := money.FromDecimal(req.Amount, req.Currency)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid amount")
	}
	payers, err := req.toPayerInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	splits, err := req.toSplitInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}

	rule, err := h.recurringService.UpdateRule(
		actor, ruleID, req.Name, req.Category, amountCents,
		req.DayOfWeek, req.DayOfMonth, req.MonthOfYear, endDate, payers, splits,
	)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toRecurringRuleResponse(rule)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// DeactivateRule handles POST /groups/:groupId/recurring/:ruleId/deactivate.
func (h *RecurringHandler) DeactivateRule(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}
	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid rule id")
	}

	if err := h.recurringService.DeactivateRule(actor, ruleID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// DeleteRule handles DELETE /groups/:groupId/recurring/:ruleId.
func (h *RecurringHandler) DeleteRule(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}
	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid rule id")
	}

	if err := h.recurringService.DeleteRule(actor, ruleID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// GenerateDueResponse reports how many expenses a sweep materialized.
type GenerateDueResponse struct {
	Generated int `json:"generated"`
}

// GenerateDue handles POST /admin/generate-recurring, the manually
// triggerable equivalent of the background sweep.
func (h *RecurringHandler) GenerateDue(c echo.Context) error {
	generated, err := h.recurringService.GenerateDue(time.Now())
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, GenerateDueResponse{Generated: generated})
}

func (h *RecurringHandler) actorMembership(c echo.Context) (*domain.Membership, error) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	actor, err := h.membershipService.GetActive(groupID, userID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	return actor, nil
}
