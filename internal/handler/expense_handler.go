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

// ExpenseHandler handles expense HTTP requests.
type ExpenseHandler struct {
	expenseService    *service.ExpenseService
	membershipService *service.MembershipService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService *service.ExpenseService, membershipService *service.MembershipService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, membershipService: membershipService}
}

// ExpenseSplitRequest is the wire shape of one item split. Amounts are
// decimal strings at the boundary; money.FromDecimal converts to
// minor units before anything touches the service layer.
type ExpenseSplitRequest struct {
	MemberID string `json:"memberId"`
	ShareMode string `json:"shareMode"`
	Weight    *int64 `json:"weight,omitempty"`
	Exact     *string `json:"exact,omitempty"`
}

// ExpenseItemRequest is the wire shape of one expense line item.
type ExpenseItemRequest struct {
	Name      string                `json:"name"`
	Quantity  int64                 `json:"quantity"`
	UnitValue string                `json:"unitValue"`
	Splits    []ExpenseSplitRequest `json:"splits"`
}

// ExpensePayerRequest is the wire shape of one payer row.
type ExpensePayerRequest struct {
	MemberID string `json:"memberId"`
	Amount   string `json:"amount"`
}

// ExpenseRequest is the shared POST/PUT expense request body.
type ExpenseRequest struct {
	Name         string                `json:"name"`
	Category     *string               `json:"category,omitempty"`
	Currency     string                `json:"currency"`
	ExpenseDate  string                `json:"expenseDate"`
	AttachmentID *string               `json:"attachmentId,omitempty"`
	Items        []ExpenseItemRequest  `json:"items"`
	Payers       []ExpensePayerRequest `json:"payers"`
}

// attachmentUUID parses the request's optional attachment reference.
func (r ExpenseRequest) attachmentUUID() (*uuid.UUID, error) {
	if r.AttachmentID == nil || *r.AttachmentID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*r.AttachmentID)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	return &id, nil
}

// ExpenseResponse is an expense as returned to API callers, amounts
// rendered back to decimal strings at the wire boundary.
type ExpenseResponse struct {
	ID          string                `json:"id"`
	GroupID     string                `json:"groupId"`
	CreatorID   string                `json:"creatorMemberId"`
	Name        string                `json:"name"`
	Category    *string               `json:"category,omitempty"`
	Currency    string                `json:"currency"`
	Subtotal    string                `json:"subtotal"`
	ExpenseDate string                `json:"expenseDate"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
	Payers      []ExpensePayerResponse `json:"payers"`
	Items       []ExpenseItemResponse  `json:"items"`
}

// ExpensePayerResponse is a payer row as returned to API callers.
type ExpensePayerResponse struct {
	MemberID string `json:"memberId"`
	Amount   string `json:"amount"`
}

// ExpenseSplitResponse is a split row as returned to API callers.
type ExpenseSplitResponse struct {
	MemberID  string  `json:"memberId"`
	ShareMode string  `json:"shareMode"`
	Weight    *int64  `json:"weight,omitempty"`
	Exact     *string `json:"exact,omitempty"`
	Computed  string  `json:"computed"`
}

// ExpenseItemResponse is an item row as returned to API callers.
type ExpenseItemResponse struct {
	Name      string                 `json:"name"`
	Quantity  int64                  `json:"quantity"`
	UnitValue string                 `json:"unitValue"`
	Total     string                 `json:"total"`
	Splits    []ExpenseSplitResponse `json:"splits"`
}

func toExpenseResponse(e *domain.Expense) (ExpenseResponse, error) {
	subtotal, err := money.ToDecimal(e.SubtotalCents, e.Currency)
	if err != nil {
		return ExpenseResponse{}, err
	}

	payers := make([]ExpensePayerResponse, len(e.Payers))
	for i, p := range e.Payers {
		amount, err := money.ToDecimal(p.AmountCents, p.Currency)
		if err != nil {
			return ExpenseResponse{}, err
		}
		payers[i] = ExpensePayerResponse{MemberID: p.MemberID.String(), Amount: amount}
	}

	items := make([]ExpenseItemResponse, len(e.Items))
	for i, item := range e.Items {
		unitValue, err := money.ToDecimal(item.UnitValueCents, item.Currency)
		if err != nil {
			return ExpenseResponse{}, err
		}
		total, err := money.ToDecimal(item.Total(), item.Currency)
		if err != nil {
			return ExpenseResponse{}, err
		}

		splits := make([]ExpenseSplitResponse, len(item.Splits))
		for j, sp := range item.Splits {
			computed, err := money.ToDecimal(sp.ComputedCents, item.Currency)
			if err != nil {
				return ExpenseResponse{}, err
			}
			var exact *string
			if sp.ExactCents != nil {
				s, err := money.ToDecimal(*sp.ExactCents, item.Currency)
				if err != nil {
					return ExpenseResponse{}, err
				}
				exact = &s
			}
			splits[j] = ExpenseSplitResponse{
				MemberID:  sp.MemberID.String(),
				ShareMode: string(sp.ShareMode),
				Weight:    sp.Weight,
				Exact:     exact,
				Computed:  computed,
			}
		}

		items[i] = ExpenseItemResponse{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitValue: unitValue,
			Total:     total,
			Splits:    splits,
		}
	}

	return ExpenseResponse{
		ID:          e.ID.String(),
		GroupID:     e.GroupID.String(),
		CreatorID:   e.CreatorID.String(),
		Name:        e.Name,
		Category:    e.Category,
		Currency:    e.Currency,
		Subtotal:    subtotal,
		ExpenseDate: e.ExpenseDate.Format(timeFormat),
		CreatedAt:   e.CreatedAt.Format(timeFormat),
		UpdatedAt:   e.UpdatedAt.Format(timeFormat),
		Payers:      payers,
		Items:       items,
	}, nil
}

func (req *ExpenseRequest) toPayerInputs(currency string) ([]service.ExpensePayerInput, error) {
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

func (req *ExpenseRequest) toItemInputs(currency string) ([]service.ExpenseItemInput, error) {
	inputs := make([]service.ExpenseItemInput, len(req.Items))
	for i, item := range req.Items {
		unitValue, err := money.FromDecimal(item.UnitValue, currency)
		if err != nil {
			return nil, domain.ErrInvalidAmount
		}

		splits := make([]service.ExpenseSplitInput, len(item.Splits))
		for j, sp := range item.Splits {
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
			splits[j] = service.ExpenseSplitInput{
				MemberID:   memberID,
				ShareMode:  domain.ShareMode(sp.ShareMode),
				Weight:     sp.Weight,
				ExactCents: exactCents,
			}
		}

		inputs[i] = service.ExpenseItemInput{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitValueCents: unitValue,
			Splits:         splits,
		}
	}
	return inputs, nil
}

// CreateExpense handles POST /groups/:groupId/expenses.
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	expenseDate, err := time.Parse(time.RFC3339, req.ExpenseDate)
	if err != nil {
		expenseDate = time.Now()
	}

	payers, err := req.toPayerInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	items, err := req.toItemInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	attachmentID, err := req.attachmentUUID()
	if err != nil {
		return Fail(c, err)
	}

	expense, err := h.expenseService.CreateExpense(actor.GroupID, actor.ID, req.Name, req.Category, req.Currency, items, payers, expenseDate, attachmentID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toExpenseResponse(expense)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return Created(c, resp)
}

// ListExpenses handles GET /groups/:groupId/expenses.
func (h *ExpenseHandler) ListExpenses(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	var filter domain.ExpenseFilter
	if category := c.QueryParam("category"); category != "" {
		filter.Category = &category
	}
	if payerID := c.QueryParam("payerId"); payerID != "" {
		if id, err := uuid.Parse(payerID); err == nil {
			filter.PayerID = &id
		}
	}
	if from := c.QueryParam("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.QueryParam("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}

	expenses, err := h.expenseService.ListExpenses(groupID, filter)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		r, err := toExpenseResponse(e)
		if err != nil {
			return Fail(c, domain.ErrInternal)
		}
		resp[i] = r
	}
	return OK(c, resp)
}

// GetExpense handles GET /groups/:groupId/expenses/:expenseId.
func (h *ExpenseHandler) GetExpense(c echo.Context) error {
	expenseID, err := uuid.Parse(c.Param("expenseId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid expense id")
	}

	expense, err := h.expenseService.GetExpense(expenseID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toExpenseResponse(expense)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// UpdateExpense handles PUT /groups/:groupId/expenses/:expenseId.
func (h *ExpenseHandler) UpdateExpense(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	expenseID, err := uuid.Parse(c.Param("expenseId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid expense id")
	}

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	expenseDate, err := time.Parse(time.RFC3339, req.ExpenseDate)
	if err != nil {
		expenseDate = time.Now()
	}

	payers, err := req.toPayerInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	items, err := req.toItemInputs(req.Currency)
	if err != nil {
		return Fail(c, err)
	}
	attachmentID, err := req.attachmentUUID()
	if err != nil {
		return Fail(c, err)
	}

	expense, err := h.expenseService.UpdateExpense(actor, expenseID, req.Name, req.Category, items, payers, expenseDate, attachmentID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toExpenseResponse(expense)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// DeleteExpense handles DELETE /groups/:groupId/expenses/:expenseId.
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	expenseID, err := uuid.Parse(c.Param("expenseId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid expense id")
	}

	if err := h.expenseService.DeleteExpense(actor, expenseID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// actorMembership resolves the caller's own active membership in the
// :groupId path segment.
func (h *ExpenseHandler) actorMembership(c echo.Context) (*domain.Membership, error) {
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
