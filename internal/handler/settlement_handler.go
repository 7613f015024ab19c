package handler

import (
	"net/http"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/money"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SettlementHandler handles settlement HTTP requests.
type SettlementHandler struct {
	settlementService *service.SettlementService
	membershipService *service.MembershipService
	groupService      *service.GroupService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementService *service.SettlementService, membershipService *service.MembershipService, groupService *service.GroupService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService, membershipService: membershipService, groupService: groupService}
}

// CreateSettlementRequest is the POST settlement request body.
type CreateSettlementRequest struct {
	PayeeMemberID string  `json:"payeeMemberId"`
	Amount        string  `json:"amount"`
	Note          *string `json:"note,omitempty"`
}

// SettlementResponse is a settlement as returned to API callers.
type SettlementResponse struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"groupId"`
	PayerID   string  `json:"payerMemberId"`
	PayeeID   string  `json:"payeeMemberId"`
	Amount    string  `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func toSettlementResponse(s *domain.Settlement) (SettlementResponse, error) {
	amount, err := money.ToDecimal(s.AmountCents, s.Currency)
	if err != nil {
		return SettlementResponse{}, err
	}
	return SettlementResponse{
		ID:        s.ID.String(),
		GroupID:   s.GroupID.String(),
		PayerID:   s.PayerID.String(),
		PayeeID:   s.PayeeID.String(),
		Amount:    amount,
		Currency:  s.Currency,
		Status:    string(s.Status),
		Note:      s.Note,
		CreatedAt: s.CreatedAt.Format(timeFormat),
		UpdatedAt: s.UpdatedAt.Format(timeFormat),
	}, nil
}

// CreateSettlement handles POST /groups/:groupId/settlements. The caller
// is always the payer; the payee is named in the body.
func (h *SettlementHandler) CreateSettlement(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	var req CreateSettlementRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	payeeID, err := uuid.Parse(req.PayeeMemberID)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid payee member id")
	}

	group, err := h.groupService.GetGroup(actor.GroupID)
	if err != nil {
		return Fail(c, err)
	}
	amountCents, err := money.FromDecimal(req.Amount, group.DefaultCurrency)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid amount")
	}

	settlement, err := h.settlementService.CreateSettlement(actor.GroupID, actor.ID, payeeID, amountCents, req.Note)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toSettlementResponse(settlement)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return Created(c, resp)
}

// ListSettlements handles GET /groups/:groupId/settlements.
func (h *SettlementHandler) ListSettlements(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	settlements, err := h.settlementService.ListSettlements(groupID)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]SettlementResponse, len(settlements))
	for i, s := range settlements {
		r, err := toSettlementResponse(s)
		if err != nil {
			return Fail(c, domain.ErrInternal)
		}
		resp[i] = r
	}
	return OK(c, resp)
}

// GetSettlement handles GET /groups/:groupId/settlements/:settlementId.
func (h *SettlementHandler) GetSettlement(c echo.Context) error {
	settlementID, err := uuid.Parse(c.Param("settlementId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid settlement id")
	}

	settlement, err := h.settlementService.GetSettlement(settlementID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toSettlementResponse(settlement)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// Confirm handles POST /groups/:groupId/settlements/:settlementId/confirm.
func (h *SettlementHandler) Confirm(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}
	settlementID, err := uuid.Parse(c.Param("settlementId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid settlement id")
	}

	settlement, err := h.settlementService.Confirm(actor, settlementID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toSettlementResponse(settlement)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// Reject handles POST /groups/:groupId/settlements/:settlementId/reject.
func (h *SettlementHandler) Reject(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}
	settlementID, err := uuid.Parse(c.Param("settlementId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid settlement id")
	}

	settlement, err := h.settlementService.Reject(actor, settlementID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toSettlementResponse(settlement)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

// Cancel handles POST /groups/:groupId/settlements/:settlementId/cancel.
func (h *SettlementHandler) Cancel(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}
	settlementID, err := uuid.Parse(c.Param("settlementId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid settlement id")
	}

	settlement, err := h.settlementService.Cancel(actor, settlementID)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toSettlementResponse(settlement)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}

func (h *SettlementHandler) actorMembership(c echo.Context) (*domain.Membership, error) {
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
