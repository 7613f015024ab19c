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

// BalanceHandler handles GET /groups/:groupId/balances.
type BalanceHandler struct {
	balanceService    *service.BalanceService
	membershipService *service.MembershipService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceService *service.BalanceService, membershipService *service.MembershipService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService, membershipService: membershipService}
}

// MemberBalanceResponse is one member's position, amounts rendered as
// decimal strings at the wire boundary.
type MemberBalanceResponse struct {
	MemberID    string `json:"memberId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Paid        string `json:"paid"`
	Owed        string `json:"owed"`
	Net         string `json:"net"`
}

// DebtEdgeResponse is one simplified debt edge.
type DebtEdgeResponse struct {
	FromMemberID    string `json:"fromMemberId"`
	FromDisplayName string `json:"fromDisplayName"`
	ToMemberID      string `json:"toMemberId"`
	ToDisplayName   string `json:"toDisplayName"`
	Amount          string `json:"amount"`
}

// GroupBalancesResponse is the full balances payload for a group.
type GroupBalancesResponse struct {
	GroupID  string                  `json:"groupId"`
	Currency string                  `json:"currency"`
	Members  []MemberBalanceResponse `json:"members"`
	Debts    []DebtEdgeResponse      `json:"simplifiedDebts"`
}

func toGroupBalancesResponse(b *domain.GroupBalances) (GroupBalancesResponse, error) {
	members := make([]MemberBalanceResponse, len(b.Members))
	for i, m := range b.Members {
		paid, err := money.ToDecimal(m.PaidCents, b.Currency)
		if err != nil {
			return GroupBalancesResponse{}, err
		}
		owed, err := money.ToDecimal(m.OwedCents, b.Currency)
		if err != nil {
			return GroupBalancesResponse{}, err
		}
		net, err := money.ToDecimal(m.NetCents, b.Currency)
		if err != nil {
			return GroupBalancesResponse{}, err
		}
		members[i] = MemberBalanceResponse{
			MemberID:    m.MemberID.String(),
			UserID:      m.UserID.String(),
			DisplayName: m.DisplayName,
			Paid:        paid,
			Owed:        owed,
			Net:         net,
		}
	}

	edges := make([]DebtEdgeResponse, len(b.Edges))
	for i, e := range b.Edges {
		amount, err := money.ToDecimal(e.AmountCents, b.Currency)
		if err != nil {
			return GroupBalancesResponse{}, err
		}
		edges[i] = DebtEdgeResponse{
			FromMemberID:    e.FromMemberID.String(),
			FromDisplayName: e.FromDisplayName,
			ToMemberID:      e.ToMemberID.String(),
			ToDisplayName:   e.ToDisplayName,
			Amount:          amount,
		}
	}

	return GroupBalancesResponse{
		GroupID:  b.GroupID.String(),
		Currency: b.Currency,
		Members:  members,
		Debts:    edges,
	}, nil
}

// GetBalances handles GET /groups/:groupId/balances. A truthy
// ?skipCache=true query param forces a recompute, bypassing the cache
// entry for debugging or right after a write the caller doesn't trust yet.
func (h *BalanceHandler) GetBalances(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	if _, err := h.membershipService.GetActive(groupID, userID); err != nil {
		return Fail(c, domain.ErrForbidden)
	}

	skipCache := c.QueryParam("skipCache") == "true"

	balances, err := h.balanceService.GetGroupBalances(groupID, skipCache)
	if err != nil {
		return Fail(c, err)
	}

	resp, err := toGroupBalancesResponse(balances)
	if err != nil {
		return Fail(c, domain.ErrInternal)
	}
	return OK(c, resp)
}
