package handler

import (
	"net/http"
	"strings"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// GroupHandler handles group and membership HTTP requests under /groups.
type GroupHandler struct {
	groupService      *service.GroupService
	membershipService *service.MembershipService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService *service.GroupService, membershipService *service.MembershipService) *GroupHandler {
	return &GroupHandler{groupService: groupService, membershipService: membershipService}
}

// GroupResponse is a group as returned to API callers.
type GroupResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Label           *string `json:"label,omitempty"`
	OwnerUserID     string `json:"ownerUserId"`
	JoinCode        string `json:"joinCode"`
	DefaultCurrency string `json:"defaultCurrency"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:              g.ID.String(),
		Name:            g.Name,
		Label:           g.Label,
		OwnerUserID:     g.OwnerUserID.String(),
		JoinCode:        g.JoinCode,
		DefaultCurrency: g.DefaultCurrency,
		CreatedAt:       g.CreatedAt.Format(timeFormat),
		UpdatedAt:       g.UpdatedAt.Format(timeFormat),
	}
}

// MembershipResponse is a membership as returned to API callers.
type MembershipResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"groupId"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	DisplayName string `json:"displayName"`
	JoinedAt    string `json:"joinedAt"`
}

func toMembershipResponse(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:          m.ID.String(),
		GroupID:     m.GroupID.String(),
		UserID:      m.UserID.String(),
		Role:        string(m.Role),
		Status:      string(m.Status),
		DisplayName: m.DisplayName,
		JoinedAt:    m.JoinedAt.Format(timeFormat),
	}
}

// CreateGroupRequest is the POST /groups request body.
type CreateGroupRequest struct {
	Name            string  `json:"name"`
	Label           *string `json:"label,omitempty"`
	DefaultCurrency string  `json:"defaultCurrency"`
	DisplayName     string  `json:"displayName"`
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	var req CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	group, _, err := h.groupService.CreateGroup(userID, req.Name, req.Label, req.DefaultCurrency, req.DisplayName)
	if err != nil {
		return Fail(c, err)
	}

	return Created(c, toGroupResponse(group))
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	groups, err := h.groupService.ListForUser(userID)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]GroupResponse, len(groups))
	for i, g := range groups {
		resp[i] = toGroupResponse(g)
	}
	return OK(c, resp)
}

// GetGroup handles GET /groups/:groupId.
func (h *GroupHandler) GetGroup(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	group, err := h.groupService.GetGroup(groupID)
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, toGroupResponse(group))
}

// UpdateGroupRequest is the PUT /groups/:groupId request body.
type UpdateGroupRequest struct {
	Name            string  `json:"name"`
	Label           *string `json:"label,omitempty"`
	DefaultCurrency string  `json:"defaultCurrency"`
}

// UpdateGroup handles PUT /groups/:groupId.
func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	var req UpdateGroupRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	group, err := h.groupService.UpdateGroup(actor, actor.GroupID, req.Name, req.Label, req.DefaultCurrency)
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, toGroupResponse(group))
}

// DeleteGroup handles DELETE /groups/:groupId.
func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	if err := h.groupService.DeleteGroup(actor, actor.GroupID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// RegenerateCode handles POST /groups/:groupId/regenerate-code.
func (h *GroupHandler) RegenerateCode(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	group, err := h.groupService.RegenerateJoinCode(actor, actor.GroupID)
	if err != nil {
		return Fail(c, err)
	}
	return OK(c, toGroupResponse(group))
}

// JoinGroupRequest is the POST /groups/join request body.
type JoinGroupRequest struct {
	JoinCode    string `json:"joinCode"`
	DisplayName string `json:"displayName"`
}

// JoinGroup handles POST /groups/join.
func (h *GroupHandler) JoinGroup(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	var req JoinGroupRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}

	membership, err := h.membershipService.JoinByCode(req.JoinCode, userID, req.DisplayName)
	if err != nil {
		return Fail(c, err)
	}
	return Created(c, toMembershipResponse(membership))
}

// Leave handles POST /groups/:groupId/leave.
func (h *GroupHandler) Leave(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	if err := h.membershipService.Leave(actor); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// ListMembers handles GET /groups/:groupId/members.
func (h *GroupHandler) ListMembers(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid group id")
	}

	members, err := h.membershipService.ListMembers(groupID)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]MembershipResponse, len(members))
	for i, m := range members {
		resp[i] = toMembershipResponse(m)
	}
	return OK(c, resp)
}

// RemoveMember handles DELETE /groups/:groupId/members/:memberId.
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	targetID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid member id")
	}
	target, err := h.membershipService.GetByID(targetID)
	if err != nil {
		return Fail(c, err)
	}

	if err := h.membershipService.RemoveMember(actor, target); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// TransferOwnershipRequest is the POST .../transfer-ownership request body.
type TransferOwnershipRequest struct {
	TargetMemberID string `json:"targetMemberId"`
}

// TransferOwnership handles POST /groups/:groupId/transfer-ownership.
func (h *GroupHandler) TransferOwnership(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	var req TransferOwnershipRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}
	targetID, err := uuid.Parse(req.TargetMemberID)
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid target member id")
	}
	target, err := h.membershipService.GetByID(targetID)
	if err != nil {
		return Fail(c, err)
	}

	if err := h.membershipService.TransferOwnership(actor, target); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// UpdateRoleRequest is the PUT .../members/:memberId/role request body.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole handles PUT /groups/:groupId/members/:memberId/role.
func (h *GroupHandler) UpdateMemberRole(c echo.Context) error {
	actor, err := h.actorMembership(c)
	if err != nil {
		return Fail(c, err)
	}

	targetID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid member id")
	}
	target, err := h.membershipService.GetByID(targetID)
	if err != nil {
		return Fail(c, err)
	}

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid request body")
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	if err := h.membershipService.UpdateRole(actor, target, role); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}

// actorMembership resolves the caller's active membership in the :groupId
// path segment, the "actor" every group/membership mutation authorizes
// against.
func (h *GroupHandler) actorMembership(c echo.Context) (*domain.Membership, error) {
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
		log.Debug().Err(err).Str("group_id", groupID.String()).Str("user_id", userID.String()).Msg("actor is not an active member of group")
		return nil, domain.ErrForbidden
	}
	return actor, nil
}
